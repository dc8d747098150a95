// Package main provides the entry point for the multi-agent watcher server.
// It ingests hook events from agent instances, persists them, pushes them to
// connected dashboard clients in real time, and asks a model provider for a
// short summary of each event in the background.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/api"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/broadcast"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/config"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/event"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/ingest"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/logging"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/store"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/summarizer"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
}

func main() {
	fmt.Printf("Multi-Agent Watcher Version: %s, Commit: %s, BuiltAt: %s\n", Version, Commit, BuildDate)

	var configPath string
	var port int
	var showVersion bool
	flag.StringVar(&configPath, "config", "", "Configure File Path")
	flag.IntVar(&port, "port", 0, "Override the configured listen port")
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
	flag.Parse()

	if showVersion {
		return
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		return
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	if configPath == "" {
		configPath = filepath.Join(wd, "config.yaml")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return
	}
	if port > 0 {
		cfg.Port = port
	}

	if warnings, errValidate := config.Validate(cfg); errValidate != nil {
		log.Errorf("invalid configuration: %v", errValidate)
		return
	} else if len(warnings) > 0 {
		for _, w := range warnings {
			log.Warnf("config warning: %s", w)
		}
	}

	if cfg.Debug {
		logging.SetLogLevel("debug")
	} else {
		logging.SetLogLevel(cfg.Logging.Level)
	}
	logging.ConfigureOutput(cfg.Logging.File)

	eventStore, err := store.Open(cfg.DatabasePath, cfg.MaxEventsRetained)
	if err != nil {
		log.Errorf("failed to open event store: %v", err)
		return
	}
	defer func() {
		if errClose := eventStore.Close(); errClose != nil {
			log.Errorf("failed to close event store: %v", errClose)
		}
	}()
	log.Infof("event store ready at %s", cfg.DatabasePath)

	hub := broadcast.NewHub(func(ctx context.Context) ([]event.HookEvent, error) {
		return eventStore.Recent(ctx, cfg.MaxEventsDisplayed)
	})

	var enricher *ingest.Enricher
	if summ := summarizer.New(cfg.Summarization); summ != nil {
		log.Infof("event enrichment enabled via %s", summ.Provider())
		enricher = ingest.NewEnricher(
			summ,
			eventStore,
			hub,
			time.Duration(cfg.Summarization.TimeoutSeconds)*time.Second,
			cfg.Summarization.MaxConcurrent,
			cfg.Summarization.EngineerName,
		)
	}

	svc := ingest.NewService(eventStore, hub, enricher)
	server := api.NewServer(cfg, svc, hub)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err = <-errCh:
		if err != nil {
			log.Errorf("server error: %v", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
		cancel()
		svc.Close()
	}
}

// Package main provides the entry point for the truthlens backend server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aromalbiju/truthlens-go/internal/agent"
	"github.com/aromalbiju/truthlens-go/internal/config"
	"github.com/aromalbiju/truthlens-go/internal/server"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()
	if path := os.Getenv("TRUTHLENS_CONFIG"); path != "" {
		var err error
		cfg, err = config.LoadFile(cfg, path)
		if err != nil {
			os.Stderr.WriteString("Error: " + err.Error() + "\n")
			os.Exit(1)
		}
	}

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("truthlens-server starting",
		"version", version,
		"listen_addr", cfg.ListenAddr,
		"llm_provider", cfg.LLMProvider,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// The verdict agent degrades to rule-based synthesis when no LLM is
	// reachable; the pipeline never depends on a live model.
	verdictAgent := agent.NewRuleBased(logger)
	if model, err := agent.NewModel(cfg); err != nil {
		logger.Warn("LLM unavailable, using rule-based verdicts", "error", err)
	} else {
		verdictAgent = agent.New(model, logger)
		logger.Info("verdict agent initialized", "model", model.Model())
	}

	srv := server.New(cfg, verdictAgent, logger)

	logger.Info("server ready, awaiting uploads")

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daniacca/ecosim/internal/eco"
)

func main() {
	cfg := loadServerConfig()
	logger := NewLogger(cfg.LogLevel)

	srv := NewServer(logger)

	simCfg, err := startupSimulationConfig(cfg)
	if err != nil {
		logger.Fatalf("Failed to load simulation config: %v", err)
	}
	sim, err := srv.manager.Create(eco.EnvironmentID(cfg.DefaultEnvID), simCfg)
	if err != nil {
		logger.Fatalf("Failed to create startup simulation: %v", err)
	}
	if cfg.StepIntervalMS > 0 {
		sim.Run(time.Duration(cfg.StepIntervalMS) * time.Millisecond)
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Routes(),
	}

	go func() {
		logger.Infof("ecosim-server listening on %s (env_id=%s)", cfg.Addr, cfg.DefaultEnvID)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Infof("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP shutdown failed: %v", err)
	}
	if err := srv.Close(); err != nil {
		logger.Errorf("Failed to close notifiers: %v", err)
	}
}

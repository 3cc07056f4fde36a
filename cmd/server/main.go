// Package main is the entry point for the vesting simulation service: it
// wires configuration, logging, the job queue, its sweeper, and the
// demonstration HTTP surface, then waits for a shutdown signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/vesting-sim/internal/config"
	"github.com/aristath/vesting-sim/internal/queue"
	"github.com/aristath/vesting-sim/internal/server"
	"github.com/aristath/vesting-sim/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)

	log.Info().Msg("starting vesting simulation service")

	manager := queue.New(cfg.WorkerBudget, cfg.JobTTL, cfg.CacheTTL)
	manager.Start()

	sweeper := queue.NewSweeper(manager, log)
	if err := sweeper.Start(fmt.Sprintf("@every %s", cfg.SweepInterval)); err != nil {
		log.Fatal().Err(err).Msg("failed to start sweeper")
	}

	srv := server.New(server.Config{
		Log:          log,
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
		Manager:      manager,
		WorkerBudget: cfg.WorkerBudget,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
			log.Error().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	sweeper.Stop()
	manager.Stop()

	log.Info().Msg("shutdown complete")
}

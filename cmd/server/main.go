package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zhao0294/cst8919-assignment1/internal/app"
	"github.com/zhao0294/cst8919-assignment1/internal/config"
	"github.com/zhao0294/cst8919-assignment1/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The configured level is unknown until config loads.
		logger.Init("info", false)
		logger.Fatal("invalid configuration", map[string]any{
			"error": err.Error(),
		})
	}
	logger.Init(cfg.LogLevel, cfg.IsDevelopment())
	defer logger.Sync()

	if cfg.GeneratedSecret {
		logger.Warn("APP_SECRET_KEY not set, using a per-process key; sessions end on restart", nil)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{
			"error": err.Error(),
		})
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("http server failed", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	logger.Info("server started", map[string]any{
		"port": cfg.AppPort,
		"env":  cfg.AppEnv,
	})

	<-ctx.Done() // wait for Ctrl+C

	logger.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", map[string]any{
			"error": err.Error(),
		})
	}

	logger.Info("server stopped cleanly", nil)
}

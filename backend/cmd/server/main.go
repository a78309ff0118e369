/*
 * @Author: NEFU AB-IN
 * @Date: 2026-06-18 11:20:37
 * @FilePath: \game-hub-app\backend\cmd\server\main.go
 * @LastEditTime: 2026-06-23 17:02:14
 */
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"game-hub-app/backend/internal/app"
	"game-hub-app/backend/internal/bootstrap"
	appLogger "game-hub-app/backend/internal/infra/logger"
)

const (
	defaultPort       = "8080"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := appLogger.S().With("component", "main")
	defer appLogger.Sync()

	resources, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	defer func() {
		if err := resources.Close(); err != nil {
			logger.Errorw("resource cleanup error", "error", err)
		}
	}()

	cfg := loadRuntimeConfig()

	application, err := bootstrap.BuildApplication(ctx, logger, resources, cfg)
	if err != nil {
		log.Fatalf("build application failed: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infow("http server listening", "addr", srv.Addr, "mode", resources.Flags.Mode, "storage", resources.Store.Kind())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
	}
}

func loadRuntimeConfig() bootstrap.RuntimeConfig {
	cfg := bootstrap.RuntimeConfig{
		Port:       defaultPort,
		JWTSecret:  strings.TrimSpace(os.Getenv("JWT_SECRET")),
		AccessTTL:  defaultAccessTTL,
		RefreshTTL: defaultRefreshTTL,
	}

	if port := strings.TrimSpace(os.Getenv("SERVER_PORT")); port != "" {
		cfg.Port = port
	}
	if raw := strings.TrimSpace(os.Getenv("JWT_ACCESS_TTL")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.AccessTTL = d
		}
	}
	if raw := strings.TrimSpace(os.Getenv("JWT_REFRESH_TTL")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.RefreshTTL = d
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-insecure-secret"
		log.Println("JWT_SECRET not set, using insecure development default")
	}

	return cfg
}

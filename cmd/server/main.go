package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/skik4/cs2-casual-enjoyer/internal/config"
	"github.com/skik4/cs2-casual-enjoyer/internal/httpapi"
	"github.com/skik4/cs2-casual-enjoyer/internal/join"
	"github.com/skik4/cs2-casual-enjoyer/internal/launch"
	"github.com/skik4/cs2-casual-enjoyer/internal/steamapi"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	// .env is optional; real env wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := steamapi.NewClient(cfg.SteamAPIBase, cfg.SteamAPIKey, cfg.ConnectPrefix, logger.Named("steamapi"))
	fetchers := func(auth string) join.Fetcher {
		if auth == "" || auth == cfg.SteamAPIKey {
			return client
		}
		return client.WithKey(auth)
	}

	manager := join.NewManager(
		ctx,
		fetchers,
		launch.NewOSOpener(logger.Named("launch")),
		join.NewRegistry(),
		join.Config{PollInterval: cfg.PollInterval, Protocol: cfg.Protocol, AppID: cfg.AppID},
		join.SystemClock,
		logger.Named("join"),
	)

	// Build the router *with* the manager injected
	handler := httpapi.SetupRoutes(manager, client, httpapi.Defaults{SelfID: cfg.SelfID, Auth: cfg.SteamAPIKey}, cfg.PollInterval)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Flag every join loop cancelled before the listener goes
		// away, so no loop fires a launch during shutdown.
		manager.ResetAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

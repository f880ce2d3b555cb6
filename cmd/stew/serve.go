package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"

	"github.com/argius/stew5/internal/config"
	"github.com/argius/stew5/internal/load"
	"github.com/argius/stew5/internal/web"
)

func runServe(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.Int("port", cfg.Server.Port, "listen port")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Server.Port = *port

	mode, err := load.ParseMode(cfg.Load.Mode)
	if err != nil {
		return err
	}

	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	limiter := load.NewLimiter(cfg.Load.MaxConcurrent, cfg.Load.MaxWaitTime)
	loader := load.NewLoader(pool, limiter, load.Options{
		Mode:          mode,
		EmptyAsNull:   cfg.Load.EmptyAsNull,
		CheckInterval: cfg.Load.CheckInterval,
		Timeout:       cfg.Load.Timeout,
	})
	server := web.NewServer(loader, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if status := limiter.Status(); status.Active > 0 {
		slog.Info("waiting for active loads to complete", "count", status.Active)
		if err := limiter.WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("shutdown timeout waiting for loads", "remaining", limiter.ActiveCount())
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

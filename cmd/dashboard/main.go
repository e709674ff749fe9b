// Command dashboard serves the trade statistics dashboard over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tradedash/internal/config"
	"tradedash/internal/dashboard"
	"tradedash/internal/fetcher"
	"tradedash/internal/logger"
	"tradedash/internal/providers/registry"
	"tradedash/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{Level: "info"})
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log.Info().
		Str("provider", cfg.Provider).
		Int("countries", len(cfg.Countries)).
		Int("cache_size", cfg.CacheSize).
		Msg("Starting trade dashboard")

	srv, err := build(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise dashboard")
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server stopped")
}

func build(cfg *config.Config, log zerolog.Logger) (*server.Server, error) {
	provider, err := registry.New(cfg.Provider, log)
	if err != nil {
		return nil, err
	}
	cache, err := fetcher.NewCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	service := dashboard.NewService(fetcher.New(provider, cache, log), cfg.Countries, provider.Name(), log)
	handler, err := dashboard.NewHandler(service, log)
	if err != nil {
		return nil, err
	}

	return server.New(server.Config{
		Log:       log,
		Addr:      cfg.Addr(),
		DevMode:   cfg.DevMode,
		Dashboard: handler,
	}), nil
}

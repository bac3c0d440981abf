package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/urfave/cli/v2"

	"github.com/osservaprezzi/carburapi/internal/carbu"
	"github.com/osservaprezzi/carburapi/internal/config"
	"github.com/osservaprezzi/carburapi/internal/server"
	"github.com/osservaprezzi/carburapi/pkg/api"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides CARBU_LISTEN_ADDR)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Snapshot database file (overrides CARBU_DB_PATH)",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg := config.Load()
	if addr := c.String("addr"); addr != "" {
		cfg.ListenAddr = addr
	}
	if db := c.String("db"); db != "" {
		cfg.DBPath = db
	}

	logger := httplog.NewLogger("carburapi", httplog.Options{
		JSON:            false,
		LogLevel:        slog.LevelDebug,
		Concise:         true,
		QuietDownPeriod: 10 * time.Second,
	})

	ctx := context.Background()

	// The snapshot store is a fallback tier, not a hard dependency: keep
	// serving (remote + built-in tiers) if the database cannot be opened.
	var store carbu.SnapshotStore
	sqlStore, err := carbu.NewStore(ctx, cfg.DBPath, logger.Logger)
	if err != nil {
		logger.Warn("snapshot store unavailable", "path", cfg.DBPath, "error", err)
	} else {
		store = sqlStore
		defer sqlStore.Close()
	}

	cache := carbu.NewCache()
	engine := carbu.NewEngine(cache, carbu.EngineConfig{
		ResultCap: cfg.ResultCap,
		EVRates:   cfg.EVRates,
	}, logger.Logger)

	refresher := carbu.NewRefresher(carbu.RefresherOptions{
		Cache: cache,
		Fuel: api.NewMISEClient(api.MISEConfig{
			StationsURL:       cfg.StationsURL,
			StationsMirrorURL: cfg.StationsMirrorURL,
			PricesURL:         cfg.PricesURL,
			PricesMirrorURL:   cfg.PricesMirrorURL,
			Timeout:           cfg.FetchTimeout,
		}, logger.Logger),
		Charge: api.NewOCMClient(api.OCMConfig{
			BaseURL: cfg.OCMBaseURL,
			APIKey:  cfg.OCMAPIKey,
			Timeout: cfg.FetchTimeout,
		}, logger.Logger),
		Store:            store,
		StaleAfter:       cfg.StaleAfter,
		OnDatasetReplace: engine.InvalidateResults,
		Logger:           logger.Logger,
	})

	// Warm the cache so the first request does not pay the fetch latency.
	go func() {
		if err := refresher.EnsureFresh(ctx, time.Now()); err != nil {
			logger.Error("initial refresh failed", "error", err)
		}
	}()

	// Optional eager refresh loop for deployments that prefer a timer over
	// the lazy request-path trigger.
	if cfg.RefreshInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.RefreshInterval)
			defer ticker.Stop()
			for range ticker.C {
				if err := refresher.Refresh(ctx, time.Now()); err != nil {
					logger.Error("scheduled refresh failed", "error", err)
				}
			}
		}()
	}

	srv := server.New(cache, engine, refresher, logger)
	logger.Info("starting server", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Router()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

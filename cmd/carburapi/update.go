package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/osservaprezzi/carburapi/internal/carbu"
	"github.com/osservaprezzi/carburapi/internal/config"
	"github.com/osservaprezzi/carburapi/pkg/api"
)

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Fetch the datasets once and persist a snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "Snapshot database file (overrides CARBU_DB_PATH)",
			},
		},
		Action: updateAction,
	}
}

func updateAction(c *cli.Context) error {
	cfg := config.Load()
	if db := c.String("db"); db != "" {
		cfg.DBPath = db
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := carbu.NewStore(ctx, cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("error opening snapshot store: %w", err)
	}
	defer store.Close()

	cache := carbu.NewCache()
	refresher := carbu.NewRefresher(carbu.RefresherOptions{
		Cache: cache,
		Fuel: api.NewMISEClient(api.MISEConfig{
			StationsURL:       cfg.StationsURL,
			StationsMirrorURL: cfg.StationsMirrorURL,
			PricesURL:         cfg.PricesURL,
			PricesMirrorURL:   cfg.PricesMirrorURL,
			Timeout:           cfg.FetchTimeout,
		}, logger),
		Store:      store,
		StaleAfter: cfg.StaleAfter,
		Logger:     logger,
	})

	if err := refresher.Refresh(ctx, time.Now()); err != nil {
		return err
	}

	snap := cache.Read()
	if !snap.Populated() {
		return fmt.Errorf("update failed: no data fetched")
	}
	fmt.Printf("Updated: %d stations, %d prices\n", len(snap.Stations), len(snap.Prices))
	return nil
}

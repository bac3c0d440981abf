package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/muesli/gominatim"
	"github.com/urfave/cli/v2"

	"github.com/osservaprezzi/carburapi/internal/carbu"
	"github.com/osservaprezzi/carburapi/internal/config"
	"github.com/osservaprezzi/carburapi/pkg/api"
)

const defaultRadiusKm = 5.0

func listNearbyCommand() *cli.Command {
	return &cli.Command{
		Name:  "list-nearby",
		Usage: "List nearby fuel stations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "location",
				Usage: "Location to search",
			},
			&cli.Float64Flag{
				Name:  "lat",
				Usage: "Latitude of the location",
			},
			&cli.Float64Flag{
				Name:  "long",
				Usage: "Longitude of the location",
			},
			&cli.Float64Flag{
				Name:    "radius",
				Aliases: []string{"r"},
				Usage:   "Search radius in kilometers",
				Value:   defaultRadiusKm,
			},
			&cli.StringFlag{
				Name:  "fuel",
				Usage: "Fuel type filter (e.g. Benzina, Gasolio)",
			},
		},
		Action: listNearbyAction,
	}
}

func listNearbyAction(c *cli.Context) error {
	lat := c.Float64("lat")
	lng := c.Float64("long")
	radius := c.Float64("radius")
	loc := c.String("location")

	if loc != "" {
		var err error
		lat, lng, err = geocode(loc)
		if err != nil {
			return err
		}
	} else if lat == 0 && lng == 0 {
		return errors.New("location or latitude and longitude are required")
	}

	return listNearbyStations(lat, lng, radius, c.String("fuel"))
}

func geocode(name string) (lat, lng float64, err error) {
	gominatim.SetServer("https://nominatim.openstreetmap.org/")
	qry := gominatim.SearchQuery{
		Q: name,
	}

	resp, err := qry.Get()
	if err != nil {
		return 0, 0, err
	}
	if len(resp) == 0 {
		return 0, 0, fmt.Errorf("no results found for location: %s", name)
	}
	fmt.Println("Location found:", resp[0].DisplayName)

	lat, err = strconv.ParseFloat(resp[0].Lat, 64)
	if err != nil {
		return 0, 0, err
	}
	lng, err = strconv.ParseFloat(resp[0].Lon, 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

func listNearbyStations(lat, lng, radius float64, fuel string) error {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	cache := carbu.NewCache()
	engine := carbu.NewEngine(cache, carbu.EngineConfig{ResultCap: cfg.ResultCap, EVRates: cfg.EVRates}, logger)
	refresher := carbu.NewRefresher(carbu.RefresherOptions{
		Cache: cache,
		Fuel: api.NewMISEClient(api.MISEConfig{
			StationsURL:       cfg.StationsURL,
			StationsMirrorURL: cfg.StationsMirrorURL,
			PricesURL:         cfg.PricesURL,
			PricesMirrorURL:   cfg.PricesMirrorURL,
			Timeout:           cfg.FetchTimeout,
		}, logger),
		StaleAfter: cfg.StaleAfter,
		Logger:     logger,
	})

	fmt.Println("Fetching datasets...")
	if err := refresher.Refresh(ctx, time.Now()); err != nil {
		return err
	}
	if !cache.Read().Populated() {
		return errors.New("no data available")
	}

	stations := engine.FindFuelStations(lat, lng, radius, fuel)
	for i, st := range stations {
		fmt.Printf("%d. %s (%s)\n", i+1, st.Dettagli.Nome, st.Bandiera)
		fmt.Printf("   Indirizzo: %s, %s (%s)\n", st.Indirizzo.Via, st.Indirizzo.Comune, st.Indirizzo.Provincia)
		fmt.Printf("   Distance: %.2f km\n", st.DistanzaKm)
		for _, p := range st.Prezzi {
			if p.Prezzo == nil {
				continue
			}
			self := ""
			if p.SelfService {
				self = " (self)"
			}
			fmt.Printf("   %s: %.3f €%s\n", p.Tipo, *p.Prezzo, self)
		}
		fmt.Printf("   Coordinates: %g, %g\n\n", st.Maps.Lat, st.Maps.Lon)
	}

	fmt.Printf("Found %d stations within %g km radius\n", len(stations), radius)
	return nil
}

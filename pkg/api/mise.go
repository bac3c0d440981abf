// Package api provides clients for the upstream data providers: the MISE
// open-data CSV exports (fuel station registry and daily prices) and the
// Open Charge Map POI search API.
package api

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// Ministry CSV exports. The ministry moved domains a few times
	// (mise.gov.it -> mimit.gov.it), so both are kept as fallback mirrors.
	DefaultStationsURL       = "https://www.mise.gov.it/images/exportCSV/anagrafica_impianti_attivi.csv"
	DefaultStationsMirrorURL = "https://www.mimit.gov.it/images/exportCSV/anagrafica_impianti_attivi.csv"
	DefaultPricesURL         = "https://www.mise.gov.it/images/exportCSV/prezzo_alle_8.csv"
	DefaultPricesMirrorURL   = "https://www.mimit.gov.it/images/exportCSV/prezzo_alle_8.csv"

	// DefaultTimeout bounds a single CSV download. The exports are a few MB
	// and the ministry servers are slow, but anything beyond this is a stall.
	DefaultTimeout = 20 * time.Second

	csvSeparator = ';'

	stationFieldCount = 10
	priceFieldCount   = 5
)

// MISEConfig holds the endpoints for the ministry CSV exports. Zero values
// fall back to the public defaults.
type MISEConfig struct {
	StationsURL       string
	StationsMirrorURL string
	PricesURL         string
	PricesMirrorURL   string
	Timeout           time.Duration
}

// MISEClient downloads and parses the ministry CSV datasets. Fields are
// addressed by position: header text changes with every export ("Estrazione
// del 2025-03-05" and the like) and cannot be trusted.
type MISEClient struct {
	cfg        MISEConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewMISEClient creates a client for the ministry CSV exports.
func NewMISEClient(cfg MISEConfig, logger *slog.Logger) *MISEClient {
	if cfg.StationsURL == "" {
		cfg.StationsURL = DefaultStationsURL
	}
	if cfg.StationsMirrorURL == "" {
		cfg.StationsMirrorURL = DefaultStationsMirrorURL
	}
	if cfg.PricesURL == "" {
		cfg.PricesURL = DefaultPricesURL
	}
	if cfg.PricesMirrorURL == "" {
		cfg.PricesMirrorURL = DefaultPricesMirrorURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &MISEClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: logger,
	}
}

// FetchStations downloads the station registry, trying the mirror when the
// primary endpoint errors or yields zero data rows.
func (c *MISEClient) FetchStations(ctx context.Context) ([]Station, error) {
	rows, err := c.fetchCSVWithFallback(ctx, c.cfg.StationsURL, c.cfg.StationsMirrorURL)
	if err != nil {
		return nil, err
	}

	stations := make([]Station, 0, len(rows))
	for _, row := range rows {
		if len(row) < stationFieldCount {
			continue
		}
		stations = append(stations, Station{
			ID:          row[0],
			Gestore:     row[1],
			Bandiera:    row[2],
			Tipo:        row[3],
			Nome:        row[4],
			Via:         row[5],
			Comune:      row[6],
			Provincia:   row[7],
			Latitudine:  row[8],
			Longitudine: row[9],
		})
	}
	return stations, nil
}

// FetchPrices downloads the daily price list, with the same mirror fallback
// as FetchStations.
func (c *MISEClient) FetchPrices(ctx context.Context) ([]Price, error) {
	rows, err := c.fetchCSVWithFallback(ctx, c.cfg.PricesURL, c.cfg.PricesMirrorURL)
	if err != nil {
		return nil, err
	}

	prices := make([]Price, 0, len(rows))
	for _, row := range rows {
		if len(row) < priceFieldCount {
			continue
		}
		prices = append(prices, Price{
			StationID:     row[0],
			Tipo:          row[1],
			Prezzo:        row[2],
			SelfService:   row[3] == "1",
			Aggiornamento: row[4],
		})
	}
	return prices, nil
}

func (c *MISEClient) fetchCSVWithFallback(ctx context.Context, primary, mirror string) ([][]string, error) {
	rows, err := c.fetchCSV(ctx, primary)
	if err == nil && len(rows) > 0 {
		return rows, nil
	}
	if err != nil {
		c.log.Warn("primary endpoint failed, trying mirror", "url", primary, "error", err)
	} else {
		c.log.Warn("primary endpoint returned no rows, trying mirror", "url", primary)
	}
	if mirror == "" || mirror == primary {
		return rows, err
	}

	rows, err = c.fetchCSV(ctx, mirror)
	if err != nil {
		return nil, fmt.Errorf("mirror fetch failed: %w", err)
	}
	return rows, nil
}

// fetchCSV downloads one export and returns its data rows. The exports open
// with a two-line preamble (extraction banner plus column header); both are
// discarded.
func (c *MISEClient) fetchCSV(ctx context.Context, url string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.Comma = csvSeparator
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error parsing CSV: %w", err)
	}
	if len(records) <= 2 {
		return nil, nil
	}
	return records[2:], nil
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultOCMBaseURL is the Open Charge Map POI search endpoint.
	DefaultOCMBaseURL = "https://api.openchargemap.io/v3/poi"

	// ChargeIDPrefix is prepended to the provider's numeric POI ID so that
	// charge station IDs can never collide with fuel station IDs.
	ChargeIDPrefix = "999"
)

// OCMConfig holds the Open Charge Map endpoint and API key.
type OCMConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// OCMClient queries the Open Charge Map POI search API.
type OCMClient struct {
	cfg        OCMConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewOCMClient creates a client for the Open Charge Map API.
func NewOCMClient(cfg OCMConfig, logger *slog.Logger) *OCMClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOCMBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &OCMClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: logger,
	}
}

// Wire types for the subset of the POI payload this service consumes.
type ocmPOI struct {
	ID           int `json:"ID"`
	OperatorInfo *struct {
		Title string `json:"Title"`
	} `json:"OperatorInfo"`
	AddressInfo *struct {
		Title           string  `json:"Title"`
		AddressLine1    string  `json:"AddressLine1"`
		Town            string  `json:"Town"`
		StateOrProvince string  `json:"StateOrProvince"`
		Latitude        float64 `json:"Latitude"`
		Longitude       float64 `json:"Longitude"`
	} `json:"AddressInfo"`
	Connections []struct {
		ConnectionType *struct {
			Title string `json:"Title"`
		} `json:"ConnectionType"`
		PowerKW *float64 `json:"PowerKW"`
	} `json:"Connections"`
	DateLastStatusUpdate string `json:"DateLastStatusUpdate"`
}

// Search returns charging stations within radiusKm of the given point.
func (c *OCMClient) Search(ctx context.Context, lat, lon, radiusKm float64, maxResults int) ([]ChargeStation, error) {
	q := url.Values{}
	q.Set("output", "json")
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("distance", strconv.FormatFloat(radiusKm, 'f', -1, 64))
	q.Set("distanceunit", "km")
	q.Set("maxresults", strconv.Itoa(maxResults))
	q.Set("compact", "true")
	q.Set("verbose", "false")
	if c.cfg.APIKey != "" {
		q.Set("key", c.cfg.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), http.NoBody)
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

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	var pois []ocmPOI
	if err := json.Unmarshal(body, &pois); err != nil {
		return nil, fmt.Errorf("error unmarshaling JSON: %w", err)
	}

	stations := make([]ChargeStation, 0, len(pois))
	for i := range pois {
		stations = append(stations, poiToChargeStation(&pois[i]))
	}
	return stations, nil
}

func poiToChargeStation(poi *ocmPOI) ChargeStation {
	cs := ChargeStation{
		ID:                  ChargeIDPrefix + strconv.Itoa(poi.ID),
		UltimoAggiornamento: poi.DateLastStatusUpdate,
	}
	if poi.OperatorInfo != nil {
		cs.Operatore = poi.OperatorInfo.Title
	}
	if poi.AddressInfo != nil {
		cs.Nome = poi.AddressInfo.Title
		cs.Via = poi.AddressInfo.AddressLine1
		cs.Comune = poi.AddressInfo.Town
		cs.Provincia = poi.AddressInfo.StateOrProvince
		cs.Latitudine = poi.AddressInfo.Latitude
		cs.Longitudine = poi.AddressInfo.Longitude
	}
	for _, conn := range poi.Connections {
		connector := Connector{}
		if conn.ConnectionType != nil {
			connector.Tipo = conn.ConnectionType.Title
		}
		if conn.PowerKW != nil {
			connector.PotenzaKW = *conn.PowerKW
		}
		cs.Connettori = append(cs.Connettori, connector)
	}
	return cs
}

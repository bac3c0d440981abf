package carbu

import (
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/osservaprezzi/carburapi/pkg/api"
)

// ElectricFuelLabel is the fuel-type marker that routes a fuel query to the
// EV dataset: electric "fuel" has no rows in the ministry price export.
const ElectricFuelLabel = "Elettrica"

const (
	// DefaultResultCap bounds response size. Different deployments of the
	// original service used different ad hoc caps; one fixed configurable
	// value replaces them all.
	DefaultResultCap = 30

	resultCacheExpiry  = 5 * time.Minute
	resultCacheCleanup = 10 * time.Minute
)

// TierRate maps a connector power band to an estimated per-kWh price.
// A station falls into the first tier whose MaxPowerKW exceeds its most
// powerful connector; MaxPowerKW == 0 marks the catch-all top tier.
type TierRate struct {
	MaxPowerKW  float64
	PricePerKWh float64
}

// DefaultEVRates is the default power to price tier table. The estimate is
// acknowledged as an approximation: charging networks do not publish prices
// through the search API.
func DefaultEVRates() []TierRate {
	return []TierRate{
		{MaxPowerKW: 11, PricePerKWh: 0.45},
		{MaxPowerKW: 50, PricePerKWh: 0.55},
		{MaxPowerKW: 100, PricePerKWh: 0.65},
		{MaxPowerKW: 0, PricePerKWh: 0.79},
	}
}

// EngineConfig configures the query engine.
type EngineConfig struct {
	ResultCap int
	EVRates   []TierRate
}

// Engine answers radius queries against the cached datasets.
type Engine struct {
	cache     *Cache
	resultCap int
	evRates   []TierRate
	results   *cache.Cache
	log       *slog.Logger
}

// NewEngine builds a query engine over the given cache.
func NewEngine(c *Cache, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.ResultCap <= 0 {
		cfg.ResultCap = DefaultResultCap
	}
	if len(cfg.EVRates) == 0 {
		cfg.EVRates = DefaultEVRates()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Engine{
		cache:     c,
		resultCap: cfg.ResultCap,
		evRates:   cfg.EVRates,
		results:   cache.New(resultCacheExpiry, resultCacheCleanup),
		log:       logger,
	}
}

// InvalidateResults drops the memoized query results. The Refresher calls
// this whenever either dataset in the cache is replaced.
func (e *Engine) InvalidateResults() {
	e.results.Flush()
}

// Result payload types, serialized straight into the HTTP responses.

type StationDetails struct {
	Gestore string `json:"gestore"`
	Tipo    string `json:"tipo"`
	Nome    string `json:"nome"`
}

type Address struct {
	Via       string `json:"via"`
	Comune    string `json:"comune"`
	Provincia string `json:"provincia"`
}

type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FuelPrice is one price row in a station payload. Prezzo is nil when the
// upstream value does not parse as a decimal; the row is kept anyway.
type FuelPrice struct {
	Tipo                string   `json:"tipo"`
	Prezzo              *float64 `json:"prezzo"`
	SelfService         bool     `json:"self_service"`
	UltimoAggiornamento string   `json:"ultimo_aggiornamento"`
}

type FuelStationResult struct {
	ID         string         `json:"id_stazione"`
	Bandiera   string         `json:"bandiera"`
	Dettagli   StationDetails `json:"dettagli_stazione"`
	Indirizzo  Address        `json:"indirizzo"`
	Maps       Coords         `json:"maps"`
	DistanzaKm float64        `json:"distanza"`
	Prezzi     []FuelPrice    `json:"prezzi_carburanti"`
}

type ChargeStationResult struct {
	ID                  string          `json:"id_stazione"`
	Nome                string          `json:"nome"`
	Operatore           string          `json:"operatore"`
	Indirizzo           Address         `json:"indirizzo"`
	Maps                Coords          `json:"maps"`
	DistanzaKm          float64         `json:"distanza"`
	Connettori          []api.Connector `json:"connettori"`
	PrezzoKWhStimato    float64         `json:"prezzo_kwh_stimato"`
	UltimoAggiornamento string          `json:"ultimo_aggiornamento"`
}

// NormalizeStationID is the canonical identifier normalization applied on
// both sides of the station/price join: trim whitespace, then strip leading
// zeros (the two exports disagree on zero padding). An all-zero ID collapses
// to "0" instead of the empty string.
func NormalizeStationID(id string) string {
	t := strings.TrimSpace(id)
	stripped := strings.TrimLeft(t, "0")
	if stripped == "" && t != "" {
		return "0"
	}
	return stripped
}

// ParsePrice normalizes a locale-formatted decimal ("1,899") and parses it.
// Returns nil for empty or unparseable input.
func ParsePrice(s string) *float64 {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return nil
	}
	return &v
}

// FindFuelStations returns the stations within maxKm of the query point,
// joined to their price rows and sorted by ascending distance. A non-empty
// fuelFilter keeps only stations with a case-insensitive match on the
// fuel-type label, and only the matching price rows in the payload.
func (e *Engine) FindFuelStations(lat, lon, maxKm float64, fuelFilter string) []FuelStationResult {
	key := resultKey("fuel", lat, lon, maxKm, strings.ToLower(strings.TrimSpace(fuelFilter)))
	if cached, found := e.results.Get(key); found {
		e.log.Debug("using cached results", "key", key)
		return cached.([]FuelStationResult)
	}

	snap := e.cache.Read()
	pricesByID := indexPrices(snap.Prices)

	results := make([]FuelStationResult, 0)
	for i := range snap.Stations {
		station := &snap.Stations[i]

		stationLat, err := ParseCoord(station.Latitudine)
		if err != nil {
			continue
		}
		stationLon, err := ParseCoord(station.Longitudine)
		if err != nil {
			continue
		}

		d := DistanceKm(lat, lon, stationLat, stationLon)
		if d > maxKm {
			continue
		}

		rows := pricesByID[NormalizeStationID(station.ID)]
		if fuelFilter != "" {
			rows = filterByFuelType(rows, fuelFilter)
			if len(rows) == 0 {
				continue
			}
		}

		results = append(results, FuelStationResult{
			ID:       station.ID,
			Bandiera: station.Bandiera,
			Dettagli: StationDetails{
				Gestore: station.Gestore,
				Tipo:    station.Tipo,
				Nome:    station.Nome,
			},
			Indirizzo: Address{
				Via:       station.Via,
				Comune:    station.Comune,
				Provincia: station.Provincia,
			},
			Maps:       Coords{Lat: stationLat, Lon: stationLon},
			DistanzaKm: d,
			Prezzi:     toFuelPrices(rows),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanzaKm < results[j].DistanzaKm
	})
	if len(results) > e.resultCap {
		results = results[:e.resultCap]
	}
	for i := range results {
		results[i].DistanzaKm = round2(results[i].DistanzaKm)
	}

	e.results.Set(key, results, cache.DefaultExpiration)
	return results
}

// FindChargeStations applies the same radius filter and distance sort to the
// EV dataset. Per-kWh prices are estimated from the most powerful connector
// through the configured tier table.
func (e *Engine) FindChargeStations(lat, lon, maxKm float64) []ChargeStationResult {
	key := resultKey("charge", lat, lon, maxKm, "")
	if cached, found := e.results.Get(key); found {
		e.log.Debug("using cached results", "key", key)
		return cached.([]ChargeStationResult)
	}

	snap := e.cache.Read()

	results := make([]ChargeStationResult, 0)
	for i := range snap.ChargeStations {
		station := &snap.ChargeStations[i]

		d := DistanceKm(lat, lon, station.Latitudine, station.Longitudine)
		if d > maxKm {
			continue
		}

		results = append(results, ChargeStationResult{
			ID:        station.ID,
			Nome:      station.Nome,
			Operatore: station.Operatore,
			Indirizzo: Address{
				Via:       station.Via,
				Comune:    station.Comune,
				Provincia: station.Provincia,
			},
			Maps:                Coords{Lat: station.Latitudine, Lon: station.Longitudine},
			DistanzaKm:          d,
			Connettori:          station.Connettori,
			PrezzoKWhStimato:    e.estimateKWhPrice(maxConnectorPower(station.Connettori)),
			UltimoAggiornamento: station.UltimoAggiornamento,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanzaKm < results[j].DistanzaKm
	})
	if len(results) > e.resultCap {
		results = results[:e.resultCap]
	}
	for i := range results {
		results[i].DistanzaKm = round2(results[i].DistanzaKm)
	}

	e.results.Set(key, results, cache.DefaultExpiration)
	return results
}

// FindFuelStationsByFuelType is FindFuelStations with the filter mandatory.
// The electric marker delegates entirely to FindChargeStations: exactly one
// of the two returned slices is non-nil.
func (e *Engine) FindFuelStationsByFuelType(lat, lon, maxKm float64, fuelType string) ([]FuelStationResult, []ChargeStationResult) {
	if strings.EqualFold(strings.TrimSpace(fuelType), ElectricFuelLabel) {
		return nil, e.FindChargeStations(lat, lon, maxKm)
	}
	return e.FindFuelStations(lat, lon, maxKm, fuelType), nil
}

// TopStations returns the first n stations of the registry with their joined
// prices, without any geographic filter.
func (e *Engine) TopStations(n int) []FuelStationResult {
	snap := e.cache.Read()
	pricesByID := indexPrices(snap.Prices)

	results := make([]FuelStationResult, 0, n)
	for i := range snap.Stations {
		if len(results) >= n {
			break
		}
		station := &snap.Stations[i]

		var coords Coords
		if stationLat, err := ParseCoord(station.Latitudine); err == nil {
			if stationLon, err := ParseCoord(station.Longitudine); err == nil {
				coords = Coords{Lat: stationLat, Lon: stationLon}
			}
		}

		results = append(results, FuelStationResult{
			ID:       station.ID,
			Bandiera: station.Bandiera,
			Dettagli: StationDetails{
				Gestore: station.Gestore,
				Tipo:    station.Tipo,
				Nome:    station.Nome,
			},
			Indirizzo: Address{
				Via:       station.Via,
				Comune:    station.Comune,
				Provincia: station.Provincia,
			},
			Maps:   coords,
			Prezzi: toFuelPrices(pricesByID[NormalizeStationID(station.ID)]),
		})
	}
	return results
}

// resultKey builds a memo key from the exact query parameters. Rounding them
// here would let queries with different radii share an entry and serve
// stations beyond the smaller radius.
func resultKey(kind string, lat, lon, maxKm float64, filter string) string {
	return kind + "_" + strconv.FormatFloat(lat, 'f', -1, 64) +
		"_" + strconv.FormatFloat(lon, 'f', -1, 64) +
		"_" + strconv.FormatFloat(maxKm, 'f', -1, 64) +
		"_" + filter
}

func indexPrices(prices []api.Price) map[string][]api.Price {
	idx := make(map[string][]api.Price, len(prices))
	for _, p := range prices {
		id := NormalizeStationID(p.StationID)
		idx[id] = append(idx[id], p)
	}
	return idx
}

func filterByFuelType(rows []api.Price, fuelType string) []api.Price {
	fuelType = strings.TrimSpace(fuelType)
	var matched []api.Price
	for _, row := range rows {
		if strings.EqualFold(strings.TrimSpace(row.Tipo), fuelType) {
			matched = append(matched, row)
		}
	}
	return matched
}

func toFuelPrices(rows []api.Price) []FuelPrice {
	out := make([]FuelPrice, 0, len(rows))
	for _, row := range rows {
		out = append(out, FuelPrice{
			Tipo:                row.Tipo,
			Prezzo:              ParsePrice(row.Prezzo),
			SelfService:         row.SelfService,
			UltimoAggiornamento: row.Aggiornamento,
		})
	}
	return out
}

func maxConnectorPower(connectors []api.Connector) float64 {
	var max float64
	for _, c := range connectors {
		if c.PotenzaKW > max {
			max = c.PotenzaKW
		}
	}
	return max
}

func (e *Engine) estimateKWhPrice(powerKW float64) float64 {
	var catchAll float64
	for _, tier := range e.evRates {
		if tier.MaxPowerKW <= 0 {
			catchAll = tier.PricePerKWh
			continue
		}
		if powerKW < tier.MaxPowerKW {
			return tier.PricePerKWh
		}
	}
	return catchAll
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

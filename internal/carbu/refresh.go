package carbu

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/osservaprezzi/carburapi/pkg/api"
)

// FuelSource retrieves the station registry and price list. An error or an
// empty result both mean "this tier failed"; the Refresher falls back.
type FuelSource interface {
	FetchStations(ctx context.Context) ([]api.Station, error)
	FetchPrices(ctx context.Context) ([]api.Price, error)
}

// ChargeSource searches for EV charging stations around a point.
type ChargeSource interface {
	Search(ctx context.Context, lat, lon, radiusKm float64, maxResults int) ([]api.ChargeStation, error)
}

// SnapshotStore is the persisted mid-tier fallback between a fresh remote
// fetch and the built-in minimal dataset.
type SnapshotStore interface {
	Save(ctx context.Context, stations []api.Station, prices []api.Price) error
	LoadLatest(ctx context.Context) ([]api.Station, []api.Price, error)
}

const (
	// DefaultStaleAfter is the cache staleness threshold. The ministry
	// exports update once per day, so tens of hours is enough.
	DefaultStaleAfter = 30 * time.Hour

	// Country-wide search used to refresh the cached EV dataset: roughly the
	// centroid of Italy with a radius covering the whole peninsula.
	DefaultChargeCenterLat = 42.5
	DefaultChargeCenterLon = 12.5
	DefaultChargeRadiusKm  = 600
	DefaultChargeMaxCount  = 500
)

// RefresherOptions configures a Refresher. Cache and Fuel are required;
// Charge and Store may be nil, disabling the EV refresh and the persisted
// fallback tier respectively.
type RefresherOptions struct {
	Cache  *Cache
	Fuel   FuelSource
	Charge ChargeSource
	Store  SnapshotStore

	StaleAfter      time.Duration
	ChargeCenterLat float64
	ChargeCenterLon float64
	ChargeRadiusKm  float64
	ChargeMaxCount  int

	// OnDatasetReplace runs after either dataset in the cache changes, fuel
	// pair or EV list; the query engine hooks its memoization flush here.
	OnDatasetReplace func()

	Logger *slog.Logger
}

// Refresher implements the staleness-checked refresh with tiered fallback:
// remote primary/mirror, then persisted snapshot, then built-in dataset.
// Refreshes run lazily from the request path (the triggering request pays
// the fetch latency) and exclusively: concurrent callers wait on the mutex,
// then see fresh data and no-op instead of duplicating fetches.
type Refresher struct {
	mu sync.Mutex

	cache  *Cache
	fuel   FuelSource
	charge ChargeSource
	store  SnapshotStore

	staleAfter      time.Duration
	chargeCenterLat float64
	chargeCenterLon float64
	chargeRadiusKm  float64
	chargeMaxCount  int

	onDatasetReplace func()
	log              *slog.Logger
}

// NewRefresher builds a Refresher, filling zero options with defaults.
func NewRefresher(opts RefresherOptions) *Refresher {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.ChargeCenterLat == 0 && opts.ChargeCenterLon == 0 {
		opts.ChargeCenterLat = DefaultChargeCenterLat
		opts.ChargeCenterLon = DefaultChargeCenterLon
	}
	if opts.ChargeRadiusKm <= 0 {
		opts.ChargeRadiusKm = DefaultChargeRadiusKm
	}
	if opts.ChargeMaxCount <= 0 {
		opts.ChargeMaxCount = DefaultChargeMaxCount
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Refresher{
		cache:            opts.Cache,
		fuel:             opts.Fuel,
		charge:           opts.Charge,
		store:            opts.Store,
		staleAfter:       opts.StaleAfter,
		chargeCenterLat:  opts.ChargeCenterLat,
		chargeCenterLon:  opts.ChargeCenterLon,
		chargeRadiusKm:   opts.ChargeRadiusKm,
		chargeMaxCount:   opts.ChargeMaxCount,
		onDatasetReplace: opts.OnDatasetReplace,
		log:              opts.Logger,
	}
}

// EnsureFresh refreshes the cache when it is stale or never populated, and
// no-ops otherwise. Upstream failures are absorbed by the fallback tiers and
// never surface as an error; callers may still find the cache unpopulated
// afterwards and should answer 503.
func (r *Refresher) EnsureFresh(ctx context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	last := r.cache.Read().LastRefreshedAt
	if !last.IsZero() && now.Sub(last) <= r.staleAfter {
		return nil
	}
	return r.refreshLocked(ctx, now)
}

// Refresh runs a full refresh cycle regardless of staleness. Used by the
// update CLI command and by deployments that schedule refreshes externally.
func (r *Refresher) Refresh(ctx context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshLocked(ctx, now)
}

func (r *Refresher) refreshLocked(ctx context.Context, now time.Time) error {
	r.log.Info("refreshing datasets")

	stations, errStations := r.fuel.FetchStations(ctx)
	if errStations != nil {
		r.log.Warn("station fetch failed", "error", errStations)
	}
	prices, errPrices := r.fuel.FetchPrices(ctx)
	if errPrices != nil {
		r.log.Warn("price fetch failed", "error", errPrices)
	}

	if len(stations) > 0 && len(prices) > 0 {
		r.replaceFuelLocked(stations, prices)
		r.cache.MarkRefreshed(now)
		r.log.Info("remote refresh complete", "stations", len(stations), "prices", len(prices))

		if r.store != nil {
			if err := r.store.Save(ctx, stations, prices); err != nil {
				r.log.Warn("snapshot save failed", "error", err)
			}
		}
	} else {
		r.fallbackLocked(ctx)
	}

	r.refreshChargeStationsLocked(ctx)
	return nil
}

// fallbackLocked works through the lower tiers. Neither tier updates
// LastRefreshedAt, so the next request past the staleness check retries the
// remote endpoints.
func (r *Refresher) fallbackLocked(ctx context.Context) {
	if r.store != nil {
		stations, prices, err := r.store.LoadLatest(ctx)
		if err != nil {
			r.log.Warn("snapshot load failed", "error", err)
		}
		if len(stations) > 0 && len(prices) > 0 {
			r.replaceFuelLocked(stations, prices)
			r.log.Info("serving persisted snapshot", "stations", len(stations), "prices", len(prices))
			return
		}
	}

	if r.cache.Read().Populated() {
		// Keep whatever we already have rather than regressing to the
		// built-in dataset.
		r.log.Warn("refresh failed, keeping existing data")
		return
	}

	stations, prices := BuiltinDataset()
	r.replaceFuelLocked(stations, prices)
	r.log.Warn("serving built-in minimal dataset", "stations", len(stations))
}

// refreshChargeStationsLocked updates the EV dataset with a country-wide
// search. Failure never blocks the fuel refresh; the previous list is
// retained so a third-party outage does not blank out results.
func (r *Refresher) refreshChargeStationsLocked(ctx context.Context) {
	if r.charge == nil {
		return
	}

	stations, err := r.charge.Search(ctx, r.chargeCenterLat, r.chargeCenterLon, r.chargeRadiusKm, r.chargeMaxCount)
	if err != nil {
		r.log.Warn("charge station fetch failed, keeping previous data", "error", err)
		return
	}
	r.cache.ReplaceChargeStations(stations)
	if r.onDatasetReplace != nil {
		r.onDatasetReplace()
	}
	r.log.Info("charge stations refreshed", "count", len(stations))
}

func (r *Refresher) replaceFuelLocked(stations []api.Station, prices []api.Price) {
	r.cache.ReplaceFuelData(stations, prices)
	if r.onDatasetReplace != nil {
		r.onDatasetReplace()
	}
}

package carbu

import (
	"sync"
	"time"

	"github.com/osservaprezzi/carburapi/pkg/api"
)

// Snapshot is an immutable view of the cached datasets. Stations and prices
// always come from the same fetch cycle; charge stations refresh on their
// own. A zero LastRefreshedAt means no successful remote refresh yet.
type Snapshot struct {
	Stations        []api.Station
	Prices          []api.Price
	ChargeStations  []api.ChargeStation
	LastRefreshedAt time.Time
}

// Populated reports whether the snapshot holds a usable fuel dataset. An
// empty charge station list does not count against it: a third-party outage
// must not invalidate the fuel data.
func (s *Snapshot) Populated() bool {
	return len(s.Stations) > 0 && len(s.Prices) > 0
}

// Cache holds the current snapshot. Writers swap a fresh Snapshot pointer,
// so concurrent readers always observe a complete pre- or post-refresh view,
// never a partial mix.
type Cache struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{snap: &Snapshot{}}
}

// Read returns the current snapshot. It never blocks on a refresh and may
// return stale data; staleness is the Refresher's concern.
func (c *Cache) Read() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// ReplaceFuelData swaps stations and prices as an atomic pair.
func (c *Cache) ReplaceFuelData(stations []api.Station, prices []api.Price) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = &Snapshot{
		Stations:        stations,
		Prices:          prices,
		ChargeStations:  c.snap.ChargeStations,
		LastRefreshedAt: c.snap.LastRefreshedAt,
	}
}

// ReplaceChargeStations swaps the EV dataset independently of the fuel pair.
func (c *Cache) ReplaceChargeStations(stations []api.ChargeStation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = &Snapshot{
		Stations:        c.snap.Stations,
		Prices:          c.snap.Prices,
		ChargeStations:  stations,
		LastRefreshedAt: c.snap.LastRefreshedAt,
	}
}

// MarkRefreshed records the time of the last successful remote refresh.
func (c *Cache) MarkRefreshed(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = &Snapshot{
		Stations:        c.snap.Stations,
		Prices:          c.snap.Prices,
		ChargeStations:  c.snap.ChargeStations,
		LastRefreshedAt: t,
	}
}

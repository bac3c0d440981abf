// Package config loads service configuration from the environment. Every
// value has a default; deployments tune behavior without code changes.
package config

import (
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/osservaprezzi/carburapi/internal/carbu"
	"github.com/osservaprezzi/carburapi/pkg/api"
)

type Config struct {
	ListenAddr string
	DBPath     string

	StaleAfter      time.Duration
	FetchTimeout    time.Duration
	RefreshInterval time.Duration

	ResultCap int
	EVRates   []carbu.TierRate

	StationsURL       string
	StationsMirrorURL string
	PricesURL         string
	PricesMirrorURL   string

	OCMBaseURL string
	OCMAPIKey  string
}

func Load() Config {
	return Config{
		ListenAddr:        getenv("CARBU_LISTEN_ADDR", ":3000"),
		DBPath:            getenv("CARBU_DB_PATH", "carburapi.db"),
		StaleAfter:        parseDuration(getenv("CARBU_STALE_AFTER", ""), carbu.DefaultStaleAfter),
		FetchTimeout:      parseDuration(getenv("CARBU_FETCH_TIMEOUT", ""), api.DefaultTimeout),
		RefreshInterval:   parseDuration(getenv("CARBU_REFRESH_INTERVAL", ""), 0),
		ResultCap:         parseInt(getenv("CARBU_RESULT_CAP", ""), carbu.DefaultResultCap),
		EVRates:           parseRates(getenv("CARBU_EV_RATES", "")),
		StationsURL:       getenv("CARBU_STATIONS_URL", api.DefaultStationsURL),
		StationsMirrorURL: getenv("CARBU_STATIONS_MIRROR_URL", api.DefaultStationsMirrorURL),
		PricesURL:         getenv("CARBU_PRICES_URL", api.DefaultPricesURL),
		PricesMirrorURL:   getenv("CARBU_PRICES_MIRROR_URL", api.DefaultPricesMirrorURL),
		OCMBaseURL:        getenv("CARBU_OCM_URL", api.DefaultOCMBaseURL),
		OCMAPIKey:         getenv("CARBU_OCM_KEY", ""),
	}
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func parseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return d
	}
	return v
}

func parseInt(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

// parseRates parses the EV price tier table, e.g.
// "11=0.45,50=0.55,100=0.65,+=0.79" where "+" marks the catch-all tier.
// Malformed input falls back to the defaults wholesale.
func parseRates(s string) []carbu.TierRate {
	if s == "" {
		return carbu.DefaultEVRates()
	}

	var rates []carbu.TierRate
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			return carbu.DefaultEVRates()
		}

		price, err := strconv.ParseFloat(kv[1], 64)
		if err != nil {
			return carbu.DefaultEVRates()
		}

		if kv[0] == "+" {
			rates = append(rates, carbu.TierRate{MaxPowerKW: 0, PricePerKWh: price})
			continue
		}
		maxPower, err := strconv.ParseFloat(kv[0], 64)
		if err != nil || maxPower <= 0 {
			return carbu.DefaultEVRates()
		}
		rates = append(rates, carbu.TierRate{MaxPowerKW: maxPower, PricePerKWh: price})
	}
	if len(rates) == 0 {
		return carbu.DefaultEVRates()
	}

	// Tier lookup walks the table in order, so sort ascending with the
	// catch-all last regardless of how the variable lists them.
	sort.SliceStable(rates, func(i, j int) bool {
		return tierSortKey(rates[i]) < tierSortKey(rates[j])
	})
	return rates
}

func tierSortKey(r carbu.TierRate) float64 {
	if r.MaxPowerKW <= 0 {
		return math.MaxFloat64
	}
	return r.MaxPowerKW
}

// Package server exposes the cached datasets over HTTP.
package server

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"
	"github.com/patrickmn/go-cache"

	"github.com/osservaprezzi/carburapi/internal/carbu"
)

const (
	rateLimitRequests = 60
	rateLimitWindow   = time.Minute

	geocodeCacheExpiry  = 30 * time.Minute
	geocodeCacheCleanup = 90 * time.Minute
)

// Server wires the refresh policy and the query engine behind the HTTP
// routes. Refreshes are triggered lazily from the request path, so the first
// request after the staleness window pays the upstream fetch latency.
type Server struct {
	cache     *carbu.Cache
	engine    *carbu.Engine
	refresher *carbu.Refresher
	geocache  *cache.Cache
	log       *httplog.Logger
}

// New creates a Server over the given components.
func New(c *carbu.Cache, engine *carbu.Engine, refresher *carbu.Refresher, logger *httplog.Logger) *Server {
	return &Server{
		cache:     c,
		engine:    engine,
		refresher: refresher,
		geocache:  cache.New(geocodeCacheExpiry, geocodeCacheCleanup),
		log:       logger,
	}
}

// Router builds the chi router with the service middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(rateLimitRequests, rateLimitWindow))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/gas-stations", s.handleGasStations)
	r.Get("/gas-stations-by-fuel", s.handleGasStationsByFuel)
	r.Get("/charge-stations", s.handleChargeStations)
	r.Get("/top-stations", s.handleTopStations)
	r.Get("/health", s.handleHealth)
	r.Get("/api/cron", s.handleCron)

	return r
}

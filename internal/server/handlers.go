package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/muesli/gominatim"
	"github.com/patrickmn/go-cache"
)

const nominatimServer = "https://nominatim.openstreetmap.org/"

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type stationsResponse struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	TotaleStazioni  int    `json:"totale_stazioni"`
	StazioniTrovate int    `json:"stazioni_trovate"`
	Stations        any    `json:"stations"`
}

func (s *Server) handleGasStations(w http.ResponseWriter, r *http.Request) {
	lat, lng, distance, err := s.parseQueryPoint(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: err.Error()})
		return
	}

	if err := s.refresher.EnsureFresh(r.Context(), time.Now()); err != nil {
		s.log.Error("refresh failed", "error", err)
	}

	snap := s.cache.Read()
	if !snap.Populated() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Status: "error", Message: "Dati non ancora disponibili"})
		return
	}

	results := s.engine.FindFuelStations(lat, lng, distance, "")
	writeJSON(w, http.StatusOK, stationsResponse{
		Status:          "success",
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		TotaleStazioni:  len(snap.Stations),
		StazioniTrovate: len(results),
		Stations:        results,
	})
}

func (s *Server) handleGasStationsByFuel(w http.ResponseWriter, r *http.Request) {
	lat, lng, distance, err := s.parseQueryPoint(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: err.Error()})
		return
	}
	fuelType := r.URL.Query().Get("TipoFuel")
	if fuelType == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "Parametro TipoFuel richiesto"})
		return
	}

	if err := s.refresher.EnsureFresh(r.Context(), time.Now()); err != nil {
		s.log.Error("refresh failed", "error", err)
	}

	snap := s.cache.Read()
	if !snap.Populated() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Status: "error", Message: "Dati non ancora disponibili"})
		return
	}

	fuelResults, chargeResults := s.engine.FindFuelStationsByFuelType(lat, lng, distance, fuelType)
	if chargeResults != nil {
		writeJSON(w, http.StatusOK, stationsResponse{
			Status:          "success",
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
			TotaleStazioni:  len(snap.ChargeStations),
			StazioniTrovate: len(chargeResults),
			Stations:        chargeResults,
		})
		return
	}

	writeJSON(w, http.StatusOK, stationsResponse{
		Status:          "success",
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		TotaleStazioni:  len(snap.Stations),
		StazioniTrovate: len(fuelResults),
		Stations:        fuelResults,
	})
}

func (s *Server) handleChargeStations(w http.ResponseWriter, r *http.Request) {
	lat, lng, distance, err := s.parseQueryPoint(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: err.Error()})
		return
	}

	if err := s.refresher.EnsureFresh(r.Context(), time.Now()); err != nil {
		s.log.Error("refresh failed", "error", err)
	}

	// Gated on the EV dataset, not the fuel pair: this endpoint answers from
	// the charge list alone, and fuel data says nothing about its readiness.
	snap := s.cache.Read()
	if len(snap.ChargeStations) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Status: "error", Message: "Dati non ancora disponibili"})
		return
	}

	results := s.engine.FindChargeStations(lat, lng, distance)
	writeJSON(w, http.StatusOK, stationsResponse{
		Status:          "success",
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		TotaleStazioni:  len(snap.ChargeStations),
		StazioniTrovate: len(results),
		Stations:        results,
	})
}

const topStationsCount = 10

func (s *Server) handleTopStations(w http.ResponseWriter, r *http.Request) {
	if err := s.refresher.EnsureFresh(r.Context(), time.Now()); err != nil {
		s.log.Error("refresh failed", "error", err)
	}

	snap := s.cache.Read()
	if !snap.Populated() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Status: "error", Message: "Dati non disponibili"})
		return
	}

	results := s.engine.TopStations(topStationsCount)
	writeJSON(w, http.StatusOK, stationsResponse{
		Status:          "success",
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		TotaleStazioni:  len(snap.Stations),
		StazioniTrovate: len(results),
		Stations:        results,
	})
}

type healthResponse struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	Stations        int    `json:"stations"`
	Prices          int    `json:"prices"`
	ChargeStations  int    `json:"charge_stations"`
	LastRefreshedAt string `json:"last_refreshed_at,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.refresher.EnsureFresh(r.Context(), time.Now()); err != nil {
		s.log.Error("health refresh failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Message: "internal error"})
		return
	}

	snap := s.cache.Read()
	resp := healthResponse{
		Status:         "ok",
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Stations:       len(snap.Stations),
		Prices:         len(snap.Prices),
		ChargeStations: len(snap.ChargeStations),
	}
	if !snap.LastRefreshedAt.IsZero() {
		resp.LastRefreshedAt = snap.LastRefreshedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

type cronResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// handleCron is invoked by external schedulers that treat any non-200 as a
// system fault, so failures are reported in the body instead of the status.
func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	resp := cronResponse{Status: "success", Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if err := s.refresher.EnsureFresh(r.Context(), time.Now()); err != nil {
		s.log.Error("cron refresh failed", "error", err)
		resp.Status = "error"
		resp.Message = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseQueryPoint extracts the query point and radius. A location parameter
// geocoded through Nominatim may replace explicit coordinates.
func (s *Server) parseQueryPoint(r *http.Request) (lat, lng, distance float64, err error) {
	q := r.URL.Query()

	distanceStr := q.Get("distance")
	if distanceStr == "" {
		return 0, 0, 0, errors.New("Parametri lat, lng e distance sono richiesti")
	}
	distance, err = strconv.ParseFloat(distanceStr, 64)
	if err != nil || distance <= 0 {
		return 0, 0, 0, errors.New("Parametro distance non valido")
	}

	if location := q.Get("location"); location != "" {
		lat, lng, err = s.geocodeLocation(location)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("geocoding fallito: %w", err)
		}
		return lat, lng, distance, nil
	}

	latStr, lngStr := q.Get("lat"), q.Get("lng")
	if latStr == "" || lngStr == "" {
		return 0, 0, 0, errors.New("Parametri lat, lng e distance sono richiesti")
	}
	lat, err = strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, 0, errors.New("Parametro lat non valido")
	}
	lng, err = strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return 0, 0, 0, errors.New("Parametro lng non valido")
	}
	return lat, lng, distance, nil
}

func (s *Server) geocodeLocation(location string) (lat, lng float64, err error) {
	gominatim.SetServer(nominatimServer)
	if cached, ok := s.geocache.Get(location); ok {
		result := cached.(gominatim.SearchResult)
		return geocodeResultToLatLon(result)
	}

	query := gominatim.SearchQuery{
		Q: url.QueryEscape(location),
	}
	results, err := query.Get()
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding error: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("no results found for location: %s", location)
	}
	s.geocache.Set(location, results[0], cache.DefaultExpiration)

	return geocodeResultToLatLon(results[0])
}

func geocodeResultToLatLon(result gominatim.SearchResult) (lat, lng float64, err error) {
	lat, err = strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing latitude: %w", err)
	}
	lng, err = strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing longitude: %w", err)
	}
	return lat, lng, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing sensible left to do.
		return
	}
}

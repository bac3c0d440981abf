// Package carbu implements the in-memory dataset cache, the refresh policy
// with tiered fallback, and the radius query engine for the carburapi
// service.
package carbu

import (
	"math"
	"strconv"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"
)

const metersPerKm = 1000.0

// farAwayKm is the sentinel returned for non-finite coordinates so that a
// malformed station never matches a radius but never propagates NaN into
// comparisons either.
const farAwayKm = math.MaxFloat64

// DistanceKm returns the haversine great-circle distance in kilometers
// between two points given in decimal degrees. Non-finite input yields
// farAwayKm rather than NaN; the function never panics.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	if !finite(lat1) || !finite(lon1) || !finite(lat2) || !finite(lon2) {
		return farAwayKm
	}

	d := gpx.Distance2D(lat1, lon1, lat2, lon2, true) / metersPerKm
	if !finite(d) || d < 0 {
		return farAwayKm
	}
	return d
}

// ParseCoord parses a latitude or longitude string, accepting a comma as the
// decimal separator as some ministry exports do.
func ParseCoord(s string) (float64, error) {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if !finite(v) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

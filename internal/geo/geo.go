package geo

import (
	"math"

	"github.com/example/ongopool/internal/models"
)

// Earth radius used for great-circle math, in kilometres.
const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two coordinates
// in kilometres. It ignores the road network entirely.
func HaversineKm(a, b models.Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

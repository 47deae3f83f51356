package geo

import (
	"math"
	"testing"

	"github.com/example/ongopool/internal/models"
)

var (
	ottawa  = models.Coordinate{Lat: 45.4215, Lon: -75.6972}
	toronto = models.Coordinate{Lat: 43.6532, Lon: -79.3832}
)

func TestHaversineZeroOnSamePoint(t *testing.T) {
	if d := HaversineKm(ottawa, ottawa); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineSymmetry(t *testing.T) {
	ab := HaversineKm(ottawa, toronto)
	ba := HaversineKm(toronto, ottawa)
	if ab != ba {
		t.Fatalf("expected symmetric distance, got %f vs %f", ab, ba)
	}
}

func TestHaversineOttawaToronto(t *testing.T) {
	// Road distance is ~450km; great-circle is ~353km.
	d := HaversineKm(ottawa, toronto)
	if d < 345 || d > 360 {
		t.Fatalf("expected ~353km, got %f", d)
	}
}

func TestHaversineAntipodalBound(t *testing.T) {
	a := models.Coordinate{Lat: 0, Lon: 0}
	b := models.Coordinate{Lat: 0, Lon: 180}
	d := HaversineKm(a, b)
	half := math.Pi * earthRadiusKm
	if math.Abs(d-half) > 1 {
		t.Fatalf("expected half circumference %f, got %f", half, d)
	}
}

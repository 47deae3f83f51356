package search

import (
	"fmt"
	"time"

	"github.com/example/ongopool/internal/models"
)

// Defaults applied to missing record fields. Upstream rows routinely
// miss seats or price; a record is only rejected when its id is absent.
const (
	defaultDriverID     = "unknown"
	defaultSeats        = 1
	defaultSeatPrice    = 20.00
	defaultTimeOfDay    = "09:00"
	unknownPickupLabel  = "Unknown Location"
	unknownDropoffLabel = "Unknown Destination"
)

// NormalizeListing converts a raw record into the canonical listing
// shape, resolving the duck-typed ambiguity at this single boundary so
// the matcher never sees mixed shapes.
func NormalizeListing(rec models.ListingRecord) (models.RideListing, error) {
	if rec.ID == "" {
		return models.RideListing{}, fmt.Errorf("%w: listing record missing id", models.ErrInvalidInput)
	}

	l := models.RideListing{
		ID:             rec.ID,
		DriverID:       orDefault(rec.DriverID, defaultDriverID),
		Pickup:         models.Place{Address: orDefault(rec.PickupAddress, unknownPickupLabel)},
		Destination:    models.Place{Address: orDefault(rec.DestinationAddress, unknownDropoffLabel)},
		Date:           orDefault(rec.DepartureDate, tomorrow()),
		Time:           orDefault(rec.DepartureTime, defaultTimeOfDay),
		AvailableSeats: defaultSeats,
		PricePerSeat:   defaultSeatPrice,
		Status:         models.StatusAvailable,
	}

	if c := coordFrom(rec.PickupLat, rec.PickupLng); c != nil {
		l.Pickup.Coord = c
	}
	if c := coordFrom(rec.DestinationLat, rec.DestinationLng); c != nil {
		l.Destination.Coord = c
	}
	for _, s := range rec.Stops {
		stop := models.Stop{Address: s.Address, Order: s.Order}
		stop.Coord = coordFrom(s.Lat, s.Lng)
		l.Stops = append(l.Stops, stop)
	}

	if rec.AvailableSeats != nil && *rec.AvailableSeats >= 0 {
		l.AvailableSeats = *rec.AvailableSeats
	}
	if rec.PricePerSeat != nil && *rec.PricePerSeat > 0 {
		l.PricePerSeat = *rec.PricePerSeat
	}
	if s := models.ListingStatus(rec.Status); s.Valid() {
		l.Status = s
	}
	return l, nil
}

func coordFrom(lat, lon *float64) *models.Coordinate {
	if lat == nil || lon == nil {
		return nil
	}
	c := models.Coordinate{Lat: *lat, Lon: *lon}
	if !c.Valid() {
		return nil
	}
	return &c
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func tomorrow() string {
	return time.Now().AddDate(0, 0, 1).Format("2006-01-02")
}

package models

import "time"

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is inside the usual lat/lon ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// GeocodeSource records which level of the geocoding fallback chain
// produced a coordinate, so callers can surface "estimated" language.
type GeocodeSource string

const (
	GeocodeRemote      GeocodeSource = "remote"
	GeocodeStaticTable GeocodeSource = "static_table"
	GeocodeDefault     GeocodeSource = "default_coordinate"
)

// GeocodeResult is a resolved address together with its degradation level.
type GeocodeResult struct {
	Coord       Coordinate    `json:"coord"`
	DisplayName string        `json:"display_name"`
	Source      GeocodeSource `json:"source"`
}

// RouteQuery asks for a driving route between two addresses with
// optional intermediate stops. The UI caps stops at three; the engine
// processes any count it is given.
type RouteQuery struct {
	StartAddress  string   `json:"start_address"`
	EndAddress    string   `json:"end_address"`
	StopAddresses []string `json:"stop_addresses,omitempty"`
}

// RouteResult is a resolved route. UsedFallback means the distance is a
// great-circle estimate with a per-stop detour penalty, not a road
// network distance.
type RouteResult struct {
	DistanceKm   float64       `json:"distance_km"`
	DurationMin  int           `json:"duration_min"`
	UsedFallback bool          `json:"used_fallback"`
	Waypoints    []Coordinate  `json:"waypoints"`
	StartSource  GeocodeSource `json:"start_source"`
	EndSource    GeocodeSource `json:"end_source"`
}

// PriceRange is the allowed per-seat price band for a route.
type PriceRange struct {
	MinPerSeat     float64 `json:"min_per_seat"`
	MaxPerSeat     float64 `json:"max_per_seat"`
	DefaultPerSeat float64 `json:"default_per_seat"`
}

// EarningsBreakdown splits a passenger payment between the driver and
// the platform service charge.
type EarningsBreakdown struct {
	TotalPassengerPayment float64 `json:"total_passenger_payment"`
	PlatformServiceCharge float64 `json:"platform_service_charge"`
	DriverEarnings        float64 `json:"driver_earnings"`
}

// ListingStatus is the lifecycle state of a posted ride.
type ListingStatus string

const (
	StatusAvailable ListingStatus = "available"
	StatusFull      ListingStatus = "full"
	StatusCancelled ListingStatus = "cancelled"
	StatusCompleted ListingStatus = "completed"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusFull, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Place is an address with its geocoded coordinate when known.
type Place struct {
	Address string      `json:"address"`
	Coord   *Coordinate `json:"coord,omitempty"`
}

// Stop is an intermediate pickup/dropoff point on a listing.
type Stop struct {
	Address string      `json:"address"`
	Coord   *Coordinate `json:"coord,omitempty"`
	Order   int         `json:"order"`
}

// RideListing is a posted ride in canonical form. The engine only reads
// listings for search; seat decrements and status transitions are owned
// by the store behind it.
type RideListing struct {
	ID             string        `json:"id"`
	DriverID       string        `json:"driver_id"`
	Pickup         Place         `json:"pickup"`
	Destination    Place         `json:"destination"`
	Stops          []Stop        `json:"stops,omitempty"`
	Date           string        `json:"date"` // 2006-01-02
	Time           string        `json:"time"` // 15:04
	AvailableSeats int           `json:"available_seats"`
	PricePerSeat   float64       `json:"price_per_seat"`
	Status         ListingStatus `json:"status"`
}

// DepartureTime combines the listing's date and local time-of-day.
// The second return is false when either field does not parse.
func (l RideListing) DepartureTime() (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02T15:04", l.Date+"T"+l.Time, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SearchCriteria is one passenger search invocation.
type SearchCriteria struct {
	PickupAddress      string `json:"pickup_address"`
	DestinationAddress string `json:"destination_address,omitempty"`
	Date               string `json:"date,omitempty"` // 2006-01-02
	Time               string `json:"time,omitempty"` // 15:04
	RequiredSeats      int    `json:"required_seats,omitempty"`
}

// SearchSource records which tier of the search fallback chain served
// a result set.
type SearchSource string

const (
	SearchRemote SearchSource = "remote"
	SearchLocal  SearchSource = "local"
)

// SearchMatch is a listing in a result set, annotated with its distance
// from the searched pickup point when both coordinates are known.
type SearchMatch struct {
	Listing              RideListing `json:"listing"`
	DistanceFromPickupKm float64     `json:"distance_from_pickup_km,omitempty"`
	DistanceKnown        bool        `json:"distance_known"`
}

// SearchResult is an ordered result set. Unavailable=true means both
// the remote and local paths failed; the match list is then empty and
// the caller should show "search unavailable" rather than "no matches".
type SearchResult struct {
	Matches     []SearchMatch `json:"matches"`
	Source      SearchSource  `json:"source"`
	Unavailable bool          `json:"unavailable,omitempty"`
}

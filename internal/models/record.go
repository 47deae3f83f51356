package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ListingRecord is the raw wire/storage shape of a posted ride. Upstream
// producers are inconsistent: pickup and destination arrive either as a
// flat column set (pickup_address, pickup_lat, pickup_lng) or as a
// nested {address, lat, lng} object, ids can be numbers, and numeric
// fields are sometimes encoded as strings. UnmarshalJSON tolerates all
// of those shapes; NormalizeListing (internal/search) turns a record
// into the canonical RideListing.
type ListingRecord struct {
	ID                 string
	DriverID           string
	PickupAddress      string
	PickupLat          *float64
	PickupLng          *float64
	DestinationAddress string
	DestinationLat     *float64
	DestinationLng     *float64
	Stops              []StopRecord
	DepartureDate      string
	DepartureTime      string
	AvailableSeats     *int
	PricePerSeat       *float64
	Status             string
}

// StopRecord is a raw intermediate stop.
type StopRecord struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Order   int      `json:"order"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("listing record: field is neither string nor number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// flexFloat accepts a JSON number or numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("listing record: bad numeric value %q", s)
	}
	*f = flexFloat(v)
	return nil
}

// flexInt accepts a JSON integer or numeric string, truncating floats.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var v flexFloat
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = flexInt(v)
	return nil
}

// flexPlace accepts either a bare address string or an
// {address, lat, lng} object.
type flexPlace struct {
	Address string
	Lat     *flexFloat
	Lng     *flexFloat
}

func (p *flexPlace) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &p.Address)
	}
	var obj struct {
		Address flexString `json:"address"`
		Lat     *flexFloat `json:"lat"`
		Lng     *flexFloat `json:"lng"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.Address = string(obj.Address)
	p.Lat = obj.Lat
	p.Lng = obj.Lng
	return nil
}

func (f *flexFloat) ptr() *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}

func (f *flexInt) ptr() *int {
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

func (r *ListingRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       flexString `json:"id"`
		DriverID flexString `json:"driver_id"`

		// Flat column shape.
		PickupAddress      flexString `json:"pickup_address"`
		PickupLat          *flexFloat `json:"pickup_lat"`
		PickupLng          *flexFloat `json:"pickup_lng"`
		DestinationAddress flexString `json:"destination_address"`
		DestinationLat     *flexFloat `json:"destination_lat"`
		DestinationLng     *flexFloat `json:"destination_lng"`

		// Nested object shape.
		Pickup      *flexPlace `json:"pickup"`
		Destination *flexPlace `json:"destination"`

		Stops []StopRecord `json:"stops"`

		DepartureDate flexString `json:"departure_date"`
		DepartureTime flexString `json:"departure_time"`
		Date          flexString `json:"date"`
		Time          flexString `json:"time"`

		AvailableSeats *flexInt   `json:"available_seats"`
		PricePerSeat   *flexFloat `json:"price_per_seat"`
		Status         flexString `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.ID = string(raw.ID)
	r.DriverID = string(raw.DriverID)
	r.Stops = raw.Stops
	r.AvailableSeats = raw.AvailableSeats.ptr()
	r.PricePerSeat = raw.PricePerSeat.ptr()
	r.Status = string(raw.Status)

	r.PickupAddress = string(raw.PickupAddress)
	r.PickupLat = raw.PickupLat.ptr()
	r.PickupLng = raw.PickupLng.ptr()
	if raw.Pickup != nil {
		if r.PickupAddress == "" {
			r.PickupAddress = raw.Pickup.Address
		}
		if r.PickupLat == nil {
			r.PickupLat = raw.Pickup.Lat.ptr()
		}
		if r.PickupLng == nil {
			r.PickupLng = raw.Pickup.Lng.ptr()
		}
	}

	r.DestinationAddress = string(raw.DestinationAddress)
	r.DestinationLat = raw.DestinationLat.ptr()
	r.DestinationLng = raw.DestinationLng.ptr()
	if raw.Destination != nil {
		if r.DestinationAddress == "" {
			r.DestinationAddress = raw.Destination.Address
		}
		if r.DestinationLat == nil {
			r.DestinationLat = raw.Destination.Lat.ptr()
		}
		if r.DestinationLng == nil {
			r.DestinationLng = raw.Destination.Lng.ptr()
		}
	}

	r.DepartureDate = string(raw.DepartureDate)
	if r.DepartureDate == "" {
		r.DepartureDate = string(raw.Date)
	}
	r.DepartureTime = string(raw.DepartureTime)
	if r.DepartureTime == "" {
		r.DepartureTime = string(raw.Time)
	}
	return nil
}

// MarshalJSON writes the flat column shape, which is what the store and
// the event topic carry.
func (r ListingRecord) MarshalJSON() ([]byte, error) {
	type flat struct {
		ID                 string       `json:"id"`
		DriverID           string       `json:"driver_id,omitempty"`
		PickupAddress      string       `json:"pickup_address,omitempty"`
		PickupLat          *float64     `json:"pickup_lat,omitempty"`
		PickupLng          *float64     `json:"pickup_lng,omitempty"`
		DestinationAddress string       `json:"destination_address,omitempty"`
		DestinationLat     *float64     `json:"destination_lat,omitempty"`
		DestinationLng     *float64     `json:"destination_lng,omitempty"`
		Stops              []StopRecord `json:"stops,omitempty"`
		DepartureDate      string       `json:"departure_date,omitempty"`
		DepartureTime      string       `json:"departure_time,omitempty"`
		AvailableSeats     *int         `json:"available_seats,omitempty"`
		PricePerSeat       *float64     `json:"price_per_seat,omitempty"`
		Status             string       `json:"status,omitempty"`
	}
	return json.Marshal(flat(r))
}

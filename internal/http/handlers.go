package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/example/ongopool/internal/models"
	"github.com/example/ongopool/internal/observability"
	"github.com/example/ongopool/internal/pricing"
	"github.com/example/ongopool/internal/search"
)

const maxListingSeats = 8

type postRideRequest struct {
	DriverID           string   `json:"driver_id"`
	PickupAddress      string   `json:"pickup_address"`
	DestinationAddress string   `json:"destination_address"`
	StopAddresses      []string `json:"stop_addresses,omitempty"`
	Date               string   `json:"date"`
	Time               string   `json:"time"`
	AvailableSeats     int      `json:"available_seats"`
	PricePerSeat       float64  `json:"price_per_seat"`
	RatePerKm          float64  `json:"rate_per_km,omitempty"`
}

// handlePostRide validates and persists a new listing, resolving its
// route so the stored record carries coordinates for later radius
// filtering. Kafka and websocket fan-out are best-effort.
func (s *Server) handlePostRide(w http.ResponseWriter, r *http.Request) {
	var req postRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.DriverID) == "" ||
		strings.TrimSpace(req.PickupAddress) == "" ||
		strings.TrimSpace(req.DestinationAddress) == "" {
		http.Error(w, "driver_id, pickup_address and destination_address are required", http.StatusBadRequest)
		return
	}
	if req.AvailableSeats < 1 || req.AvailableSeats > maxListingSeats {
		http.Error(w, "available_seats must be between 1 and 8", http.StatusBadRequest)
		return
	}
	if req.PricePerSeat <= 0 {
		http.Error(w, "price_per_seat must be > 0", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		http.Error(w, "time must be HH:MM", http.StatusBadRequest)
		return
	}
	if req.RatePerKm != 0 {
		if err := pricing.ValidateRatePerKm(req.RatePerKm); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	rec := models.ListingRecord{
		ID:                 newID(),
		DriverID:           req.DriverID,
		PickupAddress:      req.PickupAddress,
		DestinationAddress: req.DestinationAddress,
		DepartureDate:      req.Date,
		DepartureTime:      req.Time,
		AvailableSeats:     &req.AvailableSeats,
		PricePerSeat:       &req.PricePerSeat,
		Status:             string(models.StatusAvailable),
	}

	// Geocoding never hard-fails here: a coordinate-less listing is
	// still searchable through the fail-open path.
	res, err := s.resolver.ResolveRoute(r.Context(), models.RouteQuery{
		StartAddress:  req.PickupAddress,
		EndAddress:    req.DestinationAddress,
		StopAddresses: req.StopAddresses,
	})
	if err == nil && len(res.Waypoints) >= 2 {
		start, end := res.Waypoints[0], res.Waypoints[len(res.Waypoints)-1]
		rec.PickupLat, rec.PickupLng = &start.Lat, &start.Lon
		rec.DestinationLat, rec.DestinationLng = &end.Lat, &end.Lon
		for i, wp := range res.Waypoints[1 : len(res.Waypoints)-1] {
			addr := ""
			if i < len(req.StopAddresses) {
				addr = req.StopAddresses[i]
			}
			lat, lon := wp.Lat, wp.Lon
			rec.Stops = append(rec.Stops, models.StopRecord{Address: addr, Lat: &lat, Lng: &lon, Order: i + 1})
		}
	}

	if err := s.store.SaveListing(r.Context(), rec); err != nil {
		s.logger.Error("save listing failed", "error", err)
		http.Error(w, "unable to save listing", http.StatusInternalServerError)
		return
	}
	// Keep the snapshot warm even without a consumer in the loop.
	_ = s.snapshot.UpsertListing(r.Context(), rec)
	if s.producer != nil {
		if err := s.producer.PublishListing(rec); err != nil {
			s.logger.Warn("listing event publish failed", "listing_id", rec.ID, "error", err)
		}
	}
	if l, err := search.NormalizeListing(rec); err == nil {
		s.wsreg.BroadcastListing(l)
	}
	observability.ListingsPosted.Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rec)
}

// handleSearchRides runs the two-tier search. Input errors are the only
// 4xx; exhausted fallbacks still answer 200 with the unavailable flag.
func (s *Server) handleSearchRides(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := models.SearchCriteria{
		PickupAddress:      q.Get("pickup"),
		DestinationAddress: q.Get("destination"),
		Date:               q.Get("date"),
		Time:               q.Get("time"),
	}
	if v := q.Get("passengers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "passengers must be a positive integer", http.StatusBadRequest)
			return
		}
		criteria.RequiredSeats = n
	}

	res, err := s.matcher.Search(r.Context(), criteria)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("search failed", "error", err)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}
	if res.Unavailable {
		s.logger.Warn("serving degraded search response", "error", models.ErrSearchUnavailable)
	}
	writeJSON(w, res)
}

type routeQuoteResponse struct {
	Route      models.RouteResult `json:"route"`
	PriceRange models.PriceRange  `json:"price_range"`
}

// handleRouteQuote resolves a route and prices it in one round trip,
// which is exactly what the posting form's price slider needs.
func (s *Server) handleRouteQuote(w http.ResponseWriter, r *http.Request) {
	var q models.RouteQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.resolver.ResolveRoute(r.Context(), q)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// All fallback levels exhausted.
		s.logger.Error("route resolution failed", "error", err)
		http.Error(w, "unable to resolve route", http.StatusBadGateway)
		return
	}

	stops := len(res.Waypoints) - 2
	pr, err := pricing.PriceRangeForDistance(res.DistanceKm, stops)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, routeQuoteResponse{Route: res, PriceRange: pr})
}

type priceRangeResponse struct {
	PriceRange models.PriceRange        `json:"price_range"`
	Earnings   models.EarningsBreakdown `json:"earnings_at_default"`
}

func (s *Server) handlePriceRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	distance, err := strconv.ParseFloat(q.Get("distance_km"), 64)
	if err != nil {
		http.Error(w, "distance_km must be a number", http.StatusBadRequest)
		return
	}
	stops := 0
	if v := q.Get("stops"); v != "" {
		if stops, err = strconv.Atoi(v); err != nil {
			http.Error(w, "stops must be an integer", http.StatusBadRequest)
			return
		}
	}
	seats := 1
	if v := q.Get("seats"); v != "" {
		if seats, err = strconv.Atoi(v); err != nil {
			http.Error(w, "seats must be an integer", http.StatusBadRequest)
			return
		}
	}

	pr, err := pricing.PriceRangeForDistance(distance, stops)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	earnings, err := pricing.DriverEarnings(pr.DefaultPerSeat, seats, pricing.DefaultSeatPricing.ServiceChargeRate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, priceRangeResponse{PriceRange: pr, Earnings: earnings})
}

func (s *Server) handleTierQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	distance, err := strconv.ParseFloat(q.Get("distance_km"), 64)
	if err != nil {
		http.Error(w, "distance_km must be a number", http.StatusBadRequest)
		return
	}
	params := pricing.TierQuoteParams{DistanceKm: distance, Passengers: 1}
	if v := q.Get("passengers"); v != "" {
		if params.Passengers, err = strconv.Atoi(v); err != nil {
			http.Error(w, "passengers must be an integer", http.StatusBadRequest)
			return
		}
	}
	params.Peak = q.Get("peak") == "true"
	params.ApplyCommission = q.Get("commission") == "true"
	params.ApplyMinimum = q.Get("minimum") == "true"

	quote, err := pricing.QuoteTier(params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, quote)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["user_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.wsreg.Add(id, conn)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

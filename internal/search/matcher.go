// Package search implements the two-tier ride search: a remote-filtered
// query first, a full restart against the local snapshot on any remote
// failure. Results are never mixed across tiers and remote errors never
// reach the caller.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/ongopool/internal/geo"
	"github.com/example/ongopool/internal/models"
	"github.com/example/ongopool/internal/observability"
	"github.com/example/ongopool/internal/storage"
)

// DefaultSearchRadiusKm bounds the pickup proximity filter.
const DefaultSearchRadiusKm = 25.0

// AddressGeocoder resolves the searched pickup address into the
// reference point for the radius filter.
type AddressGeocoder interface {
	Geocode(ctx context.Context, address string) (models.GeocodeResult, error)
}

// Matcher runs ride searches. Store is the primary path; Snapshot is
// the fallback data source. Both paths share the same filter and
// ranking rules.
type Matcher struct {
	Store    storage.ListingStore
	Snapshot storage.SnapshotStore
	Geocoder AddressGeocoder
	RadiusKm float64 // 0 means DefaultSearchRadiusKm
	Logger   *slog.Logger
}

// Search returns ranked matches for the criteria. It only errors on
// invalid input; exhausted fallbacks come back as an empty result with
// Unavailable set.
func (m *Matcher) Search(ctx context.Context, c models.SearchCriteria) (models.SearchResult, error) {
	if strings.TrimSpace(c.PickupAddress) == "" {
		return models.SearchResult{}, fmt.Errorf("%w: pickup address is required", models.ErrInvalidInput)
	}
	observability.SearchesTotal.Inc()

	if m.Store != nil {
		res, err := m.searchRemote(ctx, c)
		if err == nil {
			observability.SearchesByPath.WithLabelValues(string(models.SearchRemote)).Inc()
			return res, nil
		}
		m.logWarn("remote search failed, restarting on local snapshot", "error", err)
	}

	if m.Snapshot != nil {
		res, err := m.searchLocal(ctx, c)
		if err == nil {
			observability.SearchesByPath.WithLabelValues(string(models.SearchLocal)).Inc()
			return res, nil
		}
		m.logWarn("local search failed", "error", err)
	}

	// Both tiers exhausted. Non-fatal by contract: the caller gets an
	// empty, flagged result instead of an error.
	observability.SearchesByPath.WithLabelValues("unavailable").Inc()
	return models.SearchResult{Matches: []models.SearchMatch{}, Source: models.SearchLocal, Unavailable: true}, nil
}

func (m *Matcher) searchRemote(ctx context.Context, c models.SearchCriteria) (models.SearchResult, error) {
	recs, err := m.Store.QueryAvailableListings(ctx, storage.ListingFilters{Date: c.Date, MinSeats: c.RequiredSeats})
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("query listings: %w", err)
	}

	listings := make([]models.RideListing, 0, len(recs))
	for _, rec := range recs {
		l, err := NormalizeListing(rec)
		if err != nil {
			// A conversion failure restarts the whole search one tier
			// down rather than returning a partial set.
			return models.SearchResult{}, fmt.Errorf("normalize listing: %w", err)
		}
		listings = append(listings, l)
	}

	matches := m.filterAndRank(ctx, listings, c)
	return models.SearchResult{Matches: matches, Source: models.SearchRemote}, nil
}

func (m *Matcher) searchLocal(ctx context.Context, c models.SearchCriteria) (models.SearchResult, error) {
	recs, err := m.Snapshot.CachedListings(ctx)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("cached listings: %w", err)
	}

	listings := make([]models.RideListing, 0, len(recs))
	for _, rec := range recs {
		l, err := NormalizeListing(rec)
		if err != nil {
			// The snapshot is the last line; skip bad entries instead of
			// failing the whole search.
			m.logWarn("skipping malformed snapshot entry", "error", err)
			continue
		}
		listings = append(listings, l)
	}

	matches := m.filterAndRank(ctx, listings, c)
	return models.SearchResult{Matches: matches, Source: models.SearchLocal}, nil
}

// filterAndRank applies the shared filter conjunction and ranking to a
// normalized listing set.
func (m *Matcher) filterAndRank(ctx context.Context, listings []models.RideListing, c models.SearchCriteria) []models.SearchMatch {
	pickup := m.pickupReference(ctx, c.PickupAddress)
	radius := m.RadiusKm
	if radius <= 0 {
		radius = DefaultSearchRadiusKm
	}

	matches := make([]models.SearchMatch, 0, len(listings))
	for _, l := range listings {
		if l.Status != models.StatusAvailable {
			continue
		}
		if c.Date != "" && l.Date != c.Date {
			continue
		}
		if c.RequiredSeats > 0 && l.AvailableSeats < c.RequiredSeats {
			continue
		}

		match := models.SearchMatch{Listing: l}
		if l.Pickup.Coord != nil {
			d := geo.HaversineKm(pickup, *l.Pickup.Coord)
			if d > radius {
				continue
			}
			match.DistanceFromPickupKm = d
			match.DistanceKnown = true
		}
		// Listings without coordinates stay in: missing geocoding must
		// not hide a ride.
		matches = append(matches, match)
	}

	m.rank(matches, c)
	return matches
}

// pickupReference geocodes the searched pickup address, degrading to
// the default coordinate so the radius filter can always run.
func (m *Matcher) pickupReference(ctx context.Context, address string) models.Coordinate {
	if m.Geocoder != nil {
		if res, err := m.Geocoder.Geocode(ctx, address); err == nil {
			return res.Coord
		} else {
			m.logWarn("pickup geocoding failed, using default reference", "address", address, "error", err)
		}
	}
	return models.Coordinate{Lat: 43.6532, Lon: -79.3832}
}

// rank orders matches by departure proximity to the target time (when
// given), then ascending price, then descending seats. The sort is
// stable so equal listings keep their incoming order.
func (m *Matcher) rank(matches []models.SearchMatch, c models.SearchCriteria) {
	var target time.Time
	var haveTarget bool
	if c.Time != "" {
		date := c.Date
		if date == "" {
			date = time.Now().Format("2006-01-02")
		}
		if t, err := time.ParseInLocation("2006-01-02T15:04", date+"T"+c.Time, time.Local); err == nil {
			target = t
			haveTarget = true
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i].Listing, matches[j].Listing
		if haveTarget {
			at, aok := a.DepartureTime()
			bt, bok := b.DepartureTime()
			if aok && bok {
				ad := absDuration(at.Sub(target))
				bd := absDuration(bt.Sub(target))
				if ad != bd {
					return ad < bd
				}
			} else if aok != bok {
				return aok // parseable departure ranks above unparseable
			}
		}
		if a.PricePerSeat != b.PricePerSeat {
			return a.PricePerSeat < b.PricePerSeat
		}
		return a.AvailableSeats > b.AvailableSeats
	})
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func (m *Matcher) logWarn(msg string, args ...any) {
	if m.Logger != nil {
		m.Logger.Warn(msg, args...)
	}
}

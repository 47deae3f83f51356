package search

import (
	"context"
	"errors"
	"testing"

	"github.com/example/ongopool/internal/models"
	"github.com/example/ongopool/internal/storage"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

// Downtown Toronto and a point ~350km away in Ottawa.
var (
	torontoLat = 43.6532
	torontoLon = -79.3832
	ottawaLat  = 45.4215
	ottawaLon  = -75.6972
)

func record(id string, seats int, price float64) models.ListingRecord {
	return models.ListingRecord{
		ID:                 id,
		DriverID:           "d-" + id,
		PickupAddress:      "Toronto, ON",
		PickupLat:          fptr(torontoLat),
		PickupLng:          fptr(torontoLon),
		DestinationAddress: "Ottawa, ON",
		DepartureDate:      "2026-09-01",
		DepartureTime:      "09:00",
		AvailableSeats:     iptr(seats),
		PricePerSeat:       fptr(price),
		Status:             "available",
	}
}

type fakeStore struct {
	recs []models.ListingRecord
	err  error
}

func (f *fakeStore) QueryAvailableListings(_ context.Context, filters storage.ListingFilters) ([]models.ListingRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.ListingRecord, 0, len(f.recs))
	for _, r := range f.recs {
		if filters.Date != "" && r.DepartureDate != filters.Date {
			continue
		}
		if filters.MinSeats > 0 && (r.AvailableSeats == nil || *r.AvailableSeats < filters.MinSeats) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) SaveListing(context.Context, models.ListingRecord) error   { return nil }
func (f *fakeStore) UpdateListing(context.Context, models.ListingRecord) error { return nil }

type fakeSnapshot struct {
	recs []models.ListingRecord
	err  error
}

func (f *fakeSnapshot) CachedListings(context.Context) ([]models.ListingRecord, error) {
	return f.recs, f.err
}
func (f *fakeSnapshot) UpsertListing(context.Context, models.ListingRecord) error { return nil }

type stubGeocoder struct{ coord models.Coordinate }

func (s *stubGeocoder) Geocode(context.Context, string) (models.GeocodeResult, error) {
	return models.GeocodeResult{Coord: s.coord, Source: models.GeocodeRemote}, nil
}

func newMatcher(store *fakeStore, snap *fakeSnapshot) *Matcher {
	return &Matcher{
		Store:    store,
		Snapshot: snap,
		Geocoder: &stubGeocoder{coord: models.Coordinate{Lat: torontoLat, Lon: torontoLon}},
	}
}

func TestSearchRequiresPickup(t *testing.T) {
	m := newMatcher(&fakeStore{}, &fakeSnapshot{})
	if _, err := m.Search(context.Background(), models.SearchCriteria{}); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSearchRemotePath(t *testing.T) {
	store := &fakeStore{recs: []models.ListingRecord{record("a", 2, 20), record("b", 3, 15)}}
	m := newMatcher(store, &fakeSnapshot{})

	res, err := m.Search(context.Background(), models.SearchCriteria{PickupAddress: "Toronto, ON"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != models.SearchRemote {
		t.Fatalf("expected remote source, got %v", res.Source)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(res.Matches))
	}
	// Cheaper listing first.
	if res.Matches[0].Listing.ID != "b" {
		t.Errorf("expected b first by price, got %s", res.Matches[0].Listing.ID)
	}
	if !res.Matches[0].DistanceKnown || res.Matches[0].DistanceFromPickupKm > 1 {
		t.Errorf("expected near-zero known distance, got %+v", res.Matches[0])
	}
}

func TestSearchDegradesToLocalOnStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("db unreachable")}
	snap := &fakeSnapshot{recs: []models.ListingRecord{record("a", 2, 20)}}
	m := newMatcher(store, snap)

	res, err := m.Search(context.Background(), models.SearchCriteria{PickupAddress: "Toronto, ON", RequiredSeats: 2})
	if err != nil {
		t.Fatalf("remote failure must not surface: %v", err)
	}
	if res.Source != models.SearchLocal {
		t.Fatalf("expected local source, got %v", res.Source)
	}
	if res.Unavailable {
		t.Fatal("local path served; result must not be flagged unavailable")
	}
	if len(res.Matches) != 1 || res.Matches[0].Listing.ID != "a" {
		t.Fatalf("expected the snapshot listing, got %+v", res.Matches)
	}
}

func TestSearchDegradesToLocalOnBadRemoteRecord(t *testing.T) {
	// A record without an id fails normalization; the whole remote pass
	// restarts one tier down rather than returning a partial set.
	bad := record("", 2, 20)
	store := &fakeStore{recs: []models.ListingRecord{record("a", 2, 20), bad}}
	snap := &fakeSnapshot{recs: []models.ListingRecord{record("c", 2, 18)}}
	m := newMatcher(store, snap)

	res, err := m.Search(context.Background(), models.SearchCriteria{PickupAddress: "Toronto, ON"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != models.SearchLocal {
		t.Fatalf("expected local source, got %v", res.Source)
	}
	if len(res.Matches) != 1 || res.Matches[0].Listing.ID != "c" {
		t.Fatalf("expected only the snapshot listing, got %+v", res.Matches)
	}
}

func TestSearchUnavailableWhenBothTiersFail(t *testing.T) {
	m := newMatcher(&fakeStore{err: errors.New("db down")}, &fakeSnapshot{err: errors.New("cache down")})

	res, err := m.Search(context.Background(), models.SearchCriteria{PickupAddress: "Toronto, ON"})
	if err != nil {
		t.Fatalf("exhausted fallbacks must not surface an error: %v", err)
	}
	if !res.Unavailable {
		t.Fatal("expected unavailable flag")
	}
	if len(res.Matches) != 0 {
		t.Fatalf("expected empty matches, got %d", len(res.Matches))
	}
}

func TestSearchFailOpenWithoutCoordinates(t *testing.T) {
	noCoords := record("far", 2, 20)
	noCoords.PickupLat = nil
	noCoords.PickupLng = nil
	store := &fakeStore{recs: []models.ListingRecord{noCoords}}
	m := newMatcher(store, &fakeSnapshot{})
	m.RadiusKm = 0.001 // would exclude anything with a known coordinate

	res, err := m.Search(context.Background(), models.SearchCriteria{PickupAddress: "Toronto, ON"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Matches) != 1 {
		t.Fatalf("listing without coordinates must be included, got %d matches", len(res.Matches))
	}
	if res.Matches[0].DistanceKnown {
		t.Fatal("distance must be unknown for a coordinate-less listing")
	}
}

func TestSearchRadiusFilter(t *testing.T) {
	near := record("near", 2, 20)
	far := record("far", 2, 10)
	far.PickupLat = fptr(ottawaLat)
	far.PickupLng = fptr(ottawaLon)
	store := &fakeStore{recs: []models.ListingRecord{near, far}}
	m := newMatcher(store, &fakeSnapshot{})

	res, err := m.Search(context.Background(), models.SearchCriteria{PickupAddress: "Toronto, ON"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].Listing.ID != "near" {
		t.Fatalf("expected only the near listing inside the default radius, got %+v", res.Matches)
	}
}

func TestSearchFiltersDateSeatsStatus(t *testing.T) {
	otherDate := record("other-date", 4, 15)
	otherDate.DepartureDate = "2026-09-02"
	fewSeats := record("few-seats", 1, 15)
	cancelled := record("cancelled", 4, 15)
	cancelled.Status = "cancelled"
	ok := record("ok", 4, 15)

	snap := &fakeSnapshot{recs: []models.ListingRecord{otherDate, fewSeats, cancelled, ok}}
	m := newMatcher(&fakeStore{err: errors.New("down")}, snap)

	res, err := m.Search(context.Background(), models.SearchCriteria{
		PickupAddress: "Toronto, ON",
		Date:          "2026-09-01",
		RequiredSeats: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].Listing.ID != "ok" {
		t.Fatalf("expected only the fully matching listing, got %+v", res.Matches)
	}
}

func TestRankTimeThenPriceThenSeats(t *testing.T) {
	closeCheap := record("close-cheap", 2, 15)
	closeCheap.DepartureTime = "10:00"
	closeExpensive := record("close-expensive", 2, 30)
	closeExpensive.DepartureTime = "10:00"
	farTime := record("far-time", 2, 5)
	farTime.DepartureTime = "22:00"

	store := &fakeStore{recs: []models.ListingRecord{farTime, closeExpensive, closeCheap}}
	m := newMatcher(store, &fakeSnapshot{})

	res, err := m.Search(context.Background(), models.SearchCriteria{
		PickupAddress: "Toronto, ON",
		Date:          "2026-09-01",
		Time:          "10:00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := []string{res.Matches[0].Listing.ID, res.Matches[1].Listing.ID, res.Matches[2].Listing.ID}
	want := []string{"close-cheap", "close-expensive", "far-time"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank order: expected %v, got %v", want, got)
		}
	}
}

func TestRankSeatsBreakPriceTie(t *testing.T) {
	a := record("a", 2, 20)
	a.DepartureTime = "10:00"
	b := record("b", 4, 20)
	b.DepartureTime = "10:00"

	store := &fakeStore{recs: []models.ListingRecord{a, b}}
	m := newMatcher(store, &fakeSnapshot{})

	res, err := m.Search(context.Background(), models.SearchCriteria{
		PickupAddress: "Toronto, ON",
		Date:          "2026-09-01",
		Time:          "10:00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Matches[0].Listing.ID != "b" {
		t.Fatalf("more seats must break the price tie: expected b first, got %s", res.Matches[0].Listing.ID)
	}
}

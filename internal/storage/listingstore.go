// Package storage holds the listing persistence boundary: a remote
// store queried on the primary search path and a snapshot cache that
// serves as the local fallback data source.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/example/ongopool/internal/models"
)

// ListingFilters narrows a remote listing query. Zero values mean "no
// constraint"; status=available is always implied.
type ListingFilters struct {
	Date     string // 2006-01-02
	MinSeats int
}

// ListingStore is the remote listing collaborator.
type ListingStore interface {
	QueryAvailableListings(ctx context.Context, f ListingFilters) ([]models.ListingRecord, error)
	SaveListing(ctx context.Context, rec models.ListingRecord) error
	UpdateListing(ctx context.Context, rec models.ListingRecord) error
}

// SnapshotStore is the local fallback data source for search.
type SnapshotStore interface {
	CachedListings(ctx context.Context) ([]models.ListingRecord, error)
	UpsertListing(ctx context.Context, rec models.ListingRecord) error
}

// MemoryListingStore keeps listings in process. It backs both
// interfaces: the remote store when no database is configured, and the
// snapshot when no Redis is configured.
type MemoryListingStore struct {
	mu       sync.RWMutex
	listings map[string]models.ListingRecord
}

func NewMemoryListingStore() *MemoryListingStore {
	return &MemoryListingStore{listings: make(map[string]models.ListingRecord)}
}

func (m *MemoryListingStore) SaveListing(_ context.Context, rec models.ListingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[rec.ID] = rec
	return nil
}

func (m *MemoryListingStore) UpdateListing(ctx context.Context, rec models.ListingRecord) error {
	return m.SaveListing(ctx, rec)
}

func (m *MemoryListingStore) UpsertListing(ctx context.Context, rec models.ListingRecord) error {
	return m.SaveListing(ctx, rec)
}

func (m *MemoryListingStore) QueryAvailableListings(_ context.Context, f ListingFilters) ([]models.ListingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ListingRecord, 0, len(m.listings))
	for _, rec := range m.listings {
		if rec.Status != string(models.StatusAvailable) {
			continue
		}
		if f.Date != "" && rec.DepartureDate != f.Date {
			continue
		}
		if f.MinSeats > 0 && (rec.AvailableSeats == nil || *rec.AvailableSeats < f.MinSeats) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryListingStore) CachedListings(_ context.Context) ([]models.ListingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ListingRecord, 0, len(m.listings))
	for _, rec := range m.listings {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

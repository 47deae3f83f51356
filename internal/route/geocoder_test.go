package route

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/ongopool/internal/models"
)

func TestNominatimSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "123 Bank St, Ottawa" {
			t.Errorf("unexpected query %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"45.4111","lon":"-75.6902","display_name":"123 Bank Street, Ottawa, Ontario"}]`))
	}))
	defer srv.Close()

	c := NewNominatimClient(srv.URL, "ca")
	res, err := c.Search(context.Background(), "123 Bank St, Ottawa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Coord.Lat != 45.4111 || res.Coord.Lon != -75.6902 {
		t.Fatalf("bad coordinate: %+v", res.Coord)
	}
	if res.Source != models.GeocodeRemote {
		t.Fatalf("expected remote source, got %v", res.Source)
	}
}

func TestNominatimSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewNominatimClient(srv.URL, "ca")
	if _, err := c.Search(context.Background(), "nowhere at all"); err == nil {
		t.Fatal("expected error on empty result set")
	}
}

type failingRemote struct{}

func (failingRemote) Search(context.Context, string) (models.GeocodeResult, error) {
	return models.GeocodeResult{}, errors.New("network down")
}

func TestGeocodeFallsBackToStaticTable(t *testing.T) {
	g := &Geocoder{Remote: failingRemote{}}
	res, err := g.Geocode(context.Background(), "456 Wellington St, Ottawa, ON")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != models.GeocodeStaticTable {
		t.Fatalf("expected static table source, got %v", res.Source)
	}
	if res.Coord.Lat != 45.4215 || res.Coord.Lon != -75.6972 {
		t.Fatalf("expected Ottawa center, got %+v", res.Coord)
	}
}

func TestGeocodeFallsBackToDefaultCoordinate(t *testing.T) {
	g := &Geocoder{Remote: failingRemote{}}
	res, err := g.Geocode(context.Background(), "42 Nowhere Lane, Atlantis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != models.GeocodeDefault {
		t.Fatalf("expected default source, got %v", res.Source)
	}
	if res.Coord != defaultCoordinate {
		t.Fatalf("expected default coordinate, got %+v", res.Coord)
	}
}

func TestGeocodeRejectsEmptyAddress(t *testing.T) {
	g := &Geocoder{Remote: failingRemote{}}
	if _, err := g.Geocode(context.Background(), "   "); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

type countingRemote struct{ calls int }

func (c *countingRemote) Search(context.Context, string) (models.GeocodeResult, error) {
	c.calls++
	return models.GeocodeResult{Coord: models.Coordinate{Lat: 1, Lon: 2}, Source: models.GeocodeRemote}, nil
}

func TestGeocodeUsesCache(t *testing.T) {
	remote := &countingRemote{}
	g := &Geocoder{Remote: remote, Cache: NewMemoryGeocodeCache(time.Minute)}
	for i := 0; i < 3; i++ {
		if _, err := g.Geocode(context.Background(), "Toronto, ON"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if remote.calls != 1 {
		t.Fatalf("expected a single remote call, got %d", remote.calls)
	}
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryGeocodeCache(time.Nanosecond)
	c.Set(context.Background(), "toronto", models.GeocodeResult{Source: models.GeocodeRemote})
	time.Sleep(time.Millisecond)
	if _, ok := c.Get(context.Background(), "toronto"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

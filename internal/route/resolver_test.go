package route

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/ongopool/internal/geo"
	"github.com/example/ongopool/internal/models"
)

// fakeGeocoder resolves from a fixed map and fails on anything else.
type fakeGeocoder struct{ coords map[string]models.Coordinate }

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (models.GeocodeResult, error) {
	if c, ok := f.coords[address]; ok {
		return models.GeocodeResult{Coord: c, DisplayName: address, Source: models.GeocodeRemote}, nil
	}
	return models.GeocodeResult{}, errors.New("unknown address")
}

type failingRouter struct{}

func (failingRouter) Route(context.Context, []models.Coordinate) (float64, float64, error) {
	return 0, 0, errors.New("routing unavailable")
}

type fixedRouter struct {
	meters  float64
	seconds float64
	gotWPs  []models.Coordinate
}

func (r *fixedRouter) Route(_ context.Context, wps []models.Coordinate) (float64, float64, error) {
	r.gotWPs = wps
	return r.meters, r.seconds, nil
}

var testCoords = map[string]models.Coordinate{
	"Ottawa, ON":   {Lat: 45.4215, Lon: -75.6972},
	"Toronto, ON":  {Lat: 43.6532, Lon: -79.3832},
	"Kingston, ON": {Lat: 44.2312, Lon: -76.4860},
	"Belleville":   {Lat: 44.1628, Lon: -77.3832},
}

func TestResolveRouteUsesRouter(t *testing.T) {
	router := &fixedRouter{meters: 450000, seconds: 16200}
	r := &Resolver{Geocoder: &fakeGeocoder{coords: testCoords}, Router: router}

	res, err := r.ResolveRoute(context.Background(), models.RouteQuery{
		StartAddress:  "Ottawa, ON",
		EndAddress:    "Toronto, ON",
		StopAddresses: []string{"Kingston, ON"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.UsedFallback {
		t.Fatal("expected road-network result, got fallback")
	}
	if res.DistanceKm != 450 {
		t.Errorf("distance: expected 450, got %v", res.DistanceKm)
	}
	if res.DurationMin != 270 {
		t.Errorf("duration: expected 270, got %v", res.DurationMin)
	}
	if len(router.gotWPs) != 3 {
		t.Fatalf("expected 3 waypoints through the router, got %d", len(router.gotWPs))
	}
	if router.gotWPs[1] != testCoords["Kingston, ON"] {
		t.Errorf("stop should be the middle waypoint, got %+v", router.gotWPs[1])
	}
}

func TestResolveRouteFallbackInflatesPerStop(t *testing.T) {
	r := &Resolver{Geocoder: &fakeGeocoder{coords: testCoords}, Router: failingRouter{}}

	res, err := r.ResolveRoute(context.Background(), models.RouteQuery{
		StartAddress:  "Ottawa, ON",
		EndAddress:    "Toronto, ON",
		StopAddresses: []string{"Kingston, ON", "Belleville"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.UsedFallback {
		t.Fatal("expected fallback flag")
	}
	direct := geo.HaversineKm(testCoords["Ottawa, ON"], testCoords["Toronto, ON"])
	want := direct * 1.2 // two resolved stops
	if math.Abs(res.DistanceKm-want) > 1e-9 {
		t.Errorf("distance: expected %v, got %v", want, res.DistanceKm)
	}
	if want := int(math.Round(res.DistanceKm * 1.5)); res.DurationMin != want {
		t.Errorf("duration: expected %d, got %d", want, res.DurationMin)
	}
}

func TestResolveRouteSkipsFailedStops(t *testing.T) {
	r := &Resolver{Geocoder: &fakeGeocoder{coords: testCoords}, Router: failingRouter{}}

	res, err := r.ResolveRoute(context.Background(), models.RouteQuery{
		StartAddress:  "Ottawa, ON",
		EndAddress:    "Toronto, ON",
		StopAddresses: []string{"Middle of Nowhere", " "},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Neither stop resolved, so no detour inflation and two waypoints.
	direct := geo.HaversineKm(testCoords["Ottawa, ON"], testCoords["Toronto, ON"])
	if math.Abs(res.DistanceKm-direct) > 1e-9 {
		t.Errorf("distance: expected %v, got %v", direct, res.DistanceKm)
	}
	if len(res.Waypoints) != 2 {
		t.Errorf("expected 2 waypoints, got %d", len(res.Waypoints))
	}
}

func TestResolveRouteTerminalOnUngeocodableStart(t *testing.T) {
	r := &Resolver{Geocoder: &fakeGeocoder{coords: testCoords}, Router: failingRouter{}}
	_, err := r.ResolveRoute(context.Background(), models.RouteQuery{
		StartAddress: "Atlantis",
		EndAddress:   "Toronto, ON",
	})
	if !errors.Is(err, models.ErrRouteResolutionFailed) {
		t.Fatalf("expected ErrRouteResolutionFailed, got %v", err)
	}
}

func TestResolveRouteRejectsBlankAddresses(t *testing.T) {
	r := &Resolver{Geocoder: &fakeGeocoder{coords: testCoords}}
	_, err := r.ResolveRoute(context.Background(), models.RouteQuery{StartAddress: " ", EndAddress: "Toronto, ON"})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestOSRMClientRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"Ok","routes":[{"distance":450123.4,"duration":16200.5}]}`))
	}))
	defer srv.Close()

	c := NewOSRMClient(srv.URL)
	meters, seconds, err := c.Route(context.Background(), []models.Coordinate{
		{Lat: 45.4215, Lon: -75.6972},
		{Lat: 43.6532, Lon: -79.3832},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meters != 450123.4 || seconds != 16200.5 {
		t.Fatalf("bad route values: %v %v", meters, seconds)
	}
}

func TestOSRMClientNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	}))
	defer srv.Close()

	c := NewOSRMClient(srv.URL)
	_, _, err := c.Route(context.Background(), []models.Coordinate{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}})
	if err == nil {
		t.Fatal("expected error for NoRoute response")
	}
}

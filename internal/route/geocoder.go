package route

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/ongopool/internal/models"
	"github.com/example/ongopool/internal/observability"
)

// RemoteGeocoder is the external address-search collaborator.
type RemoteGeocoder interface {
	Search(ctx context.Context, address string) (models.GeocodeResult, error)
}

// NominatimClient geocodes against a Nominatim-style search API.
type NominatimClient struct {
	Endpoint    string
	CountryCode string
	Client      *http.Client
}

func NewNominatimClient(endpoint, countryCode string) *NominatimClient {
	return &NominatimClient{
		Endpoint:    strings.TrimRight(endpoint, "/"),
		CountryCode: countryCode,
		Client:      &http.Client{Timeout: 2 * time.Second},
	}
}

// Search returns the best match for the address, or an error when the
// service fails or finds nothing.
func (n *NominatimClient) Search(ctx context.Context, address string) (models.GeocodeResult, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", address)
	q.Set("limit", "1")
	if n.CountryCode != "" {
		q.Set("countrycodes", n.CountryCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.Endpoint+"/search?"+q.Encode(), nil)
	if err != nil {
		return models.GeocodeResult{}, err
	}
	resp, err := n.Client.Do(req)
	if err != nil {
		return models.GeocodeResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.GeocodeResult{}, fmt.Errorf("geocoding status %d", resp.StatusCode)
	}

	// Nominatim encodes lat/lon as strings.
	var out []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.GeocodeResult{}, err
	}
	if len(out) == 0 {
		return models.GeocodeResult{}, fmt.Errorf("address not found: %q", address)
	}
	lat, err := strconv.ParseFloat(out[0].Lat, 64)
	if err != nil {
		return models.GeocodeResult{}, fmt.Errorf("bad lat in geocoding response: %w", err)
	}
	lon, err := strconv.ParseFloat(out[0].Lon, 64)
	if err != nil {
		return models.GeocodeResult{}, fmt.Errorf("bad lon in geocoding response: %w", err)
	}
	return models.GeocodeResult{
		Coord:       models.Coordinate{Lat: lat, Lon: lon},
		DisplayName: out[0].DisplayName,
		Source:      models.GeocodeRemote,
	}, nil
}

// staticCityTable is the second fallback level: well-known city centers
// matched by substring against the lowercased address.
var staticCityTable = []struct {
	name  string
	coord models.Coordinate
}{
	{"toronto", models.Coordinate{Lat: 43.6532, Lon: -79.3832}},
	{"ottawa", models.Coordinate{Lat: 45.4215, Lon: -75.6972}},
	{"montreal", models.Coordinate{Lat: 45.5017, Lon: -73.5673}},
	{"vancouver", models.Coordinate{Lat: 49.2827, Lon: -123.1207}},
	{"calgary", models.Coordinate{Lat: 51.0447, Lon: -114.0719}},
	{"halifax", models.Coordinate{Lat: 44.6488, Lon: -63.5752}},
}

// defaultCoordinate is the final fallback level (Toronto city center).
var defaultCoordinate = models.Coordinate{Lat: 43.6532, Lon: -79.3832}

// GeocodeCache caches resolved addresses.
type GeocodeCache interface {
	Get(ctx context.Context, address string) (models.GeocodeResult, bool)
	Set(ctx context.Context, address string, res models.GeocodeResult)
}

// Geocoder resolves an address through a three-level fallback chain:
// remote search, static city table, fixed default coordinate. Each
// level is distinguishable through GeocodeResult.Source. For non-empty
// input Geocode never fails; only the empty address is an error.
type Geocoder struct {
	Remote RemoteGeocoder // nil disables the remote level
	Cache  GeocodeCache   // nil disables caching
	Logger *slog.Logger
}

func (g *Geocoder) Geocode(ctx context.Context, address string) (models.GeocodeResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return models.GeocodeResult{}, fmt.Errorf("%w: empty address", models.ErrInvalidInput)
	}
	key := strings.ToLower(address)

	if g.Cache != nil {
		if res, ok := g.Cache.Get(ctx, key); ok {
			return res, nil
		}
	}

	if g.Remote != nil {
		res, err := g.Remote.Search(ctx, address)
		if err == nil {
			observability.GeocodeRequests.WithLabelValues(string(models.GeocodeRemote)).Inc()
			if g.Cache != nil {
				g.Cache.Set(ctx, key, res)
			}
			return res, nil
		}
		if g.Logger != nil {
			g.Logger.Warn("remote geocoding failed, degrading", "address", address, "error", err)
		}
	}

	for _, city := range staticCityTable {
		if strings.Contains(key, city.name) {
			observability.GeocodeRequests.WithLabelValues(string(models.GeocodeStaticTable)).Inc()
			return models.GeocodeResult{Coord: city.coord, DisplayName: address, Source: models.GeocodeStaticTable}, nil
		}
	}

	observability.GeocodeRequests.WithLabelValues(string(models.GeocodeDefault)).Inc()
	return models.GeocodeResult{Coord: defaultCoordinate, DisplayName: address, Source: models.GeocodeDefault}, nil
}

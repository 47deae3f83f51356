package route

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/ongopool/internal/models"
)

// RouteClient is the routing collaborator used by the resolver.
type RouteClient interface {
	// Route returns the driving distance in meters and duration in
	// seconds across the ordered waypoints.
	Route(ctx context.Context, waypoints []models.Coordinate) (distanceMeters, durationSeconds float64, err error)
}

// OSRMClient performs route lookups against an OSRM HTTP server.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client
}

func NewOSRMClient(endpoint string) *OSRMClient {
	return &OSRMClient{Endpoint: strings.TrimRight(endpoint, "/"), Client: &http.Client{Timeout: 2 * time.Second}}
}

// Route queries /route/v1/driving/{lon,lat;...}?overview=false across
// all waypoints, stops included.
func (o *OSRMClient) Route(ctx context.Context, waypoints []models.Coordinate) (float64, float64, error) {
	if len(waypoints) < 2 {
		return 0, 0, fmt.Errorf("%w: route needs at least two waypoints", models.ErrInvalidInput)
	}
	parts := make([]string, 0, len(waypoints))
	for _, wp := range waypoints {
		parts = append(parts, fmt.Sprintf("%.6f,%.6f", wp.Lon, wp.Lat))
	}
	url := fmt.Sprintf("%s/route/v1/driving/%s?overview=false&steps=false", o.Endpoint, strings.Join(parts, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("osrm status %d", resp.StatusCode)
	}

	var out struct {
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"routes"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, 0, err
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return 0, 0, fmt.Errorf("osrm no route: %v", out.Code)
	}
	return out.Routes[0].Distance, out.Routes[0].Duration, nil
}

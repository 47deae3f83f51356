// Package route resolves addresses into coordinates and driving
// distances. Every external failure degrades to a best-effort estimate
// with the degradation level recorded on the result; only an
// un-geocodable start or end address is terminal.
package route

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/example/ongopool/internal/geo"
	"github.com/example/ongopool/internal/models"
	"github.com/example/ongopool/internal/observability"
)

const (
	// Detour penalty applied to the great-circle fallback per resolved stop.
	stopDetourFactor = 0.10
	// Fallback duration estimate, minutes per km.
	fallbackMinPerKm = 1.5
)

// AddressGeocoder is what the resolver needs from the geocoding side.
type AddressGeocoder interface {
	Geocode(ctx context.Context, address string) (models.GeocodeResult, error)
}

// Resolver turns a RouteQuery into a RouteResult, preferring the
// routing collaborator and falling back to haversine with a per-stop
// detour penalty.
type Resolver struct {
	Geocoder AddressGeocoder
	Router   RouteClient // nil forces the haversine fallback
	// StopDelay is the courtesy throttle between stop geocoding calls,
	// to stay friendly with free-tier geocoding services.
	StopDelay time.Duration
	Logger    *slog.Logger
}

// ResolveRoute geocodes start, end and stops, then asks the router for
// a road-network distance. Stop geocoding failures skip the stop and
// never abort the route. Routing failures fall back to a great-circle
// estimate inflated 10% per resolved stop, flagged UsedFallback.
func (r *Resolver) ResolveRoute(ctx context.Context, q models.RouteQuery) (models.RouteResult, error) {
	if strings.TrimSpace(q.StartAddress) == "" || strings.TrimSpace(q.EndAddress) == "" {
		return models.RouteResult{}, fmt.Errorf("%w: start and end addresses are required", models.ErrInvalidInput)
	}

	start, err := r.Geocoder.Geocode(ctx, q.StartAddress)
	if err != nil {
		return models.RouteResult{}, fmt.Errorf("%w: start address %q: %v", models.ErrRouteResolutionFailed, q.StartAddress, err)
	}
	end, err := r.Geocoder.Geocode(ctx, q.EndAddress)
	if err != nil {
		return models.RouteResult{}, fmt.Errorf("%w: end address %q: %v", models.ErrRouteResolutionFailed, q.EndAddress, err)
	}

	stops := make([]models.Coordinate, 0, len(q.StopAddresses))
	for _, addr := range q.StopAddresses {
		if strings.TrimSpace(addr) == "" {
			continue
		}
		if r.StopDelay > 0 {
			select {
			case <-ctx.Done():
				return models.RouteResult{}, ctx.Err()
			case <-time.After(r.StopDelay):
			}
		}
		res, err := r.Geocoder.Geocode(ctx, addr)
		if err != nil {
			if r.Logger != nil {
				r.Logger.Warn("skipping un-geocodable stop", "address", addr, "error", err)
			}
			continue
		}
		stops = append(stops, res.Coord)
	}

	waypoints := make([]models.Coordinate, 0, len(stops)+2)
	waypoints = append(waypoints, start.Coord)
	waypoints = append(waypoints, stops...)
	waypoints = append(waypoints, end.Coord)

	if r.Router != nil {
		meters, seconds, err := r.Router.Route(ctx, waypoints)
		if err == nil {
			return models.RouteResult{
				DistanceKm:  meters / 1000,
				DurationMin: int(math.Round(seconds / 60)),
				Waypoints:   waypoints,
				StartSource: start.Source,
				EndSource:   end.Source,
			}, nil
		}
		if r.Logger != nil {
			r.Logger.Warn("routing service failed, using direct distance", "error", err)
		}
	}

	observability.RouteFallbacks.Inc()
	distance := geo.HaversineKm(start.Coord, end.Coord)
	distance *= 1 + float64(len(stops))*stopDetourFactor
	return models.RouteResult{
		DistanceKm:   distance,
		DurationMin:  int(math.Round(distance * fallbackMinPerKm)),
		UsedFallback: true,
		Waypoints:    waypoints,
		StartSource:  start.Source,
		EndSource:    end.Source,
	}, nil
}

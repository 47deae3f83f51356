// Package pricing implements the two OnGoPool pricing policies: the
// per-seat formula that backs the driver-facing price slider, and the
// distance-tiered table configured from the admin dashboard. The two
// are independent surfaces; neither formula feeds the other.
package pricing

import (
	"fmt"
	"math"

	"github.com/example/ongopool/internal/models"
)

// SeatPricingPolicy holds the constants for the per-seat formula. The
// per-km rates must be ordered min <= default <= max; Validate enforces
// that so PriceRangeForDistance always yields a monotone range even if
// the policy is reconfigured.
type SeatPricingPolicy struct {
	BaseFare          float64
	StopFee           float64
	MinTotalFare      float64
	MinRatePerKm      float64
	DefaultRatePerKm  float64
	MaxRatePerKm      float64
	ServiceChargeRate float64
}

// DefaultSeatPricing is the production policy.
var DefaultSeatPricing = SeatPricingPolicy{
	BaseFare:          2.00,
	StopFee:           0.50,
	MinTotalFare:      5.00,
	MinRatePerKm:      0.15,
	DefaultRatePerKm:  0.20,
	MaxRatePerKm:      0.25,
	ServiceChargeRate: 0.15,
}

// Validate checks that every constant is finite and that the rate band
// is ordered.
func (p SeatPricingPolicy) Validate() error {
	for _, v := range []float64{p.BaseFare, p.StopFee, p.MinTotalFare, p.MinRatePerKm, p.DefaultRatePerKm, p.MaxRatePerKm, p.ServiceChargeRate} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: non-finite or negative pricing constant", models.ErrInvalidInput)
		}
	}
	if p.MinRatePerKm > p.DefaultRatePerKm || p.DefaultRatePerKm > p.MaxRatePerKm {
		return fmt.Errorf("%w: rate band must be ordered min <= default <= max", models.ErrInvalidInput)
	}
	if p.ServiceChargeRate > 1 {
		return fmt.Errorf("%w: service charge rate must be in [0,1]", models.ErrInvalidInput)
	}
	return nil
}

// SeatPrice computes the per-seat price for a distance at the given
// per-km rate, applying the minimum total fare floor.
func (p SeatPricingPolicy) SeatPrice(distanceKm, ratePerKm float64, stopCount int) float64 {
	total := p.BaseFare + distanceKm*ratePerKm + float64(stopCount)*p.StopFee
	return math.Max(total, p.MinTotalFare)
}

// PriceRangeForDistance computes the allowed per-seat band for a route.
// Distance must be strictly positive; callers get ErrInvalidInput
// otherwise rather than a silently corrected value.
func (p SeatPricingPolicy) PriceRangeForDistance(distanceKm float64, stopCount int) (models.PriceRange, error) {
	if err := p.Validate(); err != nil {
		return models.PriceRange{}, err
	}
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm <= 0 {
		return models.PriceRange{}, fmt.Errorf("%w: distance must be > 0, got %v", models.ErrInvalidInput, distanceKm)
	}
	if stopCount < 0 {
		return models.PriceRange{}, fmt.Errorf("%w: stop count must be >= 0, got %d", models.ErrInvalidInput, stopCount)
	}
	return models.PriceRange{
		MinPerSeat:     p.SeatPrice(distanceKm, p.MinRatePerKm, stopCount),
		DefaultPerSeat: p.SeatPrice(distanceKm, p.DefaultRatePerKm, stopCount),
		MaxPerSeat:     p.SeatPrice(distanceKm, p.MaxRatePerKm, stopCount),
	}, nil
}

// DriverEarnings splits a total passenger payment between the platform
// service charge and the driver's share.
func (p SeatPricingPolicy) DriverEarnings(seatPrice float64, seatCount int, serviceChargeRate float64) (models.EarningsBreakdown, error) {
	if math.IsNaN(seatPrice) || math.IsInf(seatPrice, 0) || seatPrice <= 0 {
		return models.EarningsBreakdown{}, fmt.Errorf("%w: seat price must be > 0", models.ErrInvalidInput)
	}
	if seatCount < 1 {
		return models.EarningsBreakdown{}, fmt.Errorf("%w: seat count must be >= 1", models.ErrInvalidInput)
	}
	if math.IsNaN(serviceChargeRate) || serviceChargeRate < 0 || serviceChargeRate > 1 {
		return models.EarningsBreakdown{}, fmt.Errorf("%w: service charge rate must be in [0,1]", models.ErrInvalidInput)
	}
	total := seatPrice * float64(seatCount)
	charge := total * serviceChargeRate
	return models.EarningsBreakdown{
		TotalPassengerPayment: total,
		PlatformServiceCharge: charge,
		DriverEarnings:        total - charge,
	}, nil
}

// ValidateRatePerKm checks a driver-chosen per-km rate: it must be
// finite, inside the policy's band, and carry at most two decimal
// digits.
func (p SeatPricingPolicy) ValidateRatePerKm(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("%w: rate must be finite", models.ErrInvalidInput)
	}
	if rate < p.MinRatePerKm || rate > p.MaxRatePerKm {
		return fmt.Errorf("%w: %.4f not in [%.2f, %.2f]", models.ErrRateOutOfRange, rate, p.MinRatePerKm, p.MaxRatePerKm)
	}
	cents := rate * 100
	if math.Abs(cents-math.Round(cents)) > 1e-9 {
		return fmt.Errorf("%w: %v", models.ErrInvalidPrecision, rate)
	}
	return nil
}

// Package-level helpers bound to the production policy.

func PriceRangeForDistance(distanceKm float64, stopCount int) (models.PriceRange, error) {
	return DefaultSeatPricing.PriceRangeForDistance(distanceKm, stopCount)
}

func DriverEarnings(seatPrice float64, seatCount int, serviceChargeRate float64) (models.EarningsBreakdown, error) {
	return DefaultSeatPricing.DriverEarnings(seatPrice, seatCount, serviceChargeRate)
}

func ValidateRatePerKm(rate float64) error {
	return DefaultSeatPricing.ValidateRatePerKm(rate)
}

package pricing

import (
	"fmt"
	"math"

	"github.com/example/ongopool/internal/models"
)

// DistanceTier is one row of the admin-configured tiered pricing table.
// Tier bands are whole-km contiguous: 0-50, 51-150, 151+.
type DistanceTier struct {
	Tier         int     `json:"tier"`
	Name         string  `json:"name"`
	MinRatePerKm float64 `json:"min_rate_per_km"`
	MaxRatePerKm float64 `json:"max_rate_per_km"`
}

var distanceTiers = []struct {
	upToKm float64 // inclusive upper bound, +Inf for the last tier
	tier   DistanceTier
}{
	{50, DistanceTier{Tier: 1, Name: "Short Distance (0-50km)", MinRatePerKm: 0.18, MaxRatePerKm: 0.25}},
	{150, DistanceTier{Tier: 2, Name: "Medium Distance (51-150km)", MinRatePerKm: 0.15, MaxRatePerKm: 0.22}},
	{math.Inf(1), DistanceTier{Tier: 3, Name: "Long Distance (151km+)", MinRatePerKm: 0.12, MaxRatePerKm: 0.20}},
}

// TieredDistancePricing selects the tier covering the given distance.
// This is a separate policy from the per-seat formula in this package;
// the two are used by different surfaces and are never reconciled.
func TieredDistancePricing(distanceKm float64) (DistanceTier, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 {
		return DistanceTier{}, fmt.Errorf("%w: distance must be >= 0 and finite, got %v", models.ErrInvalidInput, distanceKm)
	}
	for _, row := range distanceTiers {
		if distanceKm <= row.upToKm {
			return row.tier, nil
		}
	}
	// Unreachable: the last band is open-ended.
	return distanceTiers[len(distanceTiers)-1].tier, nil
}

// TierQuoteParams configures a tier-table quote. The peak multiplier
// and commission stack multiplicatively on top of the tier band, and a
// minimum total can floor the result, all at the caller's discretion.
type TierQuoteParams struct {
	DistanceKm float64
	Passengers int

	Peak           bool
	PeakMultiplier float64 // 0 means the 1.5 default

	ApplyCommission bool
	CommissionRate  float64 // fraction, 0 means the 0.15 default

	ApplyMinimum  bool
	MinimumAmount float64 // 0 means the 5.00 default
}

// TierQuote is a total-price band for a whole ride under the tier table.
type TierQuote struct {
	Tier     DistanceTier `json:"tier"`
	MinTotal float64      `json:"min_total"`
	MaxTotal float64      `json:"max_total"`
}

// QuoteTier prices a ride from the tier table: distance x passengers x
// per-km band, then the optional peak multiplier, commission markup and
// minimum floor in that order.
func QuoteTier(p TierQuoteParams) (TierQuote, error) {
	tier, err := TieredDistancePricing(p.DistanceKm)
	if err != nil {
		return TierQuote{}, err
	}
	if p.Passengers < 1 {
		return TierQuote{}, fmt.Errorf("%w: passengers must be >= 1, got %d", models.ErrInvalidInput, p.Passengers)
	}

	minTotal := p.DistanceKm * float64(p.Passengers) * tier.MinRatePerKm
	maxTotal := p.DistanceKm * float64(p.Passengers) * tier.MaxRatePerKm

	if p.Peak {
		mult := p.PeakMultiplier
		if mult <= 0 {
			mult = 1.5
		}
		minTotal *= mult
		maxTotal *= mult
	}
	if p.ApplyCommission {
		rate := p.CommissionRate
		if rate <= 0 {
			rate = 0.15
		}
		minTotal *= 1 + rate
		maxTotal *= 1 + rate
	}
	if p.ApplyMinimum {
		floor := p.MinimumAmount
		if floor <= 0 {
			floor = 5.00
		}
		minTotal = math.Max(minTotal, floor)
		maxTotal = math.Max(maxTotal, floor)
	}

	return TierQuote{Tier: tier, MinTotal: minTotal, MaxTotal: maxTotal}, nil
}

// Package freshness derives read-side metrics from a listing snapshot.
// Everything here is a pure function of the record and a clock value, so
// it can be unit tested without a storage engine.
package freshness

import (
	"math"
	"time"

	"agrimarket-backend/internal/domain"
)

// Freshness bands, ordered freshest first.
const (
	VeryFresh = "very_fresh"
	Fresh     = "fresh"
	Moderate  = "moderate"
	Aging     = "aging"
	Expired   = "expired"
)

// DefaultShelfLifeDays applies when a listing has no configured shelf life.
const DefaultShelfLifeDays = 7

// DaysSinceHarvest returns the whole days between now and the harvest
// date, rounded up. The difference is taken absolute, so a future-dated
// harvest still yields a positive count.
func DaysSinceHarvest(l domain.Listing, now time.Time) int {
	diff := now.Sub(l.HarvestDate)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(diff.Hours() / 24))
}

// TotalValue is the listed amount times the unit price.
func TotalValue(l domain.Listing) float64 {
	return l.QuantityAmount * l.PricePerUnit
}

// AverageRating is the mean review rating rounded to one decimal, or 0
// when the listing has no reviews.
func AverageRating(l domain.Listing) float64 {
	if len(l.Reviews) == 0 {
		return 0
	}
	total := 0
	for _, r := range l.Reviews {
		total += r.Rating
	}
	mean := float64(total) / float64(len(l.Reviews))
	return math.Round(mean*10) / 10
}

// Status classifies the listing's age against its shelf life. Band upper
// bounds are inclusive, so a tie resolves to the fresher band.
func Status(l domain.Listing, now time.Time) string {
	shelf := float64(DefaultShelfLifeDays)
	if l.ShelfLifeDays != nil && *l.ShelfLifeDays > 0 {
		shelf = float64(*l.ShelfLifeDays)
	}
	days := float64(DaysSinceHarvest(l, now))
	switch {
	case days <= 0.25*shelf:
		return VeryFresh
	case days <= 0.50*shelf:
		return Fresh
	case days <= 0.75*shelf:
		return Moderate
	case days <= shelf:
		return Aging
	default:
		return Expired
	}
}

// Snapshot bundles the derived metrics for API responses.
type Snapshot struct {
	DaysSinceHarvest int     `json:"days_since_harvest"`
	TotalValue       float64 `json:"total_value"`
	AverageRating    float64 `json:"average_rating"`
	FreshnessStatus  string  `json:"freshness_status"`
}

// Derive computes all derived metrics for a listing at once.
func Derive(l domain.Listing, now time.Time) Snapshot {
	return Snapshot{
		DaysSinceHarvest: DaysSinceHarvest(l, now),
		TotalValue:       TotalValue(l),
		AverageRating:    AverageRating(l),
		FreshnessStatus:  Status(l, now),
	}
}

// Package match ranks rental listings against a tenant profile.
//
// Scoring is a pure additive bucket function with human-readable reasons, the
// same explainable-scoring shape used by the verification decision ladder.
package match

import (
	"fmt"
	"sort"
	"time"
)

// Listing is the subset of a provider's listing record the scorer reads.
// Listings are never mutated.
type Listing struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Price         float64   `json:"price"`
	City          string    `json:"city"`
	Bedrooms      int       `json:"bedrooms"`
	AvailableFrom time.Time `json:"available_from,omitzero"`
}

// TenantProfile holds the tenant's search preferences. Bedrooms of zero and
// a zero MoveInDate mean "no preference".
type TenantProfile struct {
	Email           string    `json:"email"`
	BudgetMin       float64   `json:"budget_min"`
	BudgetMax       float64   `json:"budget_max"`
	PreferredCities []string  `json:"preferred_cities"`
	Bedrooms        int       `json:"bedrooms,omitempty"`
	MoveInDate      time.Time `json:"move_in_date,omitzero"`
}

// Result pairs a listing with its score and the reasons behind it, in
// evaluation order.
type Result struct {
	Listing Listing  `json:"listing"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Score evaluates a single listing against the tenant's preferences.
// Buckets, in order: budget fit (40, or 20 below budget), preferred city
// (30), bedroom fit (20 exact, 10 when the listing has more), availability
// before the move-in date (10).
func Score(tenant TenantProfile, listing Listing) Result {
	score := 0
	reasons := []string{}

	switch {
	case listing.Price >= tenant.BudgetMin && listing.Price <= tenant.BudgetMax:
		score += 40
		reasons = append(reasons, "Within budget")
	case listing.Price < tenant.BudgetMin:
		score += 20
		reasons = append(reasons, "Below budget")
	}

	for _, city := range tenant.PreferredCities {
		if city == listing.City {
			score += 30
			reasons = append(reasons, "In preferred city: "+listing.City)
			break
		}
	}

	if tenant.Bedrooms > 0 {
		switch {
		case listing.Bedrooms == tenant.Bedrooms:
			score += 20
			reasons = append(reasons, fmt.Sprintf("%d bedrooms match", listing.Bedrooms))
		case listing.Bedrooms > tenant.Bedrooms:
			score += 10
			reasons = append(reasons, "More bedrooms than requested")
		}
	}

	if !listing.AvailableFrom.IsZero() && !tenant.MoveInDate.IsZero() &&
		!listing.AvailableFrom.After(tenant.MoveInDate) {
		score += 10
		reasons = append(reasons, "Available when needed")
	}

	return Result{Listing: listing, Score: score, Reasons: reasons}
}

// Rank scores every listing and returns the results sorted descending by
// score. The sort is stable, so equally-scored listings keep their input
// order.
func Rank(tenant TenantProfile, listings []Listing) []Result {
	results := make([]Result, 0, len(listings))
	for _, l := range listings {
		results = append(results, Score(tenant, l))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

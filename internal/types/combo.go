package types

import (
	"time"

	"github.com/google/uuid"
)

// Combo is a pre-built package (hotel + tours + transfers) the matcher can
// recommend against a wizard session. Advisory only.
type Combo struct {
	ID              uuid.UUID   `json:"id"`
	Title           string      `json:"title"`
	Description     *string     `json:"description,omitempty"`
	MinDays         int         `json:"min_days"`
	MaxDays         int         `json:"max_days"`
	BudgetTier      BudgetTier  `json:"budget_tier"`
	TravelStyle     TravelStyle `json:"travel_style"`
	FamilyFriendly  bool        `json:"family_friendly"`
	BasePriceFils   int64       `json:"base_price_fils"`
	DiscountPercent float64     `json:"discount_percent"`
	FinalPriceFils  int64       `json:"final_price_fils"`
	Active          bool        `json:"-"`
	CreatedAt       time.Time   `json:"created_at"`
}

// ComboQuery carries the wizard facts the matcher filters on.
type ComboQuery struct {
	TripDays    int
	BudgetTier  BudgetTier
	TravelStyle TravelStyle
	HasChildren bool
}

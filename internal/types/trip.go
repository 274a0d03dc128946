package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BudgetTier is the price band the traveler picks on the wizard's budget step.
type BudgetTier string

const (
	BudgetLow    BudgetTier = "low"
	BudgetMedium BudgetTier = "medium"
	BudgetLuxury BudgetTier = "luxury"
)

func (b BudgetTier) Valid() bool {
	switch b {
	case BudgetLow, BudgetMedium, BudgetLuxury:
		return true
	}
	return false
}

// TravelStyle shapes the generated plan (pace, kind of activities).
type TravelStyle string

const (
	StyleFamily    TravelStyle = "family"
	StyleCouple    TravelStyle = "couple"
	StyleAdventure TravelStyle = "adventure"
	StyleRelax     TravelStyle = "relax"
	StyleLuxury    TravelStyle = "luxury"
)

func (s TravelStyle) Valid() bool {
	switch s {
	case StyleFamily, StyleCouple, StyleAdventure, StyleRelax, StyleLuxury:
		return true
	}
	return false
}

// Occasion is the optional special occasion collected on step 5.
type Occasion string

const (
	OccasionNone        Occasion = "none"
	OccasionBirthday    Occasion = "birthday"
	OccasionHoneymoon   Occasion = "honeymoon"
	OccasionAnniversary Occasion = "anniversary"
)

func (o Occasion) Valid() bool {
	switch o {
	case OccasionNone, OccasionBirthday, OccasionHoneymoon, OccasionAnniversary:
		return true
	}
	return false
}

// DateOnly is the wire format for arrival/departure dates.
const DateOnly = "2006-01-02"

// TripInput is the wizard's collected form state. All fields are client-held
// until generation; dates carry date-only semantics.
type TripInput struct {
	ArrivalDate   time.Time   `json:"arrival_date"`
	DepartureDate time.Time   `json:"departure_date"`
	Adults        int         `json:"adults"`
	Children      int         `json:"children"`
	Nationality   string      `json:"nationality"`
	BudgetTier    BudgetTier  `json:"budget_tier"`
	TravelStyle   TravelStyle `json:"travel_style"`
	Occasion      Occasion    `json:"occasion"`
}

// TotalDays returns the inclusive day count between arrival and departure.
// Zero when either date is unset.
func (in TripInput) TotalDays() int {
	if in.ArrivalDate.IsZero() || in.DepartureDate.IsZero() {
		return 0
	}
	a := midnightUTC(in.ArrivalDate)
	d := midnightUTC(in.DepartureDate)
	if d.Before(a) {
		return 0
	}
	return int(d.Sub(a).Hours()/24) + 1
}

// midnightUTC rebuilds t from its calendar components so that dates carrying
// a non-UTC offset still count as the day the traveler sees on the ticket.
func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TripStatus tracks the lifecycle of a generated plan.
type TripStatus string

const (
	TripStatusGenerated TripStatus = "generated"
	TripStatusBooked    TripStatus = "booked"
	TripStatusArchived  TripStatus = "archived"
)

// TripPlan is the generation service's persisted output. The client never
// mutates it; TotalPriceFils is the authoritative base total in AED fils.
type TripPlan struct {
	ID              uuid.UUID       `json:"id"`
	Status          TripStatus      `json:"status"`
	Destination     string          `json:"destination"`
	ArrivalDate     time.Time       `json:"arrival_date"`
	DepartureDate   time.Time       `json:"departure_date"`
	TotalDays       int             `json:"total_days"`
	Adults          int             `json:"adults"`
	Children        int             `json:"children"`
	Nationality     string          `json:"nationality"`
	BudgetTier      BudgetTier      `json:"budget_tier"`
	TravelStyle     TravelStyle     `json:"travel_style"`
	Occasion        Occasion        `json:"occasion,omitempty"`
	TotalPriceFils  int64           `json:"total_price_fils"`
	DisplayCurrency string          `json:"display_currency"`
	DisplayPrice    string          `json:"display_price,omitempty"`
	IdempotencyKey  string          `json:"-"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TripItem is one priced line belonging to a TripPlan. Quantity is "nights"
// for hotel lines and "days" for car lines.
type TripItem struct {
	ID          uuid.UUID       `json:"id"`
	TripID      uuid.UUID       `json:"trip_id"`
	DayNumber   int             `json:"day_number"`
	ItemType    ItemType        `json:"item_type"`
	RefID       *uuid.UUID      `json:"ref_id,omitempty"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	StartTime   *string         `json:"start_time,omitempty"`
	EndTime     *string         `json:"end_time,omitempty"`
	PriceFils   int64           `json:"price_fils"`
	Quantity    int             `json:"quantity"`
	IsOptional  bool            `json:"is_optional"`
	IsIncluded  bool            `json:"is_included"`
	SortOrder   int             `json:"sort_order"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// ItemType is the open-ended trip line category. Known values are a closed
// set; anything the backend introduces later parses to an unknown type that
// still groups into its day's generic list.
type ItemType struct {
	known itemKind
	raw   string
}

type itemKind int

const (
	kindUnknown itemKind = iota
	kindHotel
	kindCar
	kindVisa
	kindTransfer
	kindActivity
	kindTour
	kindMeal
	kindUpsell
)

var (
	ItemHotel    = ItemType{known: kindHotel, raw: "hotel"}
	ItemCar      = ItemType{known: kindCar, raw: "car"}
	ItemVisa     = ItemType{known: kindVisa, raw: "visa"}
	ItemTransfer = ItemType{known: kindTransfer, raw: "transfer"}
	ItemActivity = ItemType{known: kindActivity, raw: "activity"}
	ItemTour     = ItemType{known: kindTour, raw: "tour"}
	ItemMeal     = ItemType{known: kindMeal, raw: "meal"}
	ItemUpsell   = ItemType{known: kindUpsell, raw: "upsell"}
)

var knownItemTypes = map[string]ItemType{
	"hotel":    ItemHotel,
	"car":      ItemCar,
	"visa":     ItemVisa,
	"transfer": ItemTransfer,
	"activity": ItemActivity,
	"tour":     ItemTour,
	"meal":     ItemMeal,
	"upsell":   ItemUpsell,
}

// ParseItemType never fails: unrecognized strings become an unknown type
// carrying the raw value.
func ParseItemType(raw string) ItemType {
	if t, ok := knownItemTypes[raw]; ok {
		return t
	}
	return ItemType{known: kindUnknown, raw: raw}
}

func (t ItemType) String() string { return t.raw }

// IsKnown reports whether the type is one of the closed set.
func (t ItemType) IsKnown() bool { return t.known != kindUnknown }

// IsSummary reports whether the type is surfaced in a dedicated summary card
// rather than the daily timeline.
func (t ItemType) IsSummary() bool {
	switch t.known {
	case kindHotel, kindCar, kindVisa, kindUpsell:
		return true
	}
	return false
}

func (t ItemType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.raw)
}

func (t *ItemType) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = ParseItemType(raw)
	return nil
}

// GeneratedPlan is what the generation adapter returns before persistence.
type GeneratedPlan struct {
	Destination    string
	TotalPriceFils int64
	Items          []TripItem
	Metadata       json.RawMessage
}

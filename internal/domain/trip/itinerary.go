package trip

import (
	"github.com/google/uuid"

	"github.com/mirageholidays/trip-planner-api/internal/lib/currency"
	"github.com/mirageholidays/trip-planner-api/internal/types"
)

// Fixed placeholder copy for days with no timeline items.
const (
	placeholderLastDay     = "Free time for packing & transfer"
	placeholderInteriorDay = "Free day to explore"
)

// ItineraryDay is one day section of the presentation model.
type ItineraryDay struct {
	Day         int              `json:"day"`
	Label       string           `json:"label"`
	Expanded    bool             `json:"expanded"`
	Placeholder string           `json:"placeholder,omitempty"`
	Items       []types.TripItem `json:"items"`
}

// Pricing carries the aggregated totals. All *Fils fields are base-currency
// arithmetic results; Display values are converted afterwards.
type Pricing struct {
	BaseTotalFils   int64                 `json:"base_total_fils"`
	UpsellTotalFils int64                 `json:"upsell_total_fils"`
	GrandTotalFils  int64                 `json:"grand_total_fils"`
	PerPersonFils   int64                 `json:"per_person_fils"`
	GrandTotal      currency.DisplayPrice `json:"grand_total"`
	PerPerson       currency.DisplayPrice `json:"per_person"`
}

// UpsellOption is one toggle-able add-on with its inclusion state resolved.
type UpsellOption struct {
	types.TripItem
	Included bool `json:"included"`
}

// Itinerary is the full day-by-day presentation model for a trip plan.
type Itinerary struct {
	Plan      *types.TripPlan `json:"plan"`
	Days      []ItineraryDay  `json:"days"`
	Hotel     *types.TripItem `json:"hotel,omitempty"`
	Transport *types.TripItem `json:"transport,omitempty"`
	Visa      *types.TripItem `json:"visa,omitempty"`
	Upsells   []UpsellOption  `json:"upsells"`
	Pricing   Pricing         `json:"pricing"`
}

// buildItinerary assembles the presentation model from the plan and its
// fetched items. Pure: all inputs explicit, no I/O.
//
// Grouping rules: items partition by day number preserving fetch order
// (repository orders by day, sort_order); the daily timeline excludes the
// summary types (hotel, car, visa, upsell), which surface as dedicated
// cards; unknown item types stay in their day's list. Hotel, transport and
// visa cards take the first match each, any further occurrences are neither
// rendered nor counted (the base total is authoritative, never re-derived).
func buildItinerary(plan *types.TripPlan, items []types.TripItem, included map[uuid.UUID]bool) *Itinerary {
	it := &Itinerary{Plan: plan}

	byDay := make(map[int][]types.TripItem)
	for _, item := range items {
		switch {
		case item.ItemType == types.ItemHotel:
			if it.Hotel == nil {
				tmp := item
				it.Hotel = &tmp
			}
		case item.ItemType == types.ItemCar:
			if it.Transport == nil {
				tmp := item
				it.Transport = &tmp
			}
		case item.ItemType == types.ItemVisa:
			if it.Visa == nil {
				tmp := item
				it.Visa = &tmp
			}
		case item.ItemType == types.ItemUpsell:
			it.Upsells = append(it.Upsells, UpsellOption{
				TripItem: item,
				Included: included[item.ID],
			})
		default:
			// Generator output occasionally places an item past the trip's
			// length; clamp it into the last day rather than dropping a
			// priced line silently.
			day := item.DayNumber
			if plan.TotalDays > 0 && day > plan.TotalDays {
				day = plan.TotalDays
			}
			byDay[day] = append(byDay[day], item)
		}
	}

	for day := 1; day <= plan.TotalDays; day++ {
		section := ItineraryDay{
			Day:      day,
			Label:    dayLabel(plan, day),
			Expanded: day == 1,
			Items:    byDay[day],
		}
		if len(section.Items) == 0 {
			if day == plan.TotalDays {
				section.Placeholder = placeholderLastDay
			} else {
				section.Placeholder = placeholderInteriorDay
			}
		}
		it.Days = append(it.Days, section)
	}

	it.Pricing = computePricing(plan, it.Upsells)
	return it
}

// computePricing sums in base fils only. baseTotal comes straight off the
// plan; upsell prices add on top for every included option. The per-person
// denominator clamps to 1 so a degenerate zero-traveler plan can never
// divide by zero.
func computePricing(plan *types.TripPlan, upsells []UpsellOption) Pricing {
	p := Pricing{BaseTotalFils: plan.TotalPriceFils}
	for _, u := range upsells {
		if u.Included {
			p.UpsellTotalFils += u.PriceFils
		}
	}
	p.GrandTotalFils = p.BaseTotalFils + p.UpsellTotalFils

	travelers := plan.Adults + plan.Children
	if travelers < 1 {
		travelers = 1
	}
	p.PerPersonFils = p.GrandTotalFils / int64(travelers)
	return p
}

// dayLabel names day sections: arrival and departure days get fixed labels,
// interior days the weekday derived from the arrival date.
func dayLabel(plan *types.TripPlan, day int) string {
	switch {
	case day == 1:
		return "Arrival Day"
	case day == plan.TotalDays:
		return "Departure Day"
	default:
		return plan.ArrivalDate.AddDate(0, 0, day-1).Weekday().String()
	}
}

// forceExpand returns a copy of the day sections with every section
// expanded; used by export so the stored defaults stay untouched.
func forceExpand(days []ItineraryDay) []ItineraryDay {
	out := make([]ItineraryDay, len(days))
	copy(out, days)
	for i := range out {
		out[i].Expanded = true
	}
	return out
}

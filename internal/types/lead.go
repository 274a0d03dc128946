package types

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus lifecycle: created as "new", flipped to "linked" once the
// generated trip is attached.
type LeadStatus string

const (
	LeadStatusNew    LeadStatus = "new"
	LeadStatusLinked LeadStatus = "linked"
)

// Lead is the captured contact record gating access to the planner wizard.
type Lead struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Notes        *string    `json:"notes,omitempty"`
	OccasionHint Occasion   `json:"occasion_hint,omitempty"`
	TripID       *uuid.UUID `json:"trip_id,omitempty"`
	Status       LeadStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateLeadRequest is the lead-capture form payload.
type CreateLeadRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Notes string `json:"notes,omitempty"`
}

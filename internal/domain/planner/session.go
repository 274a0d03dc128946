package planner

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mirageholidays/trip-planner-api/internal/types"
)

// State is the single consolidated session state. A session is created in
// StateWizard (a valid lead is a precondition of creation, so there is no
// reachable awaiting-lead state on a live session), moves to StateGenerating
// on generate, then StateDone or StateFailed. Retry moves Failed back to
// Generating with the identical input.
type State string

const (
	StateWizard     State = "wizard"
	StateGenerating State = "generating"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Named wizard steps.
const (
	StepDates = iota + 1
	StepTravelers
	StepNationality
	StepBudget
	StepStyle

	stepMin = StepDates
	stepMax = StepStyle
)

// generatingCaptions is the fixed perceived-progress sequence cycled every
// captionInterval while generating. Purely cosmetic: it never reflects or
// gates the real request.
var generatingCaptions = [5]string{
	"Finding the best hotels for your dates...",
	"Matching activities to your travel style...",
	"Checking visa requirements...",
	"Pricing transfers and day plans...",
	"Putting the finishing touches on your trip...",
}

const captionInterval = 3 * time.Second

// departureAutoAdvance is how far departure jumps past a later arrival.
const departureAutoAdvance = 4 // days

// Session is one client's wizard run. All mutation goes through methods
// holding the mutex; the session is shared between request handlers and the
// generation goroutine's completion callback.
type Session struct {
	mu sync.Mutex

	ID             uuid.UUID
	LeadID         uuid.UUID
	State          State
	Step           int
	Input          types.TripInput
	IdempotencyKey string
	TripID         *uuid.UUID
	GenerationErr  string

	Combo          *types.Combo
	ComboDismissed bool

	captionIdx int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewSession starts a wizard at step 1 with the default party of two adults.
func NewSession(leadID uuid.UUID) *Session {
	now := time.Now()
	return &Session{
		ID:             uuid.New(),
		LeadID:         leadID,
		State:          StateWizard,
		Step:           StepDates,
		Input:          types.TripInput{Adults: 2, Occasion: types.OccasionNone},
		IdempotencyKey: uuid.NewString(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// InputUpdate is a partial form update; nil fields are untouched.
type InputUpdate struct {
	ArrivalDate   *time.Time         `json:"arrival_date,omitempty"`
	DepartureDate *time.Time         `json:"departure_date,omitempty"`
	Adults        *int               `json:"adults,omitempty"`
	Children      *int               `json:"children,omitempty"`
	Nationality   *string            `json:"nationality,omitempty"`
	BudgetTier    *types.BudgetTier  `json:"budget_tier,omitempty"`
	TravelStyle   *types.TravelStyle `json:"travel_style,omitempty"`
	Occasion      *types.Occasion    `json:"occasion,omitempty"`
}

// ApplyInput merges a partial update, enforcing the date invariant: when the
// arrival date moves past the current departure date, departure auto-advances
// to arrival plus four days. The update is atomic: every field is staged onto
// a copy and validated before anything is committed, so a rejected batch
// leaves the session exactly as it was. It reports whether any of the
// combo-relevant facts (total days, budget tier, style, has-children)
// changed.
func (s *Session) ApplyInput(u InputUpdate) (comboFactsChanged bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateWizard {
		return false, fmt.Errorf("session is %s, input is frozen: %w", s.State, types.ErrConflict)
	}

	in := s.Input

	if u.ArrivalDate != nil {
		in.ArrivalDate = *u.ArrivalDate
		if !in.DepartureDate.IsZero() && in.DepartureDate.Before(in.ArrivalDate) {
			in.DepartureDate = in.ArrivalDate.AddDate(0, 0, departureAutoAdvance)
		}
	}
	if u.DepartureDate != nil {
		if !in.ArrivalDate.IsZero() && u.DepartureDate.Before(in.ArrivalDate) {
			return false, fmt.Errorf("departure date precedes arrival date: %w", types.ErrValidation)
		}
		in.DepartureDate = *u.DepartureDate
	}
	if u.Adults != nil {
		if *u.Adults < 1 {
			return false, fmt.Errorf("at least one adult is required: %w", types.ErrValidation)
		}
		in.Adults = *u.Adults
	}
	if u.Children != nil {
		if *u.Children < 0 {
			return false, fmt.Errorf("children count cannot be negative: %w", types.ErrValidation)
		}
		in.Children = *u.Children
	}
	if u.Nationality != nil {
		in.Nationality = *u.Nationality
	}
	if u.BudgetTier != nil {
		if !u.BudgetTier.Valid() {
			return false, fmt.Errorf("unknown budget tier %q: %w", *u.BudgetTier, types.ErrValidation)
		}
		in.BudgetTier = *u.BudgetTier
	}
	if u.TravelStyle != nil {
		if !u.TravelStyle.Valid() {
			return false, fmt.Errorf("unknown travel style %q: %w", *u.TravelStyle, types.ErrValidation)
		}
		in.TravelStyle = *u.TravelStyle
	}
	if u.Occasion != nil {
		if !u.Occasion.Valid() {
			return false, fmt.Errorf("unknown occasion %q: %w", *u.Occasion, types.ErrValidation)
		}
		in.Occasion = *u.Occasion
	}

	before := comboFacts(s.Input)
	s.Input = in
	s.UpdatedAt = time.Now()
	return before != comboFacts(in), nil
}

type comboFactsKey struct {
	days        int
	tier        types.BudgetTier
	style       types.TravelStyle
	hasChildren bool
}

func comboFacts(in types.TripInput) comboFactsKey {
	return comboFactsKey{
		days:        in.TotalDays(),
		tier:        in.BudgetTier,
		style:       in.TravelStyle,
		hasChildren: in.Children > 0,
	}
}

// CanProceed reports whether the given step's guard passes against the
// current input.
func (s *Session) CanProceed(step int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return canProceedLocked(s.Input, step)
}

func canProceedLocked(in types.TripInput, step int) bool {
	switch step {
	case StepDates:
		return !in.ArrivalDate.IsZero() && !in.DepartureDate.IsZero()
	case StepTravelers:
		return in.Adults >= 1
	case StepNationality:
		return in.Nationality != ""
	case StepBudget:
		return in.BudgetTier.Valid()
	case StepStyle:
		return in.TravelStyle.Valid()
	}
	return false
}

// Continue advances one step if the current step's guard passes. Capped at
// the last step.
func (s *Session) Continue() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateWizard {
		return fmt.Errorf("session is %s: %w", s.State, types.ErrConflict)
	}
	if !canProceedLocked(s.Input, s.Step) {
		return fmt.Errorf("step %d is incomplete: %w", s.Step, types.ErrValidation)
	}
	if s.Step < stepMax {
		s.Step++
		s.UpdatedAt = time.Now()
	}
	return nil
}

// Back steps back one step; a no-op at step 1.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateWizard {
		return fmt.Errorf("session is %s: %w", s.State, types.ErrConflict)
	}
	if s.Step > stepMin {
		s.Step--
		s.UpdatedAt = time.Now()
	}
	return nil
}

// Jump moves directly to an already-completed step (one strictly before the
// current step). Jumping forward through the indicator is not allowed.
func (s *Session) Jump(step int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateWizard {
		return fmt.Errorf("session is %s: %w", s.State, types.ErrConflict)
	}
	if step < stepMin || step > stepMax {
		return fmt.Errorf("step %d out of range: %w", step, types.ErrValidation)
	}
	if step >= s.Step {
		return fmt.Errorf("cannot jump forward to step %d: %w", step, types.ErrValidation)
	}
	s.Step = step
	s.UpdatedAt = time.Now()
	return nil
}

// BeginGenerating guards the terminal step-5 action and freezes the wizard.
// Allowed only from StateWizard with the step 5 guard satisfied; failed
// sessions go through BeginRetry instead.
func (s *Session) BeginGenerating() (types.TripInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State {
	case StateWizard:
		if s.Step != stepMax || !canProceedLocked(s.Input, stepMax) {
			return types.TripInput{}, fmt.Errorf("travel style must be selected before generating: %w", types.ErrValidation)
		}
	case StateGenerating:
		return types.TripInput{}, fmt.Errorf("generation already in progress: %w", types.ErrConflict)
	default:
		return types.TripInput{}, fmt.Errorf("session is %s: %w", s.State, types.ErrConflict)
	}

	s.startGenerationLocked()
	return s.Input, nil
}

// BeginRetry restarts generation after a failure, reusing the frozen input
// and the original idempotency key. Allowed only from StateFailed.
func (s *Session) BeginRetry() (types.TripInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateFailed {
		return types.TripInput{}, fmt.Errorf("retry requires a failed generation, session is %s: %w", s.State, types.ErrConflict)
	}

	s.startGenerationLocked()
	return s.Input, nil
}

func (s *Session) startGenerationLocked() {
	s.State = StateGenerating
	s.GenerationErr = ""
	s.captionIdx = 0
	s.UpdatedAt = time.Now()
}

// CompleteGeneration records the terminal outcome of a generation attempt.
func (s *Session) CompleteGeneration(tripID uuid.UUID, genErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateGenerating {
		return
	}
	if genErr != nil {
		s.State = StateFailed
		s.GenerationErr = genErr.Error()
	} else {
		s.State = StateDone
		s.TripID = &tripID
	}
	s.UpdatedAt = time.Now()
}

// AdvanceCaption moves the cosmetic progress caption forward one slot.
func (s *Session) AdvanceCaption() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == StateGenerating {
		s.captionIdx = (s.captionIdx + 1) % len(generatingCaptions)
	}
}

// SetCombo stores the latest advisory recommendation.
func (s *Session) SetCombo(c *types.Combo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Combo = c
}

// DismissCombo hides the recommendation for the rest of the session; it
// never resets.
func (s *Session) DismissCombo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ComboDismissed = true
}

// Snapshot is the wire representation of a session.
type Snapshot struct {
	ID             uuid.UUID       `json:"id"`
	LeadID         uuid.UUID       `json:"lead_id"`
	State          State           `json:"state"`
	Step           int             `json:"step"`
	Input          types.TripInput `json:"input"`
	CanProceed     bool            `json:"can_proceed"`
	TotalDays      int             `json:"total_days"`
	TripID         *uuid.UUID      `json:"trip_id,omitempty"`
	GenerationErr  string          `json:"generation_error,omitempty"`
	Caption        string          `json:"caption,omitempty"`
	Combo          *types.Combo    `json:"combo,omitempty"`
	ComboDismissed bool            `json:"combo_dismissed"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Snapshot renders the session for API responses. The combo recommendation
// is surfaced only on the final step and only until dismissed.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:             s.ID,
		LeadID:         s.LeadID,
		State:          s.State,
		Step:           s.Step,
		Input:          s.Input,
		CanProceed:     canProceedLocked(s.Input, s.Step),
		TotalDays:      s.Input.TotalDays(),
		TripID:         s.TripID,
		GenerationErr:  s.GenerationErr,
		ComboDismissed: s.ComboDismissed,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.State == StateGenerating {
		snap.Caption = generatingCaptions[s.captionIdx]
	}
	if s.Step == stepMax && !s.ComboDismissed {
		snap.Combo = s.Combo
	}
	return snap
}

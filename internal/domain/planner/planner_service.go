package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirageholidays/trip-planner-api/internal/domain/combo"
	"github.com/mirageholidays/trip-planner-api/internal/domain/lead"
	"github.com/mirageholidays/trip-planner-api/internal/domain/trip"
	"github.com/mirageholidays/trip-planner-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service drives the wizard sessions.
type Service interface {
	CreateSession(ctx context.Context, leadID uuid.UUID) (Snapshot, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (Snapshot, error)
	UpdateInput(ctx context.Context, sessionID uuid.UUID, update InputUpdate) (Snapshot, error)
	Continue(ctx context.Context, sessionID uuid.UUID) (Snapshot, error)
	Back(ctx context.Context, sessionID uuid.UUID) (Snapshot, error)
	Jump(ctx context.Context, sessionID uuid.UUID, step int) (Snapshot, error)
	Generate(ctx context.Context, sessionID uuid.UUID) (Snapshot, error)
	Retry(ctx context.Context, sessionID uuid.UUID) (Snapshot, error)
	DismissCombo(ctx context.Context, sessionID uuid.UUID) (Snapshot, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	store    *Store
	leadSvc  lead.Service
	tripSvc  trip.Service
	comboSvc combo.Service
}

func NewService(store *Store, leadSvc lead.Service, tripSvc trip.Service, comboSvc combo.Service, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		store:    store,
		leadSvc:  leadSvc,
		tripSvc:  tripSvc,
		comboSvc: comboSvc,
	}
}

// CreateSession opens a wizard for a captured lead. The lead gate is strict:
// no session exists until a lead record does. A lead whose notes hinted at a
// special occasion gets it pre-selected on step 5.
func (s *ServiceImpl) CreateSession(ctx context.Context, leadID uuid.UUID) (Snapshot, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "CreateSession", trace.WithAttributes(
		attribute.String("lead.id", leadID.String()),
	))
	defer span.End()

	log := s.logger.With(slog.String("method", "CreateSession"), slog.String("leadID", leadID.String()))

	l, err := s.leadSvc.Get(ctx, leadID)
	if err != nil {
		log.WarnContext(ctx, "Session refused, lead not found", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lead not found")
		return Snapshot{}, fmt.Errorf("a captured lead is required before planning: %w", err)
	}

	session := NewSession(l.ID)
	if l.OccasionHint != "" && l.OccasionHint != types.OccasionNone {
		session.Input.Occasion = l.OccasionHint
	}
	s.store.Put(session)

	log.InfoContext(ctx, "Planner session created", slog.String("sessionID", session.ID.String()))
	span.SetAttributes(attribute.String("session.id", session.ID.String()))
	span.SetStatus(codes.Ok, "Session created")
	return session.Snapshot(), nil
}

func (s *ServiceImpl) GetSession(ctx context.Context, sessionID uuid.UUID) (Snapshot, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// UpdateInput merges a partial form update and reactively refreshes the
// combo recommendation when its driving facts changed. Combo failures never
// block the wizard.
func (s *ServiceImpl) UpdateInput(ctx context.Context, sessionID uuid.UUID, update InputUpdate) (Snapshot, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "UpdateInput", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()

	session, err := s.store.Get(sessionID)
	if err != nil {
		span.SetStatus(codes.Error, "Session not found")
		return Snapshot{}, err
	}

	factsChanged, err := session.ApplyInput(update)
	if err != nil {
		span.SetStatus(codes.Error, "Input rejected")
		return Snapshot{}, err
	}

	if factsChanged {
		s.refreshCombo(ctx, session)
	}

	span.SetStatus(codes.Ok, "Input applied")
	return session.Snapshot(), nil
}

func (s *ServiceImpl) refreshCombo(ctx context.Context, session *Session) {
	snap := session.Snapshot()
	if snap.TotalDays == 0 || !snap.Input.BudgetTier.Valid() || !snap.Input.TravelStyle.Valid() {
		session.SetCombo(nil)
		return
	}
	c, err := s.comboSvc.Match(ctx, types.ComboQuery{
		TripDays:    snap.TotalDays,
		BudgetTier:  snap.Input.BudgetTier,
		TravelStyle: snap.Input.TravelStyle,
		HasChildren: snap.Input.Children > 0,
	})
	if err != nil {
		// Advisory only.
		s.logger.WarnContext(ctx, "Combo refresh failed", slog.Any("error", err))
		return
	}
	session.SetCombo(c)
}

func (s *ServiceImpl) Continue(ctx context.Context, sessionID uuid.UUID) (Snapshot, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := session.Continue(); err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

func (s *ServiceImpl) Back(ctx context.Context, sessionID uuid.UUID) (Snapshot, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := session.Back(); err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

func (s *ServiceImpl) Jump(ctx context.Context, sessionID uuid.UUID, step int) (Snapshot, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := session.Jump(step); err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Generate fires the asynchronous generation flow and returns immediately;
// the client polls the session status. The caption ticker and the real
// request run independently and are torn down together when the request
// finishes.
func (s *ServiceImpl) Generate(ctx context.Context, sessionID uuid.UUID) (Snapshot, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()

	session, err := s.store.Get(sessionID)
	if err != nil {
		span.SetStatus(codes.Error, "Session not found")
		return Snapshot{}, err
	}

	input, err := session.BeginGenerating()
	if err != nil {
		span.SetStatus(codes.Error, "Generation refused")
		return Snapshot{}, err
	}

	go s.runGeneration(session, input)

	span.SetStatus(codes.Ok, "Generation started")
	return session.Snapshot(), nil
}

// Retry re-issues generation with the unchanged input and the same
// idempotency key; the wizard step and form state are preserved. Only a
// failed session may retry, anything else is a conflict.
func (s *ServiceImpl) Retry(ctx context.Context, sessionID uuid.UUID) (Snapshot, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "Retry", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()

	session, err := s.store.Get(sessionID)
	if err != nil {
		span.SetStatus(codes.Error, "Session not found")
		return Snapshot{}, err
	}

	input, err := session.BeginRetry()
	if err != nil {
		span.SetStatus(codes.Error, "Retry refused")
		return Snapshot{}, err
	}

	go s.runGeneration(session, input)

	span.SetStatus(codes.Ok, "Retry started")
	return session.Snapshot(), nil
}

// runGeneration owns the whole async flow on a background context so the
// originating HTTP request can return (and the user navigate away) without
// cancelling it. There is no cancel path once issued.
func (s *ServiceImpl) runGeneration(session *Session, input types.TripInput) {
	ctx := context.Background()
	log := s.logger.With(slog.String("method", "runGeneration"), slog.String("sessionID", session.ID.String()))

	// Cosmetic caption ticker, torn down with the request.
	tickerCtx, stopTicker := context.WithCancel(ctx)
	defer stopTicker()
	go func() {
		ticker := time.NewTicker(captionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-tickerCtx.Done():
				return
			case <-ticker.C:
				session.AdvanceCaption()
			}
		}
	}()

	tripID, err := s.tripSvc.Generate(ctx, input, session.IdempotencyKey)
	stopTicker()
	session.CompleteGeneration(tripID, err)

	if err != nil {
		log.ErrorContext(ctx, "Generation failed", slog.Any("error", err))
		return
	}

	// Best-effort: a failed link is logged and never blocks the itinerary.
	if linkErr := s.leadSvc.LinkToTrip(ctx, session.LeadID, tripID); linkErr != nil {
		log.WarnContext(ctx, "Failed to link lead to trip", slog.Any("error", linkErr))
	}
	log.InfoContext(ctx, "Generation completed", slog.String("tripID", tripID.String()))
}

func (s *ServiceImpl) DismissCombo(ctx context.Context, sessionID uuid.UUID) (Snapshot, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	session.DismissCombo()
	return session.Snapshot(), nil
}

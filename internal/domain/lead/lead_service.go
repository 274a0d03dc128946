package lead

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirageholidays/trip-planner-api/internal/types"
)

// Field length caps enforced before any insert is attempted.
const (
	maxNameLen  = 100
	maxEmailLen = 255
	maxNotesLen = 500
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for lead capture.
type Service interface {
	Create(ctx context.Context, req types.CreateLeadRequest) (*types.Lead, error)
	LinkToTrip(ctx context.Context, leadID, tripID uuid.UUID) error
	Get(ctx context.Context, leadID uuid.UUID) (*types.Lead, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
}

func NewService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

// Create validates the lead form and persists it. Validation failures are
// returned before any repository call so a malformed form never reaches the
// database.
func (s *ServiceImpl) Create(ctx context.Context, req types.CreateLeadRequest) (*types.Lead, error) {
	ctx, span := otel.Tracer("LeadService").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("lead.email", req.Email),
	))
	defer span.End()

	log := s.logger.With(slog.String("method", "Create"), slog.String("email", req.Email))
	log.DebugContext(ctx, "Capturing lead")

	if err := validate(req); err != nil {
		log.WarnContext(ctx, "Lead validation failed", slog.Any("error", err))
		span.SetStatus(codes.Error, "Validation failed")
		return nil, err
	}

	l := &types.Lead{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		OccasionHint: types.DetectOccasion(req.Notes),
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		l.Notes = &notes
	}

	created, err := s.repo.Insert(ctx, l)
	if err != nil {
		log.ErrorContext(ctx, "Failed to persist lead", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to persist lead")
		return nil, fmt.Errorf("error creating lead: %w", err)
	}

	log.InfoContext(ctx, "Lead captured", slog.String("leadID", created.ID.String()))
	span.SetStatus(codes.Ok, "Lead captured")
	return created, nil
}

// LinkToTrip is best-effort from the caller's point of view: the planner
// logs failures and proceeds to the itinerary regardless.
func (s *ServiceImpl) LinkToTrip(ctx context.Context, leadID, tripID uuid.UUID) error {
	ctx, span := otel.Tracer("LeadService").Start(ctx, "LinkToTrip", trace.WithAttributes(
		attribute.String("lead.id", leadID.String()),
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()

	if err := s.repo.LinkToTrip(ctx, leadID, tripID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to link lead")
		return fmt.Errorf("error linking lead to trip: %w", err)
	}
	span.SetStatus(codes.Ok, "Lead linked")
	return nil
}

func (s *ServiceImpl) Get(ctx context.Context, leadID uuid.UUID) (*types.Lead, error) {
	ctx, span := otel.Tracer("LeadService").Start(ctx, "Get", trace.WithAttributes(
		attribute.String("lead.id", leadID.String()),
	))
	defer span.End()

	l, err := s.repo.Get(ctx, leadID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch lead")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Lead fetched")
	return l, nil
}

func validate(req types.CreateLeadRequest) error {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	phone := strings.TrimSpace(req.Phone)

	switch {
	case name == "":
		return fmt.Errorf("name is required: %w", types.ErrValidation)
	case len(name) > maxNameLen:
		return fmt.Errorf("name exceeds %d characters: %w", maxNameLen, types.ErrValidation)
	case email == "":
		return fmt.Errorf("email is required: %w", types.ErrValidation)
	case len(email) > maxEmailLen:
		return fmt.Errorf("email exceeds %d characters: %w", maxEmailLen, types.ErrValidation)
	case !emailPattern.MatchString(email):
		return fmt.Errorf("email %q is not valid: %w", email, types.ErrValidation)
	case phone == "":
		return fmt.Errorf("phone is required: %w", types.ErrValidation)
	case len(req.Notes) > maxNotesLen:
		return fmt.Errorf("notes exceed %d characters: %w", maxNotesLen, types.ErrValidation)
	}
	return nil
}

package trip

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
	"golang.org/x/sync/errgroup"

	"github.com/mirageholidays/trip-planner-api/internal/lib/currency"
	"github.com/mirageholidays/trip-planner-api/internal/types"
	"github.com/mirageholidays/trip-planner-api/pkg/observability"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for trip generation and the
// itinerary presentation model.
type Service interface {
	// Generate runs the generation backend and persists the result; the
	// idempotency key makes identical retries return the same trip id.
	Generate(ctx context.Context, input types.TripInput, idempotencyKey string) (uuid.UUID, error)
	// BuildItinerary fails closed: any fetch failure yields an error
	// rather than a partial model.
	BuildItinerary(ctx context.Context, tripID uuid.UUID, includeUpsells []uuid.UUID, currencyCode string) (*Itinerary, error)
	// BuildExport is BuildItinerary with every day section force-expanded
	// in the returned model only.
	BuildExport(ctx context.Context, tripID uuid.UUID, includeUpsells []uuid.UUID, currencyCode string) (*Itinerary, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	repo      Repository
	generator Generator
	converter *currency.Converter
}

func NewService(repo Repository, generator Generator, converter *currency.Converter, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		repo:      repo,
		generator: generator,
		converter: converter,
	}
}

// Generate calls the generation backend with the full trip input and
// persists the resulting plan and items under the idempotency key.
func (s *ServiceImpl) Generate(ctx context.Context, input types.TripInput, idempotencyKey string) (uuid.UUID, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("trip.budget_tier", string(input.BudgetTier)),
		attribute.String("trip.travel_style", string(input.TravelStyle)),
	))
	defer span.End()

	log := s.logger.With(slog.String("method", "Generate"))
	start := time.Now()

	generated, err := s.generator.GenerateTrip(ctx, input)
	if err != nil {
		observability.ObserveGeneration("failure", time.Since(start))
		log.ErrorContext(ctx, "Trip generation failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Trip generation failed")
		return uuid.Nil, err
	}

	occasion := input.Occasion
	if occasion == "" {
		occasion = types.OccasionNone
	}
	plan := &types.TripPlan{
		Status:          types.TripStatusGenerated,
		Destination:     generated.Destination,
		ArrivalDate:     input.ArrivalDate,
		DepartureDate:   input.DepartureDate,
		TotalDays:       input.TotalDays(),
		Adults:          input.Adults,
		Children:        input.Children,
		Nationality:     input.Nationality,
		BudgetTier:      input.BudgetTier,
		TravelStyle:     input.TravelStyle,
		Occasion:        occasion,
		TotalPriceFils:  generated.TotalPriceFils,
		DisplayCurrency: "AED",
		IdempotencyKey:  idempotencyKey,
		Metadata:        generated.Metadata,
	}

	tripID, err := s.repo.CreateWithItems(ctx, plan, generated.Items)
	if err != nil {
		observability.ObserveGeneration("persist_failure", time.Since(start))
		log.ErrorContext(ctx, "Failed to persist generated trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to persist generated trip")
		return uuid.Nil, fmt.Errorf("error persisting generated trip: %w", err)
	}

	observability.ObserveGeneration("success", time.Since(start))
	log.InfoContext(ctx, "Trip generated and persisted",
		slog.String("tripID", tripID.String()),
		slog.Duration("took", time.Since(start)))
	span.SetAttributes(attribute.String("trip.id", tripID.String()))
	span.SetStatus(codes.Ok, "Trip generated")
	return tripID, nil
}

// BuildItinerary fetches the plan and items concurrently and assembles the
// day-by-day model with pricing for the requested upsell inclusion set.
func (s *ServiceImpl) BuildItinerary(ctx context.Context, tripID uuid.UUID, includeUpsells []uuid.UUID, currencyCode string) (*Itinerary, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "BuildItinerary", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
		attribute.Int("trip.included_upsells", len(includeUpsells)),
		attribute.String("trip.display_currency", currencyCode),
	))
	defer span.End()

	var (
		plan  *types.TripPlan
		items []types.TripItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		plan, err = s.repo.GetTripPlan(gctx, tripID)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.repo.GetTripItems(gctx, tripID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "Itinerary fetch failed", slog.String("tripID", tripID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Itinerary fetch failed")
		return nil, err
	}

	included := make(map[uuid.UUID]bool, len(includeUpsells))
	for _, id := range includeUpsells {
		included[id] = true
	}

	itinerary := buildItinerary(plan, items, included)
	s.applyDisplayPrices(itinerary, currencyCode)

	span.SetAttributes(attribute.Int("trip.day_count", len(itinerary.Days)))
	span.SetStatus(codes.Ok, "Itinerary built")
	return itinerary, nil
}

// BuildExport returns the same model with all days expanded. The override is
// scoped to the returned copy, so the regular view's defaults survive export
// failures too.
func (s *ServiceImpl) BuildExport(ctx context.Context, tripID uuid.UUID, includeUpsells []uuid.UUID, currencyCode string) (*Itinerary, error) {
	itinerary, err := s.BuildItinerary(ctx, tripID, includeUpsells, currencyCode)
	if err != nil {
		return nil, err
	}
	itinerary.Days = forceExpand(itinerary.Days)
	return itinerary, nil
}

// applyDisplayPrices converts aggregated fils totals for presentation.
// Conversion is strictly last: all sums above happen in base units.
func (s *ServiceImpl) applyDisplayPrices(it *Itinerary, code string) {
	if code == "" {
		code = it.Plan.DisplayCurrency
	}
	it.Pricing.GrandTotal = s.converter.Convert(currency.Amount(it.Pricing.GrandTotalFils), code)
	it.Pricing.PerPerson = s.converter.Convert(currency.Amount(it.Pricing.PerPersonFils), code)
	it.Plan.DisplayPrice = s.converter.Format(currency.Amount(it.Plan.TotalPriceFils), code)
}

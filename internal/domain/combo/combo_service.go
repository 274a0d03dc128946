package combo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirageholidays/trip-planner-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the advisory combo-matching contract. Match never fails
// the caller's flow: a nil combo with nil error means "nothing to recommend".
type Service interface {
	Match(ctx context.Context, q types.ComboQuery) (*types.Combo, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	cache  *cache.Cache
}

func NewService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(10*time.Minute, 30*time.Minute),
	}
}

// Match looks up the best combo for the wizard facts, serving repeated
// queries from cache. Lookup errors are logged and reported as no-match so
// the planner is never blocked by the recommender.
func (s *ServiceImpl) Match(ctx context.Context, q types.ComboQuery) (*types.Combo, error) {
	ctx, span := otel.Tracer("ComboService").Start(ctx, "Match", trace.WithAttributes(
		attribute.Int("combo.trip_days", q.TripDays),
		attribute.String("combo.travel_style", string(q.TravelStyle)),
		attribute.Bool("combo.has_children", q.HasChildren),
	))
	defer span.End()

	key := cacheKey(q)
	if cached, found := s.cache.Get(key); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		span.SetStatus(codes.Ok, "Combo served from cache")
		if cached == nil {
			return nil, nil
		}
		return cached.(*types.Combo), nil
	}

	c, err := s.repo.FindBestMatch(ctx, q)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			s.cache.Set(key, nil, cache.DefaultExpiration)
			span.SetStatus(codes.Ok, "No combo match")
			return nil, nil
		}
		s.logger.WarnContext(ctx, "Combo lookup failed, continuing without recommendation",
			slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Combo lookup failed")
		return nil, nil
	}

	s.cache.Set(key, c, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "Combo matched")
	return c, nil
}

func cacheKey(q types.ComboQuery) string {
	return fmt.Sprintf("combo:%d:%s:%s:%t", q.TripDays, q.BudgetTier, q.TravelStyle, q.HasChildren)
}

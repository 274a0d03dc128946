package combo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirageholidays/trip-planner-api/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// DBPool is the subset of pgxpool.Pool the repository needs.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository defines the contract for combo package lookup.
type Repository interface {
	FindBestMatch(ctx context.Context, q types.ComboQuery) (*types.Combo, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool DBPool
}

func NewRepositoryImpl(pool DBPool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pool,
	}
}

// FindBestMatch returns the active combo covering the trip facts with the
// highest discount, or ErrNotFound when nothing matches.
func (r *RepositoryImpl) FindBestMatch(ctx context.Context, q types.ComboQuery) (*types.Combo, error) {
	ctx, span := otel.Tracer("ComboRepo").Start(ctx, "FindBestMatch", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "combo_packages"),
		attribute.Int("combo.trip_days", q.TripDays),
		attribute.String("combo.budget_tier", string(q.BudgetTier)),
	))
	defer span.End()

	builder := squirrel.Select(
		"id", "title", "description", "min_days", "max_days",
		"budget_tier", "travel_style", "family_friendly",
		"base_price_fils", "discount_percent", "final_price_fils", "created_at",
	).
		From("combo_packages").
		PlaceholderFormat(squirrel.Dollar).
		Where(squirrel.Eq{
			"active":       true,
			"budget_tier":  string(q.BudgetTier),
			"travel_style": string(q.TravelStyle),
		}).
		Where(squirrel.LtOrEq{"min_days": q.TripDays}).
		Where(squirrel.GtOrEq{"max_days": q.TripDays}).
		OrderBy("discount_percent DESC", "created_at DESC").
		Limit(1)
	if q.HasChildren {
		builder = builder.Where(squirrel.Eq{"family_friendly": true})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		span.SetStatus(codes.Error, "Failed to build query")
		return nil, fmt.Errorf("failed to build combo query: %w", err)
	}

	var c types.Combo
	var tier, style string
	err = r.pgpool.QueryRow(ctx, query, args...).Scan(
		&c.ID, &c.Title, &c.Description, &c.MinDays, &c.MaxDays,
		&tier, &style, &c.FamilyFriendly,
		&c.BasePriceFils, &c.DiscountPercent, &c.FinalPriceFils, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "No combo match")
			return nil, fmt.Errorf("no matching combo: %w", types.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to query combo packages", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error matching combo: %w", err)
	}
	c.BudgetTier = types.BudgetTier(tier)
	c.TravelStyle = types.TravelStyle(style)
	c.Active = true

	span.SetAttributes(attribute.String("combo.id", c.ID.String()))
	span.SetStatus(codes.Ok, "Combo matched")
	return &c, nil
}

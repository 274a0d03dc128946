package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirageholidays/trip-planner-api/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// DBPool is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository defines the contract for trip plan persistence.
type Repository interface {
	// CreateWithItems persists a plan and its items in one transaction.
	// A second call with the same idempotency key returns the id of the
	// already-created plan without inserting anything.
	CreateWithItems(ctx context.Context, plan *types.TripPlan, items []types.TripItem) (uuid.UUID, error)
	GetTripPlan(ctx context.Context, tripID uuid.UUID) (*types.TripPlan, error)
	GetTripItems(ctx context.Context, tripID uuid.UUID) ([]types.TripItem, error)
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

const insertPlanQuery = `
        INSERT INTO trip_plans (status, destination, arrival_date, departure_date, total_days,
                                adults, children, nationality, budget_tier, travel_style, occasion,
                                total_price_fils, display_currency, idempotency_key, metadata,
                                created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, COALESCE($15, '{}'::jsonb), Now(), Now())
        ON CONFLICT (idempotency_key) DO NOTHING
        RETURNING id`

const insertItemQuery = `
        INSERT INTO trip_items (trip_id, day_number, item_type, ref_id, title, description,
                                start_time, end_time, price_fils, quantity, is_optional,
                                is_included, sort_order, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, '{}'::jsonb))`

// CreateWithItems inserts the plan guarded by the idempotency key. When the
// key already exists the existing trip id is returned and no items are
// written, which makes identical manual retries safe.
func (r *RepositoryImpl) CreateWithItems(ctx context.Context, plan *types.TripPlan, items []types.TripItem) (uuid.UUID, error) {
	ctx, span := otel.Tracer("TripRepo").Start(ctx, "CreateWithItems", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "trip_plans"),
		attribute.Int("trip.item_count", len(items)),
	))
	defer span.End()

	log := r.logger.With(slog.String("method", "CreateWithItems"), slog.String("destination", plan.Destination))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to begin transaction")
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var tripID uuid.UUID
	err = tx.QueryRow(ctx, insertPlanQuery,
		string(plan.Status), plan.Destination, plan.ArrivalDate, plan.DepartureDate, plan.TotalDays,
		plan.Adults, plan.Children, plan.Nationality, string(plan.BudgetTier), string(plan.TravelStyle),
		string(plan.Occasion), plan.TotalPriceFils, plan.DisplayCurrency, plan.IdempotencyKey, plan.Metadata,
	).Scan(&tripID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict on the idempotency key: the trip already exists.
		selErr := tx.QueryRow(ctx,
			`SELECT id FROM trip_plans WHERE idempotency_key = $1`, plan.IdempotencyKey,
		).Scan(&tripID)
		if selErr != nil {
			span.RecordError(selErr)
			span.SetStatus(codes.Error, "Idempotency lookup failed")
			return uuid.Nil, fmt.Errorf("idempotency lookup failed: %w", selErr)
		}
		if err := tx.Commit(ctx); err != nil {
			return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		log.InfoContext(ctx, "Duplicate generation request deduplicated", slog.String("tripID", tripID.String()))
		span.SetAttributes(attribute.Bool("trip.deduplicated", true))
		span.SetStatus(codes.Ok, "Existing trip returned")
		return tripID, nil
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			log.ErrorContext(ctx, "Failed to insert trip plan",
				slog.String("pg_code", pgErr.Code), slog.Any("error", err))
		} else {
			log.ErrorContext(ctx, "Failed to insert trip plan", slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return uuid.Nil, fmt.Errorf("database error inserting trip plan: %w", err)
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, insertItemQuery,
			tripID, it.DayNumber, it.ItemType.String(), it.RefID, it.Title, it.Description,
			it.StartTime, it.EndTime, it.PriceFils, it.Quantity, it.IsOptional,
			it.IsIncluded, it.SortOrder, it.Metadata,
		); err != nil {
			log.ErrorContext(ctx, "Failed to insert trip item",
				slog.String("title", it.Title), slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB item INSERT failed")
			return uuid.Nil, fmt.Errorf("database error inserting trip item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to commit transaction")
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.InfoContext(ctx, "Trip plan persisted", slog.String("tripID", tripID.String()))
	span.SetAttributes(attribute.String("trip.id", tripID.String()))
	span.SetStatus(codes.Ok, "Trip plan persisted")
	return tripID, nil
}

// GetTripPlan fetches one plan; absent ids map to ErrNotFound.
func (r *RepositoryImpl) GetTripPlan(ctx context.Context, tripID uuid.UUID) (*types.TripPlan, error) {
	ctx, span := otel.Tracer("TripRepo").Start(ctx, "GetTripPlan", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "trip_plans"),
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()

	var p types.TripPlan
	var status, tier, style, occasion string
	err := r.pgpool.QueryRow(ctx, `
        SELECT id, status, destination, arrival_date, departure_date, total_days,
               adults, children, nationality, budget_tier, travel_style, occasion,
               total_price_fils, display_currency, metadata, created_at, updated_at
        FROM trip_plans WHERE id = $1`, tripID).Scan(
		&p.ID, &status, &p.Destination, &p.ArrivalDate, &p.DepartureDate, &p.TotalDays,
		&p.Adults, &p.Children, &p.Nationality, &tier, &style, &occasion,
		&p.TotalPriceFils, &p.DisplayCurrency, &p.Metadata, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Trip not found")
			return nil, fmt.Errorf("trip %s: %w", tripID, types.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to fetch trip plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching trip plan: %w", err)
	}
	p.Status = types.TripStatus(status)
	p.BudgetTier = types.BudgetTier(tier)
	p.TravelStyle = types.TravelStyle(style)
	p.Occasion = types.Occasion(occasion)

	span.SetStatus(codes.Ok, "Trip plan fetched")
	return &p, nil
}

// GetTripItems returns the plan's items ordered by day then sort order, the
// order the aggregator's first-match picks rely on.
func (r *RepositoryImpl) GetTripItems(ctx context.Context, tripID uuid.UUID) ([]types.TripItem, error) {
	ctx, span := otel.Tracer("TripRepo").Start(ctx, "GetTripItems", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "trip_items"),
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
        SELECT id, trip_id, day_number, item_type, ref_id, title, description,
               start_time, end_time, price_fils, quantity, is_optional, is_included,
               sort_order, metadata
        FROM trip_items WHERE trip_id = $1
        ORDER BY day_number, sort_order`, tripID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query trip items", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching trip items: %w", err)
	}
	defer rows.Close()

	var items []types.TripItem
	for rows.Next() {
		var it types.TripItem
		var rawType string
		if err := rows.Scan(
			&it.ID, &it.TripID, &it.DayNumber, &rawType, &it.RefID, &it.Title, &it.Description,
			&it.StartTime, &it.EndTime, &it.PriceFils, &it.Quantity, &it.IsOptional, &it.IsIncluded,
			&it.SortOrder, &it.Metadata,
		); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Row scan failed")
			return nil, fmt.Errorf("failed to scan trip item: %w", err)
		}
		it.ItemType = types.ParseItemType(rawType)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Row iteration failed")
		return nil, fmt.Errorf("failed reading trip items: %w", err)
	}

	span.SetAttributes(attribute.Int("trip.item_count", len(items)))
	span.SetStatus(codes.Ok, "Trip items fetched")
	return items, nil
}

package lead

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
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository defines the contract for lead persistence.
type Repository interface {
	Insert(ctx context.Context, l *types.Lead) (*types.Lead, error)
	LinkToTrip(ctx context.Context, leadID, tripID uuid.UUID) error
	Get(ctx context.Context, leadID uuid.UUID) (*types.Lead, error)
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

// Insert persists a validated lead and returns it with generated fields.
func (r *RepositoryImpl) Insert(ctx context.Context, l *types.Lead) (*types.Lead, error) {
	ctx, span := otel.Tracer("LeadRepo").Start(ctx, "Insert", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "leads"),
	))
	defer span.End()

	log := r.logger.With(slog.String("method", "Insert"), slog.String("email", l.Email))
	log.DebugContext(ctx, "Inserting lead")

	query := `
        INSERT INTO leads (name, email, phone, notes, occasion_hint, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, Now(), Now())
        RETURNING id, created_at, updated_at`

	var out = *l
	err := r.pgpool.QueryRow(ctx, query,
		l.Name, l.Email, l.Phone, l.Notes, string(l.OccasionHint), string(types.LeadStatusNew),
	).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			log.WarnContext(ctx, "Duplicate lead insert", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Duplicate lead")
			return nil, fmt.Errorf("lead already exists: %w", types.ErrConflict)
		}
		log.ErrorContext(ctx, "Failed to insert lead", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error inserting lead: %w", err)
	}
	out.Status = types.LeadStatusNew

	log.InfoContext(ctx, "Lead created", slog.String("leadID", out.ID.String()))
	span.SetAttributes(attribute.String("db.lead.id", out.ID.String()))
	span.SetStatus(codes.Ok, "Lead created")
	return &out, nil
}

// LinkToTrip attaches a generated trip to the lead and flips its status.
func (r *RepositoryImpl) LinkToTrip(ctx context.Context, leadID, tripID uuid.UUID) error {
	ctx, span := otel.Tracer("LeadRepo").Start(ctx, "LinkToTrip", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "leads"),
		attribute.String("db.lead.id", leadID.String()),
		attribute.String("db.trip.id", tripID.String()),
	))
	defer span.End()

	log := r.logger.With(slog.String("method", "LinkToTrip"), slog.String("leadID", leadID.String()))

	tag, err := r.pgpool.Exec(ctx, `
        UPDATE leads SET trip_id = $1, status = $2, updated_at = Now()
        WHERE id = $3`,
		tripID, string(types.LeadStatusLinked), leadID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to link lead to trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error linking lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Lead not found")
		return fmt.Errorf("lead %s: %w", leadID, types.ErrNotFound)
	}

	log.InfoContext(ctx, "Lead linked to trip", slog.String("tripID", tripID.String()))
	span.SetStatus(codes.Ok, "Lead linked")
	return nil
}

// Get fetches one lead by id.
func (r *RepositoryImpl) Get(ctx context.Context, leadID uuid.UUID) (*types.Lead, error) {
	ctx, span := otel.Tracer("LeadRepo").Start(ctx, "Get", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "leads"),
		attribute.String("db.lead.id", leadID.String()),
	))
	defer span.End()

	var l types.Lead
	var occasion, status string
	err := r.pgpool.QueryRow(ctx, `
        SELECT id, name, email, phone, notes, occasion_hint, trip_id, status, created_at, updated_at
        FROM leads WHERE id = $1`, leadID).Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.Notes, &occasion, &l.TripID, &status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Lead not found")
			return nil, fmt.Errorf("lead %s: %w", leadID, types.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to fetch lead", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching lead: %w", err)
	}
	l.OccasionHint = types.Occasion(occasion)
	l.Status = types.LeadStatus(status)

	span.SetStatus(codes.Ok, "Lead fetched")
	return &l, nil
}

package lead

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirageholidays/trip-planner-api/internal/types"
)

func newMockRepo(t *testing.T) (*RepositoryImpl, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewRepositoryImpl(mockPool, slog.Default()), mockPool
}

func TestInsertReturnsGeneratedFields(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	ctx := context.Background()

	id := uuid.New()
	now := time.Now()
	l := &types.Lead{
		Name:         "Priya Sharma",
		Email:        "priya@example.com",
		Phone:        "+971501234567",
		OccasionHint: types.OccasionNone,
	}

	mockPool.ExpectQuery("INSERT INTO leads").
		WithArgs(l.Name, l.Email, l.Phone, l.Notes, string(types.OccasionNone), string(types.LeadStatusNew)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id, now, now))

	created, err := repo.Insert(ctx, l)
	require.NoError(t, err)
	assert.Equal(t, id, created.ID)
	assert.Equal(t, types.LeadStatusNew, created.Status)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestInsertMapsUniqueViolationToConflict(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Insert(context.Background(), &types.Lead{Email: "priya@example.com"})
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLinkToTripUpdatesStatus(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	leadID, tripID := uuid.New(), uuid.New()

	mockPool.ExpectExec("UPDATE leads SET trip_id").
		WithArgs(tripID, string(types.LeadStatusLinked), leadID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.LinkToTrip(context.Background(), leadID, tripID)
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLinkToTripUnknownLeadIsNotFound(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	leadID, tripID := uuid.New(), uuid.New()

	mockPool.ExpectExec("UPDATE leads SET trip_id").
		WithArgs(tripID, string(types.LeadStatusLinked), leadID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.LinkToTrip(context.Background(), leadID, tripID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestGetScansLead(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	leadID := uuid.New()
	tripID := uuid.New()
	notes := "honeymoon trip"
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "name", "email", "phone", "notes", "occasion_hint", "trip_id", "status", "created_at", "updated_at",
	}).AddRow(leadID, "Priya Sharma", "priya@example.com", "+971501234567", &notes,
		string(types.OccasionHoneymoon), &tripID, string(types.LeadStatusLinked), now, now)

	mockPool.ExpectQuery("SELECT id, name, email, phone, notes, occasion_hint").
		WithArgs(leadID).
		WillReturnRows(rows)

	l, err := repo.Get(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, "Priya Sharma", l.Name)
	assert.Equal(t, types.OccasionHoneymoon, l.OccasionHint)
	assert.Equal(t, types.LeadStatusLinked, l.Status)
	require.NotNil(t, l.TripID)
	assert.Equal(t, tripID, *l.TripID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetUnknownLeadIsNotFound(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	leadID := uuid.New()

	mockPool.ExpectQuery("SELECT id, name, email, phone, notes, occasion_hint").
		WithArgs(leadID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), leadID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

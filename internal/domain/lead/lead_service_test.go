package lead

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mirageholidays/trip-planner-api/internal/types"
)

// MockLeadRepo is a mock implementation of Repository
type MockLeadRepo struct {
	mock.Mock
}

func (m *MockLeadRepo) Insert(ctx context.Context, l *types.Lead) (*types.Lead, error) {
	args := m.Called(ctx, l)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Lead), args.Error(1)
}

func (m *MockLeadRepo) LinkToTrip(ctx context.Context, leadID, tripID uuid.UUID) error {
	return m.Called(ctx, leadID, tripID).Error(0)
}

func (m *MockLeadRepo) Get(ctx context.Context, leadID uuid.UUID) (*types.Lead, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Lead), args.Error(1)
}

func validRequest() types.CreateLeadRequest {
	return types.CreateLeadRequest{
		Name:  "Priya Sharma",
		Email: "priya@example.com",
		Phone: "+971501234567",
	}
}

func TestCreateRejectsInvalidFormsBeforeInsert(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.CreateLeadRequest)
	}{
		{"empty name", func(r *types.CreateLeadRequest) { r.Name = "  " }},
		{"name too long", func(r *types.CreateLeadRequest) { r.Name = strings.Repeat("a", maxNameLen+1) }},
		{"empty email", func(r *types.CreateLeadRequest) { r.Email = "" }},
		{"not an email", func(r *types.CreateLeadRequest) { r.Email = "not-an-email" }},
		{"email without tld", func(r *types.CreateLeadRequest) { r.Email = "priya@host" }},
		{"email with spaces", func(r *types.CreateLeadRequest) { r.Email = "priya sharma@example.com" }},
		{"email too long", func(r *types.CreateLeadRequest) {
			r.Email = strings.Repeat("a", maxEmailLen) + "@example.com"
		}},
		{"empty phone", func(r *types.CreateLeadRequest) { r.Phone = "" }},
		{"notes too long", func(r *types.CreateLeadRequest) { r.Notes = strings.Repeat("x", maxNotesLen+1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockLeadRepo)
			svc := NewService(repo, slog.Default())

			req := validRequest()
			tt.mutate(&req)

			_, err := svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, types.ErrValidation)
			repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateTrimsAndPersists(t *testing.T) {
	repo := new(MockLeadRepo)
	svc := NewService(repo, slog.Default())
	ctx := context.Background()

	stored := &types.Lead{ID: uuid.New(), Name: "Priya Sharma"}
	repo.On("Insert", mock.Anything, mock.MatchedBy(func(l *types.Lead) bool {
		return l.Name == "Priya Sharma" &&
			l.Email == "priya@example.com" &&
			l.Phone == "+971501234567" &&
			l.Notes == nil &&
			l.OccasionHint == types.OccasionNone
	})).Return(stored, nil)

	req := validRequest()
	req.Name = "  Priya Sharma  "
	req.Email = " priya@example.com "

	got, err := svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	repo.AssertExpectations(t)
}

func TestCreateDetectsOccasionFromNotes(t *testing.T) {
	tests := []struct {
		notes string
		want  types.Occasion
	}{
		{"We are planning our honeymoon in Dubai!", types.OccasionHoneymoon},
		{"Celebrating our 10th anniversary in Dubai", types.OccasionAnniversary},
		{"It's my wife's bday next month", types.OccasionBirthday},
		{"Just a family holiday", types.OccasionNone},
	}
	for _, tt := range tests {
		t.Run(string(tt.want)+"/"+tt.notes[:12], func(t *testing.T) {
			repo := new(MockLeadRepo)
			svc := NewService(repo, slog.Default())

			repo.On("Insert", mock.Anything, mock.MatchedBy(func(l *types.Lead) bool {
				return l.OccasionHint == tt.want
			})).Return(&types.Lead{ID: uuid.New(), OccasionHint: tt.want}, nil)

			req := validRequest()
			req.Notes = tt.notes
			_, err := svc.Create(context.Background(), req)
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestCreateWrapsRepositoryErrors(t *testing.T) {
	repo := new(MockLeadRepo)
	svc := NewService(repo, slog.Default())

	repo.On("Insert", mock.Anything, mock.Anything).Return(nil, types.ErrConflict)

	_, err := svc.Create(context.Background(), validRequest())
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestLinkToTripPropagatesNotFound(t *testing.T) {
	repo := new(MockLeadRepo)
	svc := NewService(repo, slog.Default())
	leadID, tripID := uuid.New(), uuid.New()

	repo.On("LinkToTrip", mock.Anything, leadID, tripID).Return(types.ErrNotFound)

	err := svc.LinkToTrip(context.Background(), leadID, tripID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestGetReturnsLead(t *testing.T) {
	repo := new(MockLeadRepo)
	svc := NewService(repo, slog.Default())
	l := &types.Lead{ID: uuid.New(), Name: "Priya Sharma"}

	repo.On("Get", mock.Anything, l.ID).Return(l, nil)

	got, err := svc.Get(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, l, got)
}

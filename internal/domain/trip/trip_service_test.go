package trip

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mirageholidays/trip-planner-api/internal/lib/currency"
	"github.com/mirageholidays/trip-planner-api/internal/types"
)

// MockTripRepo is a mock implementation of Repository
type MockTripRepo struct {
	mock.Mock
}

func (m *MockTripRepo) CreateWithItems(ctx context.Context, plan *types.TripPlan, items []types.TripItem) (uuid.UUID, error) {
	args := m.Called(ctx, plan, items)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTripRepo) GetTripPlan(ctx context.Context, tripID uuid.UUID) (*types.TripPlan, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TripPlan), args.Error(1)
}

func (m *MockTripRepo) GetTripItems(ctx context.Context, tripID uuid.UUID) ([]types.TripItem, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.TripItem), args.Error(1)
}

// MockGenerator is a mock implementation of Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateTrip(ctx context.Context, input types.TripInput) (*types.GeneratedPlan, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.GeneratedPlan), args.Error(1)
}

func newTestService(repo Repository, gen Generator) *ServiceImpl {
	converter := currency.NewConverter(map[string]float64{"USD": 0.25}, 0)
	return NewService(repo, gen, converter, slog.Default())
}

func validInput() types.TripInput {
	return types.TripInput{
		ArrivalDate:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		DepartureDate: time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
		Adults:        2,
		Children:      1,
		Nationality:   "IN",
		BudgetTier:    types.BudgetMedium,
		TravelStyle:   types.StyleFamily,
		Occasion:      types.OccasionNone,
	}
}

func TestGeneratePersistsPlanWithIdempotencyKey(t *testing.T) {
	repo := new(MockTripRepo)
	gen := new(MockGenerator)
	svc := newTestService(repo, gen)
	ctx := context.Background()

	input := validInput()
	generated := &types.GeneratedPlan{
		Destination:    "Dubai",
		TotalPriceFils: 500000,
		Items:          []types.TripItem{item(1, "hotel", "Palm Resort", 200000, 0)},
	}
	tripID := uuid.New()

	gen.On("GenerateTrip", mock.Anything, input).Return(generated, nil)
	repo.On("CreateWithItems", mock.Anything, mock.MatchedBy(func(p *types.TripPlan) bool {
		return p.IdempotencyKey == "idem-123" &&
			p.Destination == "Dubai" &&
			p.TotalDays == 5 &&
			p.TotalPriceFils == int64(500000) &&
			p.Status == types.TripStatusGenerated
	}), generated.Items).Return(tripID, nil)

	got, err := svc.Generate(ctx, input, "idem-123")
	require.NoError(t, err)
	assert.Equal(t, tripID, got)
	repo.AssertExpectations(t)
	gen.AssertExpectations(t)
}

func TestGenerateFailurePropagatesWithoutPersisting(t *testing.T) {
	repo := new(MockTripRepo)
	gen := new(MockGenerator)
	svc := newTestService(repo, gen)
	ctx := context.Background()

	gen.On("GenerateTrip", mock.Anything, mock.Anything).Return(nil, types.ErrGeneration)

	_, err := svc.Generate(ctx, validInput(), "idem-123")
	assert.ErrorIs(t, err, types.ErrGeneration)
	repo.AssertNotCalled(t, "CreateWithItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestBuildItineraryFailsClosedOnMissingTrip(t *testing.T) {
	repo := new(MockTripRepo)
	svc := newTestService(repo, new(MockGenerator))
	ctx := context.Background()
	tripID := uuid.New()

	repo.On("GetTripPlan", mock.Anything, tripID).Return(nil, types.ErrNotFound)
	repo.On("GetTripItems", mock.Anything, tripID).Return([]types.TripItem{}, nil).Maybe()

	it, err := svc.BuildItinerary(ctx, tripID, nil, "")
	assert.ErrorIs(t, err, types.ErrNotFound)
	// Never a partial model: the caller redirects instead of rendering.
	assert.Nil(t, it)
}

func TestBuildItineraryFailsClosedOnItemsError(t *testing.T) {
	repo := new(MockTripRepo)
	svc := newTestService(repo, new(MockGenerator))
	ctx := context.Background()
	plan := testPlan()

	repo.On("GetTripPlan", mock.Anything, plan.ID).Return(plan, nil).Maybe()
	repo.On("GetTripItems", mock.Anything, plan.ID).Return(nil, assert.AnError)

	it, err := svc.BuildItinerary(ctx, plan.ID, nil, "")
	assert.Error(t, err)
	assert.Nil(t, it)
}

func TestBuildItineraryConvertsDisplayPricesLast(t *testing.T) {
	repo := new(MockTripRepo)
	svc := newTestService(repo, new(MockGenerator))
	ctx := context.Background()
	plan := testPlan()
	u := item(1, "upsell", "Balloon ride", 20000, 0)

	repo.On("GetTripPlan", mock.Anything, plan.ID).Return(plan, nil)
	repo.On("GetTripItems", mock.Anything, plan.ID).Return([]types.TripItem{u}, nil)

	it, err := svc.BuildItinerary(ctx, plan.ID, []uuid.UUID{u.ID}, "USD")
	require.NoError(t, err)

	// 5,200 AED aggregated in fils first, then converted once.
	assert.Equal(t, int64(520000), it.Pricing.GrandTotalFils)
	assert.Equal(t, "USD", it.Pricing.GrandTotal.Currency)
	assert.InDelta(t, 1300, it.Pricing.GrandTotal.Value, 0.001)
}

func TestBuildExportExpandsAllDays(t *testing.T) {
	repo := new(MockTripRepo)
	svc := newTestService(repo, new(MockGenerator))
	ctx := context.Background()
	plan := testPlan()

	repo.On("GetTripPlan", mock.Anything, plan.ID).Return(plan, nil)
	repo.On("GetTripItems", mock.Anything, plan.ID).Return([]types.TripItem{}, nil)

	it, err := svc.BuildExport(ctx, plan.ID, nil, "")
	require.NoError(t, err)
	for _, d := range it.Days {
		assert.True(t, d.Expanded)
	}
}

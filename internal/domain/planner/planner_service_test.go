package planner

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mirageholidays/trip-planner-api/internal/domain/trip"
	"github.com/mirageholidays/trip-planner-api/internal/types"
)

// MockLeadService is a mock implementation of lead.Service
type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) Create(ctx context.Context, req types.CreateLeadRequest) (*types.Lead, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Lead), args.Error(1)
}

func (m *MockLeadService) LinkToTrip(ctx context.Context, leadID, tripID uuid.UUID) error {
	return m.Called(ctx, leadID, tripID).Error(0)
}

func (m *MockLeadService) Get(ctx context.Context, leadID uuid.UUID) (*types.Lead, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Lead), args.Error(1)
}

// MockTripService is a mock implementation of trip.Service
type MockTripService struct {
	mock.Mock
}

func (m *MockTripService) Generate(ctx context.Context, input types.TripInput, idempotencyKey string) (uuid.UUID, error) {
	args := m.Called(ctx, input, idempotencyKey)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTripService) BuildItinerary(ctx context.Context, tripID uuid.UUID, includeUpsells []uuid.UUID, currencyCode string) (*trip.Itinerary, error) {
	args := m.Called(ctx, tripID, includeUpsells, currencyCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trip.Itinerary), args.Error(1)
}

func (m *MockTripService) BuildExport(ctx context.Context, tripID uuid.UUID, includeUpsells []uuid.UUID, currencyCode string) (*trip.Itinerary, error) {
	args := m.Called(ctx, tripID, includeUpsells, currencyCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trip.Itinerary), args.Error(1)
}

// MockComboService is a mock implementation of combo.Service
type MockComboService struct {
	mock.Mock
}

func (m *MockComboService) Match(ctx context.Context, q types.ComboQuery) (*types.Combo, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Combo), args.Error(1)
}

type plannerFixture struct {
	svc      *ServiceImpl
	store    *Store
	leadSvc  *MockLeadService
	tripSvc  *MockTripService
	comboSvc *MockComboService
}

func newPlannerFixture() *plannerFixture {
	f := &plannerFixture{
		store:    NewStore(),
		leadSvc:  new(MockLeadService),
		tripSvc:  new(MockTripService),
		comboSvc: new(MockComboService),
	}
	f.svc = NewService(f.store, f.leadSvc, f.tripSvc, f.comboSvc, slog.Default())
	return f
}

// startSession pushes a session through the lead gate and returns its id.
func (f *plannerFixture) startSession(t *testing.T, l *types.Lead) uuid.UUID {
	t.Helper()
	f.leadSvc.On("Get", mock.Anything, l.ID).Return(l, nil).Once()
	snap, err := f.svc.CreateSession(context.Background(), l.ID)
	require.NoError(t, err)
	return snap.ID
}

func TestCreateSessionRequiresCapturedLead(t *testing.T) {
	f := newPlannerFixture()
	leadID := uuid.New()

	f.leadSvc.On("Get", mock.Anything, leadID).Return(nil, types.ErrNotFound)

	_, err := f.svc.CreateSession(context.Background(), leadID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, 0, f.store.Len())
}

func TestCreateSessionPrefillsOccasionFromLeadHint(t *testing.T) {
	f := newPlannerFixture()
	l := &types.Lead{ID: uuid.New(), OccasionHint: types.OccasionHoneymoon}

	sessionID := f.startSession(t, l)

	snap, err := f.svc.GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, types.OccasionHoneymoon, snap.Input.Occasion)
	assert.Equal(t, l.ID, snap.LeadID)
	assert.Equal(t, StateWizard, snap.State)
	assert.Equal(t, StepDates, snap.Step)
}

func TestUpdateInputRefreshesComboWhenFactsChange(t *testing.T) {
	f := newPlannerFixture()
	ctx := context.Background()
	sessionID := f.startSession(t, &types.Lead{ID: uuid.New()})

	c := &types.Combo{ID: uuid.New(), Title: "Family Saver"}
	f.comboSvc.On("Match", mock.Anything, types.ComboQuery{
		TripDays:    5,
		BudgetTier:  types.BudgetMedium,
		TravelStyle: types.StyleFamily,
		HasChildren: true,
	}).Return(c, nil).Once()

	_, err := f.svc.UpdateInput(ctx, sessionID, InputUpdate{
		ArrivalDate:   ptr(date(2025, 6, 1)),
		DepartureDate: ptr(date(2025, 6, 5)),
		Adults:        ptr(2),
		Children:      ptr(1),
		Nationality:   ptr("IN"),
		BudgetTier:    ptr(types.BudgetMedium),
		TravelStyle:   ptr(types.StyleFamily),
	})
	require.NoError(t, err)
	f.comboSvc.AssertExpectations(t)

	// The recommendation is held back until the final step.
	snapEarly, err := f.svc.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, StepDates, snapEarly.Step)
	assert.Nil(t, snapEarly.Combo)

	session, err := f.store.Get(sessionID)
	require.NoError(t, err)
	advanceToStep(t, session, StepStyle)
	snapFinal, err := f.svc.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, snapFinal.Combo)
	assert.Equal(t, "Family Saver", snapFinal.Combo.Title)
}

func TestUpdateInputIgnoresComboFailures(t *testing.T) {
	f := newPlannerFixture()
	sessionID := f.startSession(t, &types.Lead{ID: uuid.New()})

	f.comboSvc.On("Match", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	snap, err := f.svc.UpdateInput(context.Background(), sessionID, InputUpdate{
		ArrivalDate:   ptr(date(2025, 6, 1)),
		DepartureDate: ptr(date(2025, 6, 5)),
		Adults:        ptr(2),
		Nationality:   ptr("IN"),
		BudgetTier:    ptr(types.BudgetMedium),
		TravelStyle:   ptr(types.StyleFamily),
	})
	require.NoError(t, err)
	assert.Equal(t, StateWizard, snap.State)
}

func TestUpdateInputSkipsComboUntilFactsComplete(t *testing.T) {
	f := newPlannerFixture()
	sessionID := f.startSession(t, &types.Lead{ID: uuid.New()})

	_, err := f.svc.UpdateInput(context.Background(), sessionID, InputUpdate{
		ArrivalDate:   ptr(date(2025, 6, 1)),
		DepartureDate: ptr(date(2025, 6, 5)),
	})
	require.NoError(t, err)
	f.comboSvc.AssertNotCalled(t, "Match", mock.Anything, mock.Anything)
}

func TestGenerateRunsAsyncAndLinksLead(t *testing.T) {
	f := newPlannerFixture()
	ctx := context.Background()
	l := &types.Lead{ID: uuid.New()}
	sessionID := f.startSession(t, l)
	session, err := f.store.Get(sessionID)
	require.NoError(t, err)
	advanceToStep(t, session, StepStyle)

	tripID := uuid.New()
	release := make(chan struct{})
	f.tripSvc.On("Generate", mock.Anything, mock.Anything, session.IdempotencyKey).
		Run(func(args mock.Arguments) { <-release }).
		Return(tripID, nil).Once()
	f.leadSvc.On("LinkToTrip", mock.Anything, l.ID, tripID).Return(nil).Once()

	snap, err := f.svc.Generate(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateGenerating, snap.State)
	assert.NotEmpty(t, snap.Caption)
	close(release)

	assert.Eventually(t, func() bool {
		s, err := f.svc.GetSession(ctx, sessionID)
		return err == nil && s.State == StateDone
	}, 2*time.Second, 10*time.Millisecond)

	done, err := f.svc.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, done.TripID)
	assert.Equal(t, tripID, *done.TripID)
	assert.Empty(t, done.Caption)
	f.leadSvc.AssertExpectations(t)
}

func TestGenerateWhileGeneratingConflicts(t *testing.T) {
	f := newPlannerFixture()
	ctx := context.Background()
	sessionID := f.startSession(t, &types.Lead{ID: uuid.New()})
	session, err := f.store.Get(sessionID)
	require.NoError(t, err)
	advanceToStep(t, session, StepStyle)

	release := make(chan struct{})
	f.tripSvc.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-release }).
		Return(uuid.New(), nil).Once()
	f.leadSvc.On("LinkToTrip", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	_, err = f.svc.Generate(ctx, sessionID)
	require.NoError(t, err)

	_, err = f.svc.Generate(ctx, sessionID)
	assert.ErrorIs(t, err, types.ErrConflict)
	close(release)

	assert.Eventually(t, func() bool {
		s, err := f.svc.GetSession(ctx, sessionID)
		return err == nil && s.State == StateDone
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRetryReusesInputAndIdempotencyKey(t *testing.T) {
	f := newPlannerFixture()
	ctx := context.Background()
	sessionID := f.startSession(t, &types.Lead{ID: uuid.New()})
	session, err := f.store.Get(sessionID)
	require.NoError(t, err)
	advanceToStep(t, session, StepStyle)
	wizardInput := session.Snapshot().Input

	f.tripSvc.On("Generate", mock.Anything, wizardInput, session.IdempotencyKey).
		Return(uuid.Nil, types.ErrGeneration).Once()

	_, err = f.svc.Generate(ctx, sessionID)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		s, err := f.svc.GetSession(ctx, sessionID)
		return err == nil && s.State == StateFailed
	}, 2*time.Second, 10*time.Millisecond)

	failed, err := f.svc.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, failed.GenerationErr)
	// Form state survives the failure for the retry.
	assert.Equal(t, wizardInput, failed.Input)

	tripID := uuid.New()
	f.tripSvc.On("Generate", mock.Anything, wizardInput, session.IdempotencyKey).
		Return(tripID, nil).Once()
	f.leadSvc.On("LinkToTrip", mock.Anything, mock.Anything, tripID).Return(nil).Once()

	_, err = f.svc.Retry(ctx, sessionID)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		s, err := f.svc.GetSession(ctx, sessionID)
		return err == nil && s.State == StateDone
	}, 2*time.Second, 10*time.Millisecond)
	f.tripSvc.AssertExpectations(t)
}

func TestRetryWithoutFailedGenerationConflicts(t *testing.T) {
	f := newPlannerFixture()
	ctx := context.Background()
	sessionID := f.startSession(t, &types.Lead{ID: uuid.New()})
	session, err := f.store.Get(sessionID)
	require.NoError(t, err)
	advanceToStep(t, session, StepStyle)

	// A completed wizard that never generated has nothing to retry; it
	// must not sneak in a first generation through the retry endpoint.
	_, err = f.svc.Retry(ctx, sessionID)
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.Equal(t, StateWizard, session.Snapshot().State)
	f.tripSvc.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestLinkFailureDoesNotBlockCompletion(t *testing.T) {
	f := newPlannerFixture()
	ctx := context.Background()
	sessionID := f.startSession(t, &types.Lead{ID: uuid.New()})
	session, err := f.store.Get(sessionID)
	require.NoError(t, err)
	advanceToStep(t, session, StepStyle)

	tripID := uuid.New()
	f.tripSvc.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(tripID, nil).Once()
	f.leadSvc.On("LinkToTrip", mock.Anything, mock.Anything, tripID).Return(assert.AnError).Once()

	_, err = f.svc.Generate(ctx, sessionID)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		s, err := f.svc.GetSession(ctx, sessionID)
		return err == nil && s.State == StateDone
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDismissComboHidesRecommendationForGood(t *testing.T) {
	f := newPlannerFixture()
	ctx := context.Background()
	sessionID := f.startSession(t, &types.Lead{ID: uuid.New()})
	session, err := f.store.Get(sessionID)
	require.NoError(t, err)
	advanceToStep(t, session, StepStyle)
	session.SetCombo(&types.Combo{ID: uuid.New(), Title: "Family Saver"})

	snap, err := f.svc.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, snap.Combo)

	snap, err = f.svc.DismissCombo(ctx, sessionID)
	require.NoError(t, err)
	assert.Nil(t, snap.Combo)
	assert.True(t, snap.ComboDismissed)
}

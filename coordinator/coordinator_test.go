package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restomap.app/client"
	apperrors "restomap.app/errors"
	"restomap.app/models"
)

var _ Backend = (*client.Client)(nil)

// fakeBackend counts every call and delegates to overridable handlers
type fakeBackend struct {
	authed bool

	createHistoryFn func(ctx context.Context, stationIDs []string) (uint, error)
	addFavoriteFn   func(ctx context.Context, token, hotpepperID string) (*models.FavoriteResponse, error)
	addByHistoryFn  func(ctx context.Context, historyID uint, hotpepperID string) (*models.FavoriteResponse, error)
	removeFn        func(ctx context.Context, favoriteID uint) error
	statusFn        func(ctx context.Context, historyID uint, hotpepperID string) (*models.FavoriteStatusResponse, error)

	createHistoryCalls int64
	addFavoriteCalls   int64
	addByHistoryCalls  int64
	removeCalls        int64
	statusCalls        int64
}

func (f *fakeBackend) Authenticated() bool { return f.authed }

func (f *fakeBackend) CreateSearchHistory(ctx context.Context, stationIDs []string) (uint, error) {
	atomic.AddInt64(&f.createHistoryCalls, 1)
	if f.createHistoryFn == nil {
		return 1, nil
	}
	return f.createHistoryFn(ctx, stationIDs)
}

func (f *fakeBackend) AddFavorite(ctx context.Context, token, hotpepperID string) (*models.FavoriteResponse, error) {
	atomic.AddInt64(&f.addFavoriteCalls, 1)
	if f.addFavoriteFn == nil {
		return &models.FavoriteResponse{ID: 10, HotpepperID: hotpepperID}, nil
	}
	return f.addFavoriteFn(ctx, token, hotpepperID)
}

func (f *fakeBackend) AddFavoriteBySearchHistory(ctx context.Context, historyID uint, hotpepperID string) (*models.FavoriteResponse, error) {
	atomic.AddInt64(&f.addByHistoryCalls, 1)
	if f.addByHistoryFn == nil {
		return &models.FavoriteResponse{ID: 11, HotpepperID: hotpepperID}, nil
	}
	return f.addByHistoryFn(ctx, historyID, hotpepperID)
}

func (f *fakeBackend) RemoveFavorite(ctx context.Context, favoriteID uint) error {
	atomic.AddInt64(&f.removeCalls, 1)
	if f.removeFn == nil {
		return nil
	}
	return f.removeFn(ctx, favoriteID)
}

func (f *fakeBackend) FavoriteStatus(ctx context.Context, historyID uint, hotpepperID string) (*models.FavoriteStatusResponse, error) {
	atomic.AddInt64(&f.statusCalls, 1)
	if f.statusFn == nil {
		return &models.FavoriteStatusResponse{IsFavorite: false}, nil
	}
	return f.statusFn(ctx, historyID, hotpepperID)
}

func (f *fakeBackend) totalCalls() int64 {
	return atomic.LoadInt64(&f.createHistoryCalls) +
		atomic.LoadInt64(&f.addFavoriteCalls) +
		atomic.LoadInt64(&f.addByHistoryCalls) +
		atomic.LoadInt64(&f.removeCalls) +
		atomic.LoadInt64(&f.statusCalls)
}

func TestToggle_UnauthenticatedAborts(t *testing.T) {
	backend := &fakeBackend{authed: false}
	coord := New(backend)
	coord.SetPendingSearch([]string{"ST-1"})
	card := coord.RegisterKnownCard("R001", "", 0)

	outcome, err := coord.Toggle(context.Background(), card)

	assert.Equal(t, OutcomeLoginRequired, outcome)
	assert.True(t, apperrors.IsUnauthorizedError(err))
	assert.Equal(t, StateNotFavorited, card.State())
	assert.Equal(t, int64(0), backend.totalCalls(), "anonymous clicks must not reach the backend")
}

func TestToggle_TokenPathSave(t *testing.T) {
	backend := &fakeBackend{authed: true}
	coord := New(backend)
	card := coord.RegisterKnownCard("R001", "opaque-token", 0)

	outcome, err := coord.Toggle(context.Background(), card)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, outcome)
	assert.Equal(t, StateFavorited, card.State())
	assert.Equal(t, uint(10), card.FavoriteID())
	assert.Equal(t, int64(1), backend.addFavoriteCalls)
	assert.Equal(t, int64(0), backend.createHistoryCalls, "token path needs no search history")
}

func TestToggle_TamperedEchoRejected(t *testing.T) {
	backend := &fakeBackend{authed: true}
	backend.addFavoriteFn = func(_ context.Context, _, _ string) (*models.FavoriteResponse, error) {
		return &models.FavoriteResponse{ID: 10, HotpepperID: "R999"}, nil
	}
	coord := New(backend)
	card := coord.RegisterKnownCard("R001", "opaque-token", 0)

	outcome, err := coord.Toggle(context.Background(), card)

	assert.Equal(t, OutcomeRejected, outcome)
	assert.True(t, apperrors.IsValidationError(err))
	assert.Equal(t, StateNotFavorited, card.State(), "tampered save must revert the button")
	assert.Equal(t, uint(0), card.FavoriteID())
}

func TestToggle_HistoryCreatedOnceAcrossCards(t *testing.T) {
	backend := &fakeBackend{authed: true}
	backend.createHistoryFn = func(_ context.Context, stationIDs []string) (uint, error) {
		assert.Equal(t, []string{"ST-2", "ST-1"}, stationIDs)
		return 7, nil
	}
	var seenHistoryIDs []uint
	backend.addByHistoryFn = func(_ context.Context, historyID uint, hotpepperID string) (*models.FavoriteResponse, error) {
		seenHistoryIDs = append(seenHistoryIDs, historyID)
		return &models.FavoriteResponse{ID: uint(len(seenHistoryIDs)), HotpepperID: hotpepperID}, nil
	}

	coord := New(backend)
	coord.SetPendingSearch([]string{"ST-2", "ST-1"})
	first := coord.RegisterKnownCard("R001", "", 0)
	second := coord.RegisterKnownCard("R002", "", 0)

	outcome, err := coord.Toggle(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, outcome)

	outcome, err = coord.Toggle(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, outcome)

	assert.Equal(t, int64(1), backend.createHistoryCalls, "the search context resolves to one history")
	assert.Equal(t, []uint{7, 7}, seenHistoryIDs)
}

func TestToggle_NoSearchContextReturnsToSearch(t *testing.T) {
	backend := &fakeBackend{authed: true}
	coord := New(backend)
	card := coord.RegisterKnownCard("R001", "", 0)

	outcome, err := coord.Toggle(context.Background(), card)

	require.NoError(t, err)
	assert.Equal(t, OutcomeReturnToSearch, outcome)
	assert.Equal(t, StateNotFavorited, card.State())
	assert.Equal(t, int64(0), backend.totalCalls())
}

func TestToggle_SaveFailureRollsBack(t *testing.T) {
	backend := &fakeBackend{authed: true}
	backend.addByHistoryFn = func(_ context.Context, _ uint, _ string) (*models.FavoriteResponse, error) {
		return nil, apperrors.NewNetworkError("failed to reach backend", nil)
	}
	coord := New(backend)
	coord.SetSearchHistoryID(7)
	card := coord.RegisterKnownCard("R001", "", 0)

	outcome, err := coord.Toggle(context.Background(), card)

	assert.Equal(t, OutcomeFailed, outcome)
	assert.True(t, apperrors.IsNetworkError(err))
	assert.Equal(t, StateNotFavorited, card.State(), "failed save must revert the optimistic flip")
}

func TestToggle_RemoveFailureRollsBack(t *testing.T) {
	backend := &fakeBackend{authed: true}
	backend.removeFn = func(_ context.Context, _ uint) error {
		return apperrors.NewServerError("backend returned status code 503", nil)
	}
	coord := New(backend)
	card := coord.RegisterKnownCard("R001", "", 21)

	outcome, err := coord.Toggle(context.Background(), card)

	assert.Equal(t, OutcomeFailed, outcome)
	require.Error(t, err)
	assert.Equal(t, StateFavorited, card.State())
	assert.Equal(t, uint(21), card.FavoriteID(), "failed removal keeps the favorite")
}

func TestToggle_Remove(t *testing.T) {
	backend := &fakeBackend{authed: true}
	coord := New(backend)
	card := coord.RegisterKnownCard("R001", "", 21)

	outcome, err := coord.Toggle(context.Background(), card)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, outcome)
	assert.Equal(t, StateNotFavorited, card.State())
	assert.Equal(t, uint(0), card.FavoriteID())
	assert.Equal(t, int64(1), backend.removeCalls)
}

func TestToggle_RemoveAlreadyGoneTreatedAsRemoved(t *testing.T) {
	backend := &fakeBackend{authed: true}
	backend.removeFn = func(_ context.Context, _ uint) error {
		return apperrors.NewNotFoundError("favorite not found")
	}
	coord := New(backend)
	card := coord.RegisterKnownCard("R001", "", 21)

	outcome, err := coord.Toggle(context.Background(), card)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, outcome)
	assert.Equal(t, StateNotFavorited, card.State())
}

func TestToggle_OverlappingClicksIgnored(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{authed: true}
	backend.addFavoriteFn = func(_ context.Context, _, hotpepperID string) (*models.FavoriteResponse, error) {
		<-release
		return &models.FavoriteResponse{ID: 10, HotpepperID: hotpepperID}, nil
	}
	coord := New(backend)
	card := coord.RegisterKnownCard("R001", "opaque-token", 0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		outcome, err := coord.Toggle(context.Background(), card)
		assert.NoError(t, err)
		assert.Equal(t, OutcomeSaved, outcome)
	}()

	require.Eventually(t, func() bool {
		return card.State() == StatePendingAdd
	}, time.Second, time.Millisecond)

	outcome, err := coord.Toggle(context.Background(), card)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.NoError(t, err)

	close(release)
	wg.Wait()

	assert.Equal(t, StateFavorited, card.State())
	assert.Equal(t, int64(1), backend.addFavoriteCalls, "overlapping clicks must not stack requests")
}

func TestToggle_GuardClearedAfterFailure(t *testing.T) {
	backend := &fakeBackend{authed: true}
	fail := true
	backend.addFavoriteFn = func(_ context.Context, _, hotpepperID string) (*models.FavoriteResponse, error) {
		if fail {
			return nil, apperrors.NewNetworkError("failed to reach backend", nil)
		}
		return &models.FavoriteResponse{ID: 10, HotpepperID: hotpepperID}, nil
	}
	coord := New(backend)
	card := coord.RegisterKnownCard("R001", "opaque-token", 0)

	outcome, _ := coord.Toggle(context.Background(), card)
	assert.Equal(t, OutcomeFailed, outcome)

	fail = false
	outcome, err := coord.Toggle(context.Background(), card)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, outcome, "a failed toggle must not leave the guard held")
}

func TestToggle_CancelledRequestRollsBack(t *testing.T) {
	backend := &fakeBackend{authed: true}
	backend.addFavoriteFn = func(ctx context.Context, _, _ string) (*models.FavoriteResponse, error) {
		<-ctx.Done()
		return nil, apperrors.NewNetworkError("failed to reach backend", ctx.Err())
	}
	coord := New(backend)
	card := coord.RegisterKnownCard("R001", "opaque-token", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := coord.Toggle(ctx, card)

	assert.Equal(t, OutcomeFailed, outcome)
	require.Error(t, err)
	assert.Equal(t, StateNotFavorited, card.State())
}

func TestRefresh_KnownCardSkipsProbe(t *testing.T) {
	backend := &fakeBackend{authed: true}
	coord := New(backend)
	coord.SetSearchHistoryID(7)
	card := coord.RegisterKnownCard("R001", "", 21)

	require.NoError(t, coord.Refresh(context.Background(), card))

	assert.Equal(t, StateFavorited, card.State())
	assert.Equal(t, int64(0), backend.statusCalls, "page data already answered the question")
}

func TestRefresh_AnonymousSettlesLocally(t *testing.T) {
	backend := &fakeBackend{authed: false}
	coord := New(backend)
	card := coord.RegisterCard("R001", "")

	require.NoError(t, coord.Refresh(context.Background(), card))

	assert.Equal(t, StateNotFavorited, card.State())
	assert.Equal(t, int64(0), backend.totalCalls())
}

func TestRefresh_ProbesBackend(t *testing.T) {
	backend := &fakeBackend{authed: true}
	favoriteID := uint(33)
	backend.statusFn = func(_ context.Context, historyID uint, hotpepperID string) (*models.FavoriteStatusResponse, error) {
		assert.Equal(t, uint(7), historyID)
		assert.Equal(t, "R001", hotpepperID)
		return &models.FavoriteStatusResponse{IsFavorite: true, FavoriteID: &favoriteID}, nil
	}
	coord := New(backend)
	coord.SetSearchHistoryID(7)
	card := coord.RegisterCard("R001", "")

	require.NoError(t, coord.Refresh(context.Background(), card))

	assert.Equal(t, StateFavorited, card.State())
	assert.Equal(t, uint(33), card.FavoriteID())
}

func TestRefresh_ProbeFailureStaysUnchecked(t *testing.T) {
	backend := &fakeBackend{authed: true}
	backend.statusFn = func(_ context.Context, _ uint, _ string) (*models.FavoriteStatusResponse, error) {
		return nil, apperrors.NewNetworkError("failed to reach backend", nil)
	}
	coord := New(backend)
	coord.SetSearchHistoryID(7)
	card := coord.RegisterCard("R001", "")

	err := coord.Refresh(context.Background(), card)

	require.Error(t, err)
	assert.Equal(t, StateUnchecked, card.State(), "a failed probe can be retried")
}

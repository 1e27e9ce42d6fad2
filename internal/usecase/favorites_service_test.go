package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/sports-tracker/internal/domain/delta"
	"github.com/riskibarqy/sports-tracker/internal/domain/favorite"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/domain/summary"
	favoritemock "github.com/riskibarqy/sports-tracker/internal/mocks/domain/favorite"
	"github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type staticIDs struct{ id string }

func (g staticIDs) NewID() (string, error) { return g.id, nil }

func newTestFavoritesService(repo favorite.Repository, espn *fakeESPN, store cache.Store) (*FavoritesService, *SportsDataService) {
	data := newTestDataService(espn, &fakeMLB{}, store)
	svc := NewFavoritesService(repo, data, store, staticIDs{id: "sync-1"}, nil, logging.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc, data
}

func TestFavoritesService_SaveTeamsUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := favoritemock.NewRepository(t)
	svc, data := newTestFavoritesService(repo, newFakeESPN(), cache.NewMemoryStore())

	repo.
		On("Save", ctx, mock.MatchedBy(func(v favorite.Favorites) bool {
			return v.UserID == "user-1" &&
				len(v.Teams) == 2 &&
				v.Teams[0].Sport == game.SportNBA &&
				v.Teams[0].AddedAt != "" &&
				v.Teams[1].AddedAt == "2026-01-01T00:00:00Z"
		})).
		Return(nil).
		Once()

	got, err := svc.SaveTeams(ctx, "user-1", []favorite.Team{
		{TeamID: "13", Sport: "NBA"},
		{TeamID: "147", Sport: game.SportMLB, AddedAt: "2026-01-01T00:00:00Z"},
		{TeamID: "13", Sport: "NBA"},
	})
	require.NoError(t, err)
	assert.True(t, got.Success)
	assert.Equal(t, delta.FormatTimestamp(testNow), got.LastUpdate)
	assert.Len(t, data.TrackedTeams(), 2)
}

func TestFavoritesService_SaveTeamsRequiresArray(t *testing.T) {
	t.Parallel()

	repo := favoritemock.NewRepository(t)
	svc, _ := newTestFavoritesService(repo, newFakeESPN(), cache.NewMemoryStore())

	_, err := svc.SaveTeams(context.Background(), "user-1", nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFavoritesService_GetTeamsUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := favoritemock.NewRepository(t)
	svc, _ := newTestFavoritesService(repo, newFakeESPN(), cache.NewMemoryStore())
	stored := favorite.Favorites{
		UserID:     "user-1",
		Teams:      []favorite.Team{{TeamID: "13", Sport: game.SportNBA}},
		LastUpdate: "2026-07-01T12:00:00.000Z",
	}

	repo.On("Get", ctx, "missing").Return(favorite.Favorites{}, false, nil).Once()
	repo.On("Get", ctx, "user-1").Return(stored, true, nil).Times(3)

	empty, err := svc.GetTeams(ctx, "missing", "")
	require.NoError(t, err)
	assert.IsType(t, EmptyFavorites{}, empty)

	plain, err := svc.GetTeams(ctx, "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, stored, plain)

	current, err := svc.GetTeams(ctx, "user-1", "2026-07-01T13:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, delta.TypeNone, current.(delta.ObjectDelta).DeltaType)

	stale, err := svc.GetTeams(ctx, "user-1", "2026-07-01T11:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, delta.TypePartial, stale.(delta.ObjectDelta).DeltaType)
}

func TestFavoritesService_GamesFiltersBySport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	espn := newFakeESPN()
	espn.setEvents(game.SportNBA, espnEvent(game.SportNBA, "401", "in", "13", 10, "2", 8))
	repo := favoritemock.NewRepository(t)
	svc, _ := newTestFavoritesService(repo, espn, cache.NewMemoryStore())

	repo.On("Get", ctx, "user-1").Return(favorite.Favorites{
		UserID: "user-1",
		Teams: []favorite.Team{
			{TeamID: "13", Sport: game.SportNBA},
			{TeamID: "147", Sport: game.SportMLB},
		},
	}, true, nil).Twice()

	got, err := svc.Games(ctx, "user-1", "", []string{"nba"})
	require.NoError(t, err)
	assert.Equal(t, delta.TypeFull, got.DeltaType)
	require.Len(t, got.Games, 1)
	assert.Equal(t, "401", got.Games[0].ID)

	none, err := svc.Games(ctx, "user-1", "", []string{"cricket"})
	require.NoError(t, err)
	assert.False(t, none.HasChanges)
	assert.Empty(t, none.Games)
}

func TestFavoritesService_SummaryIsCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	espn := newFakeESPN()
	espn.setEvents(game.SportNBA, espnEvent(game.SportNBA, "401", "in", "13", 10, "2", 8))
	store := cache.NewMemoryStore()
	repo := favoritemock.NewRepository(t)
	svc, _ := newTestFavoritesService(repo, espn, store)

	repo.On("Get", ctx, "user-1").Return(favorite.Favorites{
		UserID: "user-1",
		Teams:  []favorite.Team{{TeamID: "13", Sport: game.SportNBA}},
	}, true, nil).Once()

	first, err := svc.Summary(ctx, "user-1", "")
	require.NoError(t, err)
	built := first.(summary.Summary)
	assert.Equal(t, 1, built.LiveGames)
	assert.Equal(t, 1, built.TotalFavorites)

	again, err := svc.Summary(ctx, "user-1", built.LastUpdate)
	require.NoError(t, err)
	assert.Equal(t, delta.TypeNone, again.(delta.ObjectDelta).DeltaType)
}

func TestFavoritesService_SyncRecordsStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	espn := newFakeESPN()
	espn.setEvents(game.SportNBA, espnEvent(game.SportNBA, "401", "in", "13", 10, "2", 8))
	espn.errs[game.SportNFL] = errors.New("espn down")
	store := cache.NewMemoryStore()
	repo := favoritemock.NewRepository(t)
	svc, _ := newTestFavoritesService(repo, espn, store)

	teams := []favorite.Team{
		{TeamID: "13", Sport: game.SportNBA},
		{TeamID: "12", Sport: game.SportNFL},
	}
	repo.On("Get", ctx, "user-1").Return(favorite.Favorites{UserID: "user-1", Teams: teams}, true, nil).Once()

	before, err := svc.SyncStatus(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, SyncStatusNever, before.Status)

	status, err := svc.Sync(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "sync-1", status.SyncID)
	assert.Equal(t, SyncStatusPartial, status.Status)
	assert.Equal(t, []string{"nfl"}, status.FailedSports)
	assert.Equal(t, 1, status.GameCount)

	stored, err := svc.SyncStatus(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, status, stored)

	_, ok := store.Get(ctx, cache.Key("user_summary", "user-1"))
	assert.True(t, ok, "sync should refresh the cached summary")
	_, ok = store.Get(ctx, cache.Key("games_snapshot", favorite.Hash(teams)))
	assert.False(t, ok, "partial sync must not write the games snapshot")
}

func TestFavoritesService_ClearCacheUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := cache.NewMemoryStore()
	repo := favoritemock.NewRepository(t)
	svc, _ := newTestFavoritesService(repo, newFakeESPN(), store)

	store.Set(ctx, cache.Key("user_summary", "user-1"), []byte(`{}`), time.Minute)
	store.Set(ctx, cache.Key("user_games", "user-1"), []byte(`{}`), time.Minute)
	repo.On("Delete", ctx, "user-1").Return(nil).Once()

	require.NoError(t, svc.ClearCache(ctx, "user-1"))
	_, summaryLeft := store.Get(ctx, cache.Key("user_summary", "user-1"))
	_, gamesLeft := store.Get(ctx, cache.Key("user_games", "user-1"))
	assert.False(t, summaryLeft)
	assert.False(t, gamesLeft)
}

func TestFavoritesService_DeltaIncludesSummary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	espn := newFakeESPN()
	espn.setEvents(game.SportNBA, espnEvent(game.SportNBA, "401", "pre", "13", 0, "2", 0))
	repo := favoritemock.NewRepository(t)
	svc, _ := newTestFavoritesService(repo, espn, cache.NewMemoryStore())

	repo.On("Get", ctx, "user-1").Return(favorite.Favorites{
		UserID:     "user-1",
		Teams:      []favorite.Team{{TeamID: "13", Sport: game.SportNBA}},
		LastUpdate: "2026-07-01T12:00:00.000Z",
	}, true, nil).Twice()

	got, err := svc.Delta(ctx, "user-1", "", true)
	require.NoError(t, err)
	assert.Nil(t, got.LastSync)
	assert.Equal(t, delta.TypeFull, got.Favorites.DeltaType)
	assert.Equal(t, delta.TypeFull, got.Games.DeltaType)
	require.NotNil(t, got.Summary)
	assert.Equal(t, delta.TypeFull, got.Summary.DeltaType)
}

package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/sports-tracker/internal/domain/favorite"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/domain/subscription"
	basecache "github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
)

func TestFavoriteRepository_RoundTripAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := basecache.NewMemoryStore()
	repo := NewFavoriteRepository(store)

	for _, userID := range []string{"user-b", "user-a"} {
		err := repo.Save(ctx, favorite.Favorites{
			UserID: userID,
			Teams:  []favorite.Team{{TeamID: "13", Sport: game.SportNBA}},
		})
		if err != nil {
			t.Fatalf("save %s: %v", userID, err)
		}
	}
	store.Set(ctx, basecache.Key("user_summary", "user-c"), []byte(`{}`), FavoritesTTL)

	got, ok, err := repo.Get(ctx, "user-a")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(got.Teams) != 1 || got.Teams[0].TeamID != "13" {
		t.Fatalf("unexpected favorites: %+v", got)
	}

	ids, err := repo.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 || ids[0] != "user-a" || ids[1] != "user-b" {
		t.Fatalf("unexpected ids: %v", ids)
	}

	if err := repo.Delete(ctx, "user-a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := repo.Get(ctx, "user-a"); ok {
		t.Fatalf("deleted favorites must be gone")
	}
}

func TestFavoriteRepository_DegradedStoreReportsUnavailable(t *testing.T) {
	t.Parallel()

	store := basecache.NewRedisStore(context.Background(), "redis://127.0.0.1:1/0", logging.NewNop())
	defer store.Close()
	repo := NewFavoriteRepository(store)

	err := repo.Save(context.Background(), favorite.Favorites{UserID: "user-1"})
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if _, ok, err := repo.Get(context.Background(), "user-1"); ok || err != nil {
		t.Fatalf("degraded reads must be misses, ok=%v err=%v", ok, err)
	}
}

func TestSubscriptionRepository_RoundTripAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewSubscriptionRepository(basecache.NewMemoryStore())

	sub := subscription.PushSubscription{
		UserID:       "user-1",
		Subscription: subscription.WebPush{Endpoint: "https://push.example.com/1"},
		Preferences:  subscription.DefaultPreferences(),
	}
	if err := repo.Save(ctx, sub); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(ctx, subscription.PushSubscription{}); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty user, got %v", err)
	}

	got, ok, err := repo.Get(ctx, "user-1")
	if err != nil || !ok || got != sub {
		t.Fatalf("unexpected get: %+v ok=%v err=%v", got, ok, err)
	}

	ids, _ := repo.ListUserIDs(ctx)
	if len(ids) != 1 || ids[0] != "user-1" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

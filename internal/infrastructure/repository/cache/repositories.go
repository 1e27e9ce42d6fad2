package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/sports-tracker/internal/domain/favorite"
	"github.com/riskibarqy/sports-tracker/internal/domain/subscription"
	basecache "github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
)

const (
	favoritesKind    = "user_favorites"
	subscriptionKind = "push_subscription"

	FavoritesTTL = time.Hour
)

type FavoriteRepository struct {
	store basecache.Store
}

var _ favorite.Repository = (*FavoriteRepository)(nil)

func NewFavoriteRepository(store basecache.Store) *FavoriteRepository {
	return &FavoriteRepository{store: store}
}

func (r *FavoriteRepository) Get(ctx context.Context, userID string) (favorite.Favorites, bool, error) {
	item, ok := basecache.GetJSON[favorite.Favorites](ctx, r.store, basecache.Key(favoritesKind, userID))
	if !ok {
		return favorite.Favorites{}, false, nil
	}
	item.Teams = append([]favorite.Team(nil), item.Teams...)
	return item, true, nil
}

func (r *FavoriteRepository) Save(ctx context.Context, item favorite.Favorites) error {
	if strings.TrimSpace(item.UserID) == "" {
		return fmt.Errorf("%w: user id is required", usecase.ErrInvalidInput)
	}
	if !basecache.SetJSON(ctx, r.store, basecache.Key(favoritesKind, item.UserID), item, FavoritesTTL) {
		return fmt.Errorf("%w: favorites not stored", usecase.ErrDependencyUnavailable)
	}
	return nil
}

func (r *FavoriteRepository) Delete(ctx context.Context, userID string) error {
	r.store.Delete(ctx, basecache.Key(favoritesKind, userID))
	return nil
}

func (r *FavoriteRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	return listIDs(ctx, r.store, favoritesKind), nil
}

type SubscriptionRepository struct {
	store basecache.Store
}

var _ subscription.Repository = (*SubscriptionRepository)(nil)

func NewSubscriptionRepository(store basecache.Store) *SubscriptionRepository {
	return &SubscriptionRepository{store: store}
}

func (r *SubscriptionRepository) Get(ctx context.Context, userID string) (subscription.PushSubscription, bool, error) {
	item, ok := basecache.GetJSON[subscription.PushSubscription](ctx, r.store, basecache.Key(subscriptionKind, userID))
	return item, ok, nil
}

// Save refreshes the 30-day ttl on every write.
func (r *SubscriptionRepository) Save(ctx context.Context, item subscription.PushSubscription) error {
	if strings.TrimSpace(item.UserID) == "" {
		return fmt.Errorf("%w: user id is required", usecase.ErrInvalidInput)
	}
	if !basecache.SetJSON(ctx, r.store, basecache.Key(subscriptionKind, item.UserID), item, subscription.TTL) {
		return fmt.Errorf("%w: subscription not stored", usecase.ErrDependencyUnavailable)
	}
	return nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, userID string) error {
	r.store.Delete(ctx, basecache.Key(subscriptionKind, userID))
	return nil
}

func (r *SubscriptionRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	return listIDs(ctx, r.store, subscriptionKind), nil
}

// listIDs scans kind's keys and returns the trailing ids, sorted.
func listIDs(ctx context.Context, store basecache.Store, kind string) []string {
	prefix := basecache.Key(kind) + ":"
	keys := store.Keys(ctx, prefix+"*")

	out := make([]string, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimPrefix(key, prefix)
		if id == "" || id == key {
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

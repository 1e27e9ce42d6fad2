package favorite

import "context"

// Repository persists favorites per user.
type Repository interface {
	Get(ctx context.Context, userID string) (Favorites, bool, error)
	Save(ctx context.Context, favorites Favorites) error
	Delete(ctx context.Context, userID string) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

package subscription

import (
	"context"
	"strings"
	"time"
)

// TTL is how long a stored subscription survives without being refreshed.
const TTL = 30 * 24 * time.Hour

type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// WebPush is the browser PushSubscription object as posted by clients.
type WebPush struct {
	Endpoint       string `json:"endpoint" validate:"required"`
	ExpirationTime *int64 `json:"expirationTime,omitempty"`
	Keys           Keys   `json:"keys"`
}

// Preferences toggles the notification kinds a user receives.
type Preferences struct {
	GameStart   bool `json:"gameStart"`
	ScoreUpdate bool `json:"scoreUpdate"`
	GameEnd     bool `json:"gameEnd"`
	News        bool `json:"news"`
}

func DefaultPreferences() Preferences {
	return Preferences{GameStart: true, ScoreUpdate: true, GameEnd: true, News: false}
}

// PreferencesPatch carries a partial update; nil fields keep their value.
type PreferencesPatch struct {
	GameStart   *bool `json:"gameStart,omitempty"`
	ScoreUpdate *bool `json:"scoreUpdate,omitempty"`
	GameEnd     *bool `json:"gameEnd,omitempty"`
	News        *bool `json:"news,omitempty"`
}

func (p Preferences) Merge(patch PreferencesPatch) Preferences {
	if patch.GameStart != nil {
		p.GameStart = *patch.GameStart
	}
	if patch.ScoreUpdate != nil {
		p.ScoreUpdate = *patch.ScoreUpdate
	}
	if patch.GameEnd != nil {
		p.GameEnd = *patch.GameEnd
	}
	if patch.News != nil {
		p.News = *patch.News
	}
	return p
}

// PushSubscription is the stored record for one user.
type PushSubscription struct {
	UserID       string      `json:"userId"`
	Subscription WebPush     `json:"subscription"`
	Preferences  Preferences `json:"preferences"`
	CreatedAt    string      `json:"createdAt"`
	LastUsed     string      `json:"lastUsed"`
}

// Repository persists one subscription per user.
type Repository interface {
	Get(ctx context.Context, userID string) (PushSubscription, bool, error)
	Save(ctx context.Context, sub PushSubscription) error
	Delete(ctx context.Context, userID string) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

// NormalizeVAPIDSubject returns a subject the push service accepts, or ""
// when value is unusable. Bare e-mail addresses gain a mailto: prefix.
func NormalizeVAPIDSubject(value string) string {
	value = strings.TrimSpace(value)
	lower := strings.ToLower(value)
	switch {
	case value == "":
		return ""
	case strings.HasPrefix(lower, "mailto:"),
		strings.HasPrefix(lower, "https://"),
		strings.HasPrefix(lower, "http://"):
		return value
	case strings.Contains(value, "@") && !strings.ContainsAny(value, " /"):
		return "mailto:" + value
	default:
		return ""
	}
}

package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/sports-tracker/internal/domain/delta"
	"github.com/riskibarqy/sports-tracker/internal/domain/favorite"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/domain/subscription"
	"github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/platform/metrics"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
)

const (
	userPreviousGamesTTL = time.Hour
	defaultNotifyWorkers = 8

	defaultNotificationTitle = "Sports Tracker"
	notificationIcon         = "/icon-192x192.png"
	notificationBadge        = "/badge-72x72.png"
)

const (
	NotificationGameStart   = "game_start"
	NotificationScoreUpdate = "score_update"
	NotificationGameEnd     = "game_end"
)

const (
	DeliverySent         = "sent"
	DeliveryNoSubscriber = "no-subscription"
	DeliveryDisabled     = "webpush-disabled"
	DeliveryExpired      = "subscription-expired"
	DeliveryFailed       = "send-failed"
)

// PushSender delivers an encoded payload to one browser subscription.
type PushSender interface {
	Enabled() bool
	PublicKey() string
	Send(ctx context.Context, target subscription.WebPush, payload []byte) error
}

// PushDeliveryError is returned by a PushSender when the push service
// answered with a non-success status.
type PushDeliveryError struct {
	StatusCode int
	Body       string
}

func (e *PushDeliveryError) Error() string {
	return fmt.Sprintf("push service responded %d: %s", e.StatusCode, e.Body)
}

// Expired reports whether the subscription no longer exists upstream.
func (e *PushDeliveryError) Expired() bool {
	return e.StatusCode == 404 || e.StatusCode == 410
}

// Notification is one message before it is serialized for the push service.
type Notification struct {
	Type  string         `json:"-"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon"`
	Badge string         `json:"badge"`
	Data  map[string]any `json:"data"`
}

type DeliveryResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

type SubscribeInput struct {
	Subscription subscription.WebPush
	Preferences  *subscription.Preferences
}

type TestNotificationInput struct {
	Title string
	Body  string
	Data  map[string]any
}

// NotificationRunStats summarizes one notification scan.
type NotificationRunStats struct {
	Users   int `json:"users"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Expired int `json:"expired"`
}

type NotificationService struct {
	subs      subscription.Repository
	favorites favorite.Repository
	data      *SportsDataService
	store     cache.Store
	sender    PushSender
	workers   int
	metrics   *metrics.Recorder
	logger    *logging.Logger
	now       func() time.Time
}

func NewNotificationService(
	subs subscription.Repository,
	favorites favorite.Repository,
	data *SportsDataService,
	store cache.Store,
	sender PushSender,
	workers int,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) *NotificationService {
	if logger == nil {
		logger = logging.Default()
	}
	if workers <= 0 {
		workers = defaultNotifyWorkers
	}
	return &NotificationService{
		subs:      subs,
		favorites: favorites,
		data:      data,
		store:     store,
		sender:    sender,
		workers:   workers,
		metrics:   recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Subscribe stores the browser subscription, replacing any previous one.
func (s *NotificationService) Subscribe(ctx context.Context, userID string, input SubscribeInput) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.Subscribe")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Subscription.Endpoint) == "" {
		return fmt.Errorf("%w: Invalid subscription object", ErrInvalidInput)
	}

	prefs := subscription.DefaultPreferences()
	if input.Preferences != nil {
		prefs = *input.Preferences
	}
	now := delta.FormatTimestamp(s.now())
	err := s.subs.Save(ctx, subscription.PushSubscription{
		UserID:       userID,
		Subscription: input.Subscription,
		Preferences:  prefs,
		CreatedAt:    now,
		LastUsed:     now,
	})
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// UpdatePreferences merges patch into the stored preferences.
func (s *NotificationService) UpdatePreferences(ctx context.Context, userID string, patch subscription.PreferencesPatch) (subscription.Preferences, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.UpdatePreferences")
	defer span.End()

	sub, err := s.mustGet(ctx, userID)
	if err != nil {
		return subscription.Preferences{}, err
	}
	sub.Preferences = sub.Preferences.Merge(patch)
	sub.LastUsed = delta.FormatTimestamp(s.now())
	if err := s.subs.Save(ctx, sub); err != nil {
		return subscription.Preferences{}, fmt.Errorf("save subscription: %w", err)
	}
	return sub.Preferences, nil
}

// SendTest pushes a caller-supplied message. Expired subscriptions are
// deleted and reported as ErrGone.
func (s *NotificationService) SendTest(ctx context.Context, userID string, input TestNotificationInput) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.SendTest")
	defer span.End()

	if !s.sender.Enabled() {
		return fmt.Errorf("%w: Push notifications not configured on server", ErrDependencyUnavailable)
	}
	sub, err := s.mustGet(ctx, userID)
	if err != nil {
		return err
	}

	body := input.Body
	if body == "" {
		body = "Test notification"
	}
	result := s.deliver(ctx, sub, Notification{Title: input.Title, Body: body, Data: input.Data})
	switch result.Reason {
	case DeliverySent:
		return nil
	case DeliveryExpired:
		return fmt.Errorf("%w: Subscription expired or invalid", ErrGone)
	default:
		return errors.New("failed to send notification")
	}
}

func (s *NotificationService) Unsubscribe(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if err := s.subs.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

func (s *NotificationService) VAPIDPublicKey() (string, error) {
	if !s.sender.Enabled() {
		return "", fmt.Errorf("%w: VAPID keys not configured", ErrDependencyUnavailable)
	}
	return s.sender.PublicKey(), nil
}

// SendNotification delivers n to userID. It never returns an error; the
// outcome is reported through the result's reason.
func (s *NotificationService) SendNotification(ctx context.Context, userID string, n Notification) DeliveryResult {
	sub, ok, err := s.subs.Get(ctx, userID)
	if err != nil || !ok {
		if err != nil {
			s.logger.WarnContext(ctx, "subscription lookup failed", "user_id", userID, "error", err)
		}
		return DeliveryResult{Reason: DeliveryNoSubscriber}
	}
	if !s.sender.Enabled() {
		return DeliveryResult{Reason: DeliveryDisabled}
	}
	return s.deliver(ctx, sub, n)
}

func (s *NotificationService) deliver(ctx context.Context, sub subscription.PushSubscription, n Notification) DeliveryResult {
	payload, err := encodeNotification(n)
	if err != nil {
		s.logger.ErrorContext(ctx, "encode notification", "user_id", sub.UserID, "error", err)
		s.metrics.RecordPush(DeliveryFailed)
		return DeliveryResult{Reason: DeliveryFailed}
	}

	err = s.sender.Send(ctx, sub.Subscription, payload)
	if err != nil {
		var deliveryErr *PushDeliveryError
		if errors.As(err, &deliveryErr) && deliveryErr.Expired() {
			if delErr := s.subs.Delete(ctx, sub.UserID); delErr != nil {
				s.logger.WarnContext(ctx, "expired subscription not deleted", "user_id", sub.UserID, "error", delErr)
			}
			s.logger.InfoContext(ctx, "push subscription expired", "user_id", sub.UserID, "status", deliveryErr.StatusCode)
			s.metrics.RecordPush(DeliveryExpired)
			return DeliveryResult{Reason: DeliveryExpired}
		}
		s.logger.WarnContext(ctx, "push delivery failed", "user_id", sub.UserID, "error", err)
		s.metrics.RecordPush(DeliveryFailed)
		return DeliveryResult{Reason: DeliveryFailed}
	}

	sub.LastUsed = delta.FormatTimestamp(s.now())
	if err := s.subs.Save(ctx, sub); err != nil {
		s.logger.WarnContext(ctx, "subscription lastUsed not refreshed", "user_id", sub.UserID, "error", err)
	}
	s.metrics.RecordPush(DeliverySent)
	return DeliveryResult{Success: true, Reason: DeliverySent}
}

// DetectNotificationEvents compares the user's previous games with the
// current ones. Games missing from previous count as not started and not
// finished; score changes need a previous record.
func DetectNotificationEvents(previous, current []game.Game, prefs subscription.Preferences) []Notification {
	before := make(map[string]game.Game, len(previous))
	for _, g := range previous {
		before[g.Key()] = g
	}

	var out []Notification
	for _, g := range current {
		old, seen := before[g.Key()]
		data := map[string]any{"gameId": g.Key(), "sport": string(g.Sport)}
		line := fmt.Sprintf("%s %d - %d %s", g.AwayTeam.Abbreviation, g.AwayTeam.Score, g.HomeTeam.Score, g.HomeTeam.Abbreviation)

		if prefs.GameStart && g.InProgress && !old.InProgress {
			out = append(out, Notification{
				Type:  NotificationGameStart,
				Title: "Game Started!",
				Body:  fmt.Sprintf("%s vs %s", g.AwayTeam.Name, g.HomeTeam.Name),
				Data:  data,
			})
		}
		if prefs.ScoreUpdate && seen && (old.HomeTeam.Score != g.HomeTeam.Score || old.AwayTeam.Score != g.AwayTeam.Score) {
			out = append(out, Notification{
				Type:  NotificationScoreUpdate,
				Title: "Score Update",
				Body:  line,
				Data:  data,
			})
		}
		if prefs.GameEnd && g.Completed && !old.Completed {
			winner, _ := g.WinnerAndLoser()
			out = append(out, Notification{
				Type:  NotificationGameEnd,
				Title: "Game Final",
				Body:  fmt.Sprintf("%s wins! Final: %s", winner.Name, line),
				Data:  data,
			})
		}
	}
	return out
}

// ProcessUserNotifications runs one detection cycle for userID and returns
// the delivery results. The first cycle only seeds the previous-games snapshot.
func (s *NotificationService) ProcessUserNotifications(ctx context.Context, userID string) ([]DeliveryResult, error) {
	sub, ok, err := s.subs.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if !ok {
		return nil, nil
	}
	favorites, ok, err := s.favorites.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get favorites: %w", err)
	}
	if !ok || len(favorites.Teams) == 0 {
		return nil, nil
	}

	games, failures := s.data.CollectGames(ctx, favorites.Teams, false)
	key := cache.Key("user_previous_games", userID)
	previous, hadSnapshot := cache.GetJSON[[]game.Game](ctx, s.store, key)
	if len(failures) == 0 {
		cache.SetJSON(ctx, s.store, key, games, userPreviousGamesTTL)
	}
	if !hadSnapshot {
		return nil, nil
	}

	var results []DeliveryResult
	for _, n := range DetectNotificationEvents(previous, games, sub.Preferences) {
		if !s.sender.Enabled() {
			results = append(results, DeliveryResult{Reason: DeliveryDisabled})
			continue
		}
		result := s.deliver(ctx, sub, n)
		results = append(results, result)
		if result.Reason == DeliveryExpired {
			break
		}
	}
	return results, nil
}

// ProcessGameNotifications scans every subscribed user on a worker pool.
// One user's failure never stops the others.
func (s *NotificationService) ProcessGameNotifications(ctx context.Context) (NotificationRunStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.ProcessGameNotifications")
	defer span.End()

	userIDs, err := s.subs.ListUserIDs(ctx)
	if err != nil {
		return NotificationRunStats{}, fmt.Errorf("list subscribed users: %w", err)
	}
	stats := NotificationRunStats{Users: len(userIDs)}
	if len(userIDs) == 0 {
		return stats, nil
	}
	span.SetAttributes(attribute.Int("users", len(userIDs)))

	pool, err := ants.NewPool(min(s.workers, len(userIDs)))
	if err != nil {
		return stats, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var sent, failed, expired atomic.Int32
	var workers sync.WaitGroup
	for _, userID := range userIDs {
		userID := userID
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			results, err := s.ProcessUserNotifications(ctx, userID)
			if err != nil {
				failed.Add(1)
				s.logger.WarnContext(ctx, "user notification cycle failed", "user_id", userID, "error", err)
				return
			}
			for _, result := range results {
				switch result.Reason {
				case DeliverySent:
					sent.Add(1)
				case DeliveryExpired:
					expired.Add(1)
				default:
					failed.Add(1)
				}
			}
		}); err != nil {
			workers.Done()
			return stats, fmt.Errorf("submit notification task: %w", err)
		}
	}
	workers.Wait()

	stats.Sent = int(sent.Load())
	stats.Failed = int(failed.Load())
	stats.Expired = int(expired.Load())
	return stats, nil
}

func (s *NotificationService) mustGet(ctx context.Context, userID string) (subscription.PushSubscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return subscription.PushSubscription{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	sub, ok, err := s.subs.Get(ctx, userID)
	if err != nil {
		return subscription.PushSubscription{}, fmt.Errorf("get subscription: %w", err)
	}
	if !ok {
		return subscription.PushSubscription{}, fmt.Errorf("%w: No subscription found for user", ErrNotFound)
	}
	return sub, nil
}

// encodeNotification fills the display defaults and renders the push payload.
func encodeNotification(n Notification) ([]byte, error) {
	if n.Title == "" {
		n.Title = defaultNotificationTitle
	}
	if n.Icon == "" {
		n.Icon = notificationIcon
	}
	if n.Badge == "" {
		n.Badge = notificationBadge
	}
	if n.Data == nil {
		n.Data = map[string]any{}
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := jsoniter.NewEncoder(buf).Encode(n); err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}
	return append([]byte(nil), bytes.TrimSpace(buf.B)...), nil
}

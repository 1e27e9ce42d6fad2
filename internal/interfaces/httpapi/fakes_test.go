package httpapi

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/domain/standing"
	"github.com/riskibarqy/sports-tracker/internal/domain/subscription"
	repocache "github.com/riskibarqy/sports-tracker/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/id"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/platform/resilience"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
)

type stubESPN struct {
	mu     sync.Mutex
	events map[game.Sport][]usecase.ESPNEventSource
}

func (s *stubESPN) set(sport game.Sport, events ...usecase.ESPNEventSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		s.events = map[game.Sport][]usecase.ESPNEventSource{}
	}
	s.events[sport] = events
}

func (s *stubESPN) FetchScoreboard(_ context.Context, sport game.Sport, _ usecase.ScoreboardQuery) ([]usecase.ESPNEventSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[sport], nil
}

func (s *stubESPN) FetchStandings(context.Context, game.Sport) ([]standing.Row, error) {
	return []standing.Row{{TeamID: "13", TeamName: "Lakers", Wins: 40, Losses: 20}}, nil
}

func (s *stubESPN) FetchTeam(_ context.Context, _ game.Sport, teamID string) (map[string]any, error) {
	return map[string]any{"id": teamID, "displayName": "Los Angeles Lakers"}, nil
}

type stubMLB struct{}

func (stubMLB) FetchSchedule(context.Context, usecase.DateWindow) ([]usecase.MLBGameSource, error) {
	return nil, nil
}

func (stubMLB) FetchStandings(context.Context, int) ([]standing.Row, error) {
	return nil, nil
}

func (stubMLB) FetchTeam(_ context.Context, teamID string) (map[string]any, error) {
	return map[string]any{"id": teamID}, nil
}

type stubSender struct {
	mu      sync.Mutex
	enabled bool
	err     error
	sent    int
}

func (s *stubSender) Enabled() bool     { return s.enabled }
func (s *stubSender) PublicKey() string { return "BTestPublicKey" }

func (s *stubSender) Send(context.Context, subscription.WebPush, []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent++
	return nil
}

func nbaEvent(id, state string, homeScore, awayScore any) usecase.ESPNEventSource {
	return usecase.ESPNEventSource{
		Sport: game.SportNBA,
		ID:    id,
		Date:  "2026-07-01T17:00Z",
		State: state,
		Competitors: []usecase.ExternalSide{
			{ID: "13", Name: "Lakers", Abbreviation: "LAL", HomeAway: "home", Score: homeScore},
			{ID: "2", Name: "Celtics", Abbreviation: "BOS", HomeAway: "away", Score: awayScore},
		},
	}
}

type testServer struct {
	router http.Handler
	store  cache.Store
	espn   *stubESPN
	sender *stubSender
}

type testServerOption func(*RouterConfig, *HandlerDeps)

func withRateLimit(limit int) testServerOption {
	return func(cfg *RouterConfig, _ *HandlerDeps) {
		cfg.RateLimitMaxRequests = limit
	}
}

func newTestServer(t *testing.T, store cache.Store, opts ...testServerOption) *testServer {
	t.Helper()

	logger := logging.NewNop()
	espn := &stubESPN{}
	sender := &stubSender{}

	favorites := repocache.NewFavoriteRepository(store)
	subs := repocache.NewSubscriptionRepository(store)
	data := usecase.NewSportsDataService(espn, stubMLB{}, store, usecase.SportsDataConfig{
		ShortTTL: 30 * time.Second,
		LongTTL:  5 * time.Minute,
	}, nil, logger)
	notifications := usecase.NewNotificationService(subs, favorites, data, store, sender, 2, nil, logger)

	deps := HandlerDeps{
		Sports:        usecase.NewSportsService(data, store, nil, logger),
		Favorites:     usecase.NewFavoritesService(favorites, data, store, id.NewUUIDGenerator(), nil, logger),
		Notifications: notifications,
		Jobs:          usecase.NewBackgroundJobsService(favorites, data, notifications, store, usecase.JobIntervals{}, 2, nil, logger),
		Store:         store,
		Breakers:      resilience.NewRegistry(resilience.DefaultBreakerConfig(), nil),
		Logger:        logger,
	}
	cfg := RouterConfig{
		Logger:               logger,
		CORSAllowedOrigins:   []string{"*"},
		RateLimitStore:       store,
		RateLimitWindow:      time.Minute,
		RateLimitMaxRequests: 1000,
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	return &testServer{
		router: NewRouter(NewHandler(deps), cfg),
		store:  store,
		espn:   espn,
		sender: sender,
	}
}

package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/domain/standing"
	"github.com/riskibarqy/sports-tracker/internal/domain/subscription"
	"github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
)

var testNow = time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)

type fakeESPN struct {
	mu        sync.Mutex
	events    map[game.Sport][]ESPNEventSource
	byLeague  map[string][]ESPNEventSource
	errs      map[game.Sport]error
	leagueErr map[string]error
	standings map[game.Sport][]standing.Row
	team      map[string]any
	queries   []ScoreboardQuery
	calls     int
}

func newFakeESPN() *fakeESPN {
	return &fakeESPN{
		events:    map[game.Sport][]ESPNEventSource{},
		byLeague:  map[string][]ESPNEventSource{},
		errs:      map[game.Sport]error{},
		leagueErr: map[string]error{},
		standings: map[game.Sport][]standing.Row{},
	}
}

func (f *fakeESPN) setEvents(sport game.Sport, events ...ESPNEventSource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[sport] = events
}

func (f *fakeESPN) FetchScoreboard(_ context.Context, sport game.Sport, query ScoreboardQuery) ([]ESPNEventSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, query)
	if query.League != "" {
		if err := f.leagueErr[query.League]; err != nil {
			return nil, err
		}
		return f.byLeague[query.League], nil
	}
	if err := f.errs[sport]; err != nil {
		return nil, err
	}
	return f.events[sport], nil
}

func (f *fakeESPN) FetchStandings(_ context.Context, sport game.Sport) ([]standing.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[sport]; err != nil {
		return nil, err
	}
	return f.standings[sport], nil
}

func (f *fakeESPN) FetchTeam(_ context.Context, sport game.Sport, _ string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[sport]; err != nil {
		return nil, err
	}
	return f.team, nil
}

func (f *fakeESPN) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMLB struct {
	mu        sync.Mutex
	games     []MLBGameSource
	err       error
	standings []standing.Row
	seasons   []int
}

func (f *fakeMLB) FetchSchedule(context.Context, DateWindow) ([]MLBGameSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.games, f.err
}

func (f *fakeMLB) FetchStandings(_ context.Context, season int) ([]standing.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seasons = append(f.seasons, season)
	return f.standings, f.err
}

func (f *fakeMLB) FetchTeam(context.Context, string) (map[string]any, error) {
	return map[string]any{"id": 147}, f.err
}

type sentPush struct {
	endpoint string
	payload  []byte
}

type fakePushSender struct {
	mu      sync.Mutex
	enabled bool
	err     error
	sent    []sentPush
}

func (f *fakePushSender) Enabled() bool     { return f.enabled }
func (f *fakePushSender) PublicKey() string { return "BPublicKey" }

func (f *fakePushSender) Send(_ context.Context, target subscription.WebPush, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentPush{endpoint: target.Endpoint, payload: payload})
	return nil
}

func (f *fakePushSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestDataService(espn *fakeESPN, mlb *fakeMLB, store cache.Store) *SportsDataService {
	svc := NewSportsDataService(espn, mlb, store, SportsDataConfig{
		ShortTTL:      30 * time.Second,
		LongTTL:       5 * time.Minute,
		SoccerLeagues: []string{"eng.1", "esp.1"},
	}, nil, logging.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func espnEvent(sport game.Sport, id, state string, homeID string, homeScore any, awayID string, awayScore any) ESPNEventSource {
	return ESPNEventSource{
		Sport: sport,
		ID:    id,
		Date:  "2026-07-01T17:00Z",
		State: state,
		Competitors: []ExternalSide{
			{ID: homeID, Name: "Home " + homeID, Abbreviation: "H" + homeID, HomeAway: "home", Score: homeScore},
			{ID: awayID, Name: "Away " + awayID, Abbreviation: "A" + awayID, HomeAway: "away", Score: awayScore},
		},
	}
}

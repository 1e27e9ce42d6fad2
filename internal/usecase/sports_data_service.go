package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/sports-tracker/internal/domain/delta"
	"github.com/riskibarqy/sports-tracker/internal/domain/favorite"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/domain/standing"
	"github.com/riskibarqy/sports-tracker/internal/domain/summary"
	"github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/platform/metrics"
	"github.com/riskibarqy/sports-tracker/internal/platform/resilience"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

const (
	nflRegularSeason = 2
	nflWeeks         = 18
	soccerFanOut     = 4
)

type SportsDataConfig struct {
	ShortTTL       time.Duration
	LongTTL        time.Duration
	SoccerLeagues  []string
	NFLSeasonStart time.Time
}

// GamesSnapshot is what the delta endpoints persist between polls.
type GamesSnapshot struct {
	Games    []game.Game `json:"games"`
	CachedAt string      `json:"cachedAt"`
}

// SportsDataService fetches upstream data, normalizes it into Games, and
// reads through the cache.
type SportsDataService struct {
	espn    ESPNProvider
	mlb     MLBProvider
	store   cache.Store
	flight  resilience.SingleFlight
	cfg     SportsDataConfig
	metrics *metrics.Recorder
	logger  *logging.Logger
	now     func() time.Time

	trackedMu sync.RWMutex
	tracked   map[string]favorite.Team
}

func NewSportsDataService(
	espn ESPNProvider,
	mlb MLBProvider,
	store cache.Store,
	cfg SportsDataConfig,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) *SportsDataService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ShortTTL <= 0 {
		cfg.ShortTTL = 30 * time.Second
	}
	if cfg.LongTTL <= 0 {
		cfg.LongTTL = 5 * time.Minute
	}
	if cfg.NFLSeasonStart.IsZero() {
		cfg.NFLSeasonStart = time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC)
	}

	return &SportsDataService{
		espn:    espn,
		mlb:     mlb,
		store:   store,
		cfg:     cfg,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
		tracked: make(map[string]favorite.Team),
	}
}

// FetchSportGames returns every game of sport in window. A nil window means
// the current slate: today, or the current week for the NFL.
func (s *SportsDataService) FetchSportGames(ctx context.Context, sport game.Sport, window *DateWindow) FetchResult[[]game.Game] {
	ctx, span := startUsecaseSpan(ctx, "usecase.SportsDataService.FetchSportGames", attribute.String("sport", string(sport)))
	defer span.End()

	key := cache.Key("sport_data", string(sport), "all", windowTag(window))
	games, err := cache.GetOrLoadJSON(ctx, s.store, &s.flight, key, s.cfg.ShortTTL, func(ctx context.Context) ([]game.Game, error) {
		return s.fetchGames(ctx, sport, window)
	})
	if err != nil {
		return FetchResult[[]game.Game]{Value: []game.Game{}, Err: s.fetchError(sport, err)}
	}
	return FetchResult[[]game.Game]{Value: games}
}

// FetchSportData returns today's games of sport involving any of teams,
// cached per team set under sport_data:<sport>:<hash>.
func (s *SportsDataService) FetchSportData(ctx context.Context, sport game.Sport, teams []favorite.Team) FetchResult[[]game.Game] {
	key := cache.Key("sport_data", string(sport), favorite.Hash(teams))
	games, err := cache.GetOrLoadJSON(ctx, s.store, &s.flight, key, s.cfg.ShortTTL, func(ctx context.Context) ([]game.Game, error) {
		all, err := s.fetchGames(ctx, sport, nil)
		if err != nil {
			return nil, err
		}
		return filterGames(all, teams), nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "sport data fetch failed", "sport", sport, "error", err)
		return FetchResult[[]game.Game]{Value: []game.Game{}, Err: s.fetchError(sport, err)}
	}
	return FetchResult[[]game.Game]{Value: games}
}

// FetchSportDataFresh skips the read-through cache but still refreshes it.
func (s *SportsDataService) FetchSportDataFresh(ctx context.Context, sport game.Sport, teams []favorite.Team) FetchResult[[]game.Game] {
	all, err := s.fetchGames(ctx, sport, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "fresh sport data fetch failed", "sport", sport, "error", err)
		return FetchResult[[]game.Game]{Value: []game.Game{}, Err: s.fetchError(sport, err)}
	}
	games := filterGames(all, teams)
	cache.SetJSON(ctx, s.store, cache.Key("sport_data", string(sport), favorite.Hash(teams)), games, s.cfg.ShortTTL)
	return FetchResult[[]game.Game]{Value: games}
}

// FetchSportDataWindow fetches teams' games over an explicit window, uncached.
func (s *SportsDataService) FetchSportDataWindow(ctx context.Context, sport game.Sport, teams []favorite.Team, window DateWindow) FetchResult[[]game.Game] {
	all, err := s.fetchGames(ctx, sport, &window)
	if err != nil {
		return FetchResult[[]game.Game]{Value: []game.Game{}, Err: s.fetchError(sport, err)}
	}
	return FetchResult[[]game.Game]{Value: filterGames(all, teams)}
}

type sportGames struct {
	sport game.Sport
	games []game.Game
	err   *FetchError
}

// CollectGames fans out one fetch per sport and waits for all of them.
// Failed sports contribute no games and are reported in the error slice.
func (s *SportsDataService) CollectGames(ctx context.Context, teams []favorite.Team, fresh bool) ([]game.Game, []*FetchError) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SportsDataService.CollectGames", attribute.Int("teams", len(teams)))
	defer span.End()

	grouped := favorite.GroupBySport(favorite.Dedupe(teams))
	if len(grouped) == 0 {
		return []game.Game{}, nil
	}

	p := pool.NewWithResults[sportGames]().WithMaxGoroutines(len(grouped))
	for sport, sportTeams := range grouped {
		sport, sportTeams := sport, sportTeams
		p.Go(func() sportGames {
			var result FetchResult[[]game.Game]
			if fresh {
				result = s.FetchSportDataFresh(ctx, sport, sportTeams)
			} else {
				result = s.FetchSportData(ctx, sport, sportTeams)
			}
			return sportGames{sport: sport, games: result.Value, err: result.Err}
		})
	}
	results := p.Wait()
	sort.Slice(results, func(i, j int) bool {
		return sportOrder(results[i].sport) < sportOrder(results[j].sport)
	})

	games := make([]game.Game, 0)
	var failures []*FetchError
	for _, result := range results {
		games = append(games, result.games...)
		if result.err != nil {
			failures = append(failures, result.err)
		}
	}
	return games, failures
}

// GetOptimizedGamesData diffs teams' current games against the snapshot
// stored for the same team set and refreshes that snapshot.
func (s *SportsDataService) GetOptimizedGamesData(ctx context.Context, teams []favorite.Team, lastSync string) (delta.GamesDelta, []*FetchError) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SportsDataService.GetOptimizedGamesData")
	defer span.End()

	games, failures := s.CollectGames(ctx, teams, false)
	key := cache.Key("games_snapshot", favorite.Hash(teams))
	result := s.diffAgainstSnapshot(ctx, key, games, lastSync, len(failures) == 0)
	return result, failures
}

// RefreshGamesSnapshot overwrites the snapshot for teams with games.
func (s *SportsDataService) RefreshGamesSnapshot(ctx context.Context, teams []favorite.Team, games []game.Game) bool {
	key := cache.Key("games_snapshot", favorite.Hash(teams))
	return cache.SetJSON(ctx, s.store, key, GamesSnapshot{Games: games, CachedAt: delta.FormatTimestamp(s.now())}, s.cfg.ShortTTL)
}

// diffAgainstSnapshot skips the snapshot write when the fetch was partial so
// a transient upstream failure is not remembered as removed games.
func (s *SportsDataService) diffAgainstSnapshot(ctx context.Context, key string, games []game.Game, lastSync string, complete bool) delta.GamesDelta {
	previous := s.loadSnapshot(ctx, key)
	now := s.now()
	result := delta.GenerateGamesDelta(games, lastSync, previous, now)

	if complete {
		cache.SetJSON(ctx, s.store, key, GamesSnapshot{Games: games, CachedAt: delta.FormatTimestamp(now)}, s.cfg.ShortTTL)
	}
	return result
}

// loadSnapshot returns nil when no snapshot exists and a non-nil slice when
// one does, even if it holds zero games.
func (s *SportsDataService) loadSnapshot(ctx context.Context, key string) []game.Game {
	snapshot, ok := cache.GetJSON[GamesSnapshot](ctx, s.store, key)
	s.metrics.RecordCacheLookup("games_snapshot", ok)
	if !ok {
		return nil
	}
	if snapshot.Games == nil {
		return []game.Game{}
	}
	return snapshot.Games
}

// GetStandings returns the league table, cached on the long TTL.
func (s *SportsDataService) GetStandings(ctx context.Context, sport game.Sport) FetchResult[[]standing.Row] {
	ctx, span := startUsecaseSpan(ctx, "usecase.SportsDataService.GetStandings", attribute.String("sport", string(sport)))
	defer span.End()

	key := cache.Key("standings", string(sport))
	rows, err := cache.GetOrLoadJSON(ctx, s.store, &s.flight, key, s.cfg.LongTTL, func(ctx context.Context) ([]standing.Row, error) {
		started := time.Now()
		var (
			rows []standing.Row
			err  error
		)
		if sport == game.SportMLB {
			rows, err = s.mlb.FetchStandings(ctx, s.now().Year())
		} else {
			rows, err = s.espn.FetchStandings(ctx, sport)
		}
		s.metrics.RecordUpstream(sourceFor(sport), string(sport), time.Since(started), err)
		return rows, err
	})
	if err != nil {
		s.logger.WarnContext(ctx, "standings fetch failed", "sport", sport, "error", err)
		return FetchResult[[]standing.Row]{Value: []standing.Row{}, Err: s.fetchError(sport, err)}
	}
	return FetchResult[[]standing.Row]{Value: rows}
}

// GetTeamData returns the reduced team payload, cached on the long TTL.
func (s *SportsDataService) GetTeamData(ctx context.Context, sport game.Sport, teamID string) (map[string]any, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SportsDataService.GetTeamData", attribute.String("sport", string(sport)))
	defer span.End()

	key := cache.Key("team_data", string(sport), teamID)
	return cache.GetOrLoadJSON(ctx, s.store, &s.flight, key, s.cfg.LongTTL, func(ctx context.Context) (map[string]any, error) {
		started := time.Now()
		var (
			payload map[string]any
			err     error
		)
		if sport == game.SportMLB {
			payload, err = s.mlb.FetchTeam(ctx, teamID)
		} else {
			payload, err = s.espn.FetchTeam(ctx, sport, teamID)
		}
		s.metrics.RecordUpstream(sourceFor(sport), string(sport), time.Since(started), err)
		if err != nil {
			return nil, s.fetchError(sport, err)
		}
		optimized, _ := delta.OptimizePayload(payload).(map[string]any)
		return optimized, nil
	})
}

// GenerateUserSummary counts live, upcoming, and finished games for teams.
func (s *SportsDataService) GenerateUserSummary(ctx context.Context, userID string, teams []favorite.Team) summary.Summary {
	games, _ := s.CollectGames(ctx, teams, false)
	now := s.now()
	return summary.Build(userID, len(teams), games, now, delta.FormatTimestamp(now))
}

// ScheduleTeamDataFetch adds teams to the set the background jobs poll.
func (s *SportsDataService) ScheduleTeamDataFetch(teams []favorite.Team) {
	s.trackedMu.Lock()
	defer s.trackedMu.Unlock()
	for _, team := range teams {
		s.tracked[team.Key()] = team
	}
}

func (s *SportsDataService) TrackedTeams() []favorite.Team {
	s.trackedMu.RLock()
	defer s.trackedMu.RUnlock()

	out := make([]favorite.Team, 0, len(s.tracked))
	for _, team := range s.tracked {
		out = append(out, team)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// PruneTrackedTeams keeps only teams still present in keep and reports how
// many were dropped.
func (s *SportsDataService) PruneTrackedTeams(keep []favorite.Team) int {
	wanted := make(map[string]struct{}, len(keep))
	for _, team := range keep {
		wanted[team.Key()] = struct{}{}
	}

	s.trackedMu.Lock()
	defer s.trackedMu.Unlock()
	removed := 0
	for key := range s.tracked {
		if _, ok := wanted[key]; !ok {
			delete(s.tracked, key)
			removed++
		}
	}
	return removed
}

// CurrentNFLWeek counts regular-season weeks from the configured start, 1..18.
func (s *SportsDataService) CurrentNFLWeek(now time.Time) int {
	if now.Before(s.cfg.NFLSeasonStart) {
		return 1
	}
	week := int(now.Sub(s.cfg.NFLSeasonStart)/(7*24*time.Hour)) + 1
	return min(max(week, 1), nflWeeks)
}

func (s *SportsDataService) fetchGames(ctx context.Context, sport game.Sport, window *DateWindow) ([]game.Game, error) {
	started := time.Now()
	games, err := s.fetchGamesFromSource(ctx, sport, window)
	s.metrics.RecordUpstream(sourceFor(sport), string(sport), time.Since(started), err)
	return games, err
}

func (s *SportsDataService) fetchGamesFromSource(ctx context.Context, sport game.Sport, window *DateWindow) ([]game.Game, error) {
	now := s.now()
	current := SingleDay(now.UTC())
	if window != nil {
		current = *window
	}

	switch sport {
	case game.SportMLB:
		sources, err := s.mlb.FetchSchedule(ctx, current)
		if err != nil {
			return nil, err
		}
		return parseSources(ctx, s.logger, sources, now), nil
	case game.SportNBA, game.SportNHL, game.SportF1:
		return s.fetchScoreboard(ctx, sport, ScoreboardQuery{Window: current}, now)
	case game.SportNFL:
		query := ScoreboardQuery{Window: current}
		if window == nil {
			query = ScoreboardQuery{Week: s.CurrentNFLWeek(now), SeasonType: nflRegularSeason}
		}
		return s.fetchScoreboard(ctx, sport, query, now)
	case game.SportSoccer:
		return s.fetchSoccer(ctx, current, now)
	default:
		return nil, fmt.Errorf("%w: unsupported sport %q", ErrInvalidInput, sport)
	}
}

func (s *SportsDataService) fetchScoreboard(ctx context.Context, sport game.Sport, query ScoreboardQuery, now time.Time) ([]game.Game, error) {
	events, err := s.espn.FetchScoreboard(ctx, sport, query)
	if err != nil {
		return nil, err
	}
	return parseSources(ctx, s.logger, events, now), nil
}

type leagueGames struct {
	league string
	games  []game.Game
	err    error
}

// fetchSoccer queries every configured league; it fails only if all fail.
func (s *SportsDataService) fetchSoccer(ctx context.Context, window DateWindow, now time.Time) ([]game.Game, error) {
	if len(s.cfg.SoccerLeagues) == 0 {
		return []game.Game{}, nil
	}

	p := pool.NewWithResults[leagueGames]().WithMaxGoroutines(soccerFanOut)
	for _, league := range s.cfg.SoccerLeagues {
		league := league
		p.Go(func() leagueGames {
			games, err := s.fetchScoreboard(ctx, game.SportSoccer, ScoreboardQuery{League: league, Window: window}, now)
			return leagueGames{league: league, games: games, err: err}
		})
	}

	var (
		games []game.Game
		errs  []error
	)
	for _, result := range p.Wait() {
		if result.err != nil {
			s.logger.WarnContext(ctx, "soccer league fetch failed", "league", result.league, "error", result.err)
			errs = append(errs, fmt.Errorf("%s: %w", result.league, result.err))
			continue
		}
		games = append(games, result.games...)
	}
	if len(errs) == len(s.cfg.SoccerLeagues) {
		return nil, errors.Join(errs...)
	}
	if games == nil {
		games = []game.Game{}
	}
	return games, nil
}

func (s *SportsDataService) fetchError(sport game.Sport, err error) *FetchError {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr
	}
	return &FetchError{Sport: sport, Source: sourceFor(sport), Err: err}
}

// parseSources drops records that fail to normalize instead of failing the batch.
func parseSources[T GameSource](ctx context.Context, logger *logging.Logger, sources []T, now time.Time) []game.Game {
	games := make([]game.Game, 0, len(sources))
	for _, src := range sources {
		parsed, err := ParseGame(src, now)
		if err != nil {
			logger.WarnContext(ctx, "skipping malformed game record", "error", err)
			continue
		}
		games = append(games, parsed)
	}
	return games
}

func filterGames(games []game.Game, teams []favorite.Team) []game.Game {
	out := make([]game.Game, 0, len(games))
	for _, g := range games {
		if favorite.Matches(teams, g) {
			out = append(out, g)
		}
	}
	return out
}

func windowTag(window *DateWindow) string {
	if window == nil {
		return "current"
	}
	if window.IsSingleDay() {
		return window.Start.Format(time.DateOnly)
	}
	return window.Start.Format(time.DateOnly) + "_" + window.End.Format(time.DateOnly)
}

func sportOrder(sport game.Sport) int {
	for i, candidate := range game.GameSports {
		if candidate == sport {
			return i
		}
	}
	return len(game.GameSports)
}

package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/sports-tracker/internal/domain/delta"
	"github.com/riskibarqy/sports-tracker/internal/domain/favorite"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/domain/summary"
	"github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/id"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/platform/metrics"
	"go.opentelemetry.io/otel/attribute"
)

const (
	userSummaryTTL = 60 * time.Second
	syncStatusTTL  = 24 * time.Hour
)

const (
	SyncStatusCompleted = "completed"
	SyncStatusPartial   = "partial"
	SyncStatusEmpty     = "empty"
	SyncStatusNever     = "never"
)

// EmptyFavorites is returned for users without a stored list.
type EmptyFavorites struct {
	Teams      []favorite.Team `json:"teams"`
	LastUpdate string          `json:"lastUpdate"`
	HasChanges bool            `json:"hasChanges"`
}

type SaveFavoritesResult struct {
	Success    bool   `json:"success"`
	LastUpdate string `json:"lastUpdate"`
}

// FavoritesDelta combines the three per-user deltas a client polls for.
type FavoritesDelta struct {
	UserID      string             `json:"userId"`
	LastSync    *string            `json:"lastSync"`
	CurrentSync string             `json:"currentSync"`
	Favorites   delta.ObjectDelta  `json:"favorites"`
	Games       delta.GamesDelta   `json:"games"`
	Summary     *delta.ObjectDelta `json:"summary,omitempty"`
}

// SyncStatus records the outcome of the last forced sync for a user.
type SyncStatus struct {
	SyncID       string   `json:"syncId,omitempty"`
	UserID       string   `json:"userId"`
	Status       string   `json:"status"`
	StartedAt    string   `json:"startedAt,omitempty"`
	CompletedAt  string   `json:"completedAt,omitempty"`
	TeamCount    int      `json:"teamCount"`
	GameCount    int      `json:"gameCount"`
	FailedSports []string `json:"failedSports,omitempty"`
}

// FavoritesService owns per-user favorites and the deltas derived from them.
type FavoritesService struct {
	repo    favorite.Repository
	data    *SportsDataService
	store   cache.Store
	ids     id.Generator
	metrics *metrics.Recorder
	logger  *logging.Logger
	now     func() time.Time
}

func NewFavoritesService(
	repo favorite.Repository,
	data *SportsDataService,
	store cache.Store,
	ids id.Generator,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) *FavoritesService {
	if logger == nil {
		logger = logging.Default()
	}
	return &FavoritesService{
		repo:    repo,
		data:    data,
		store:   store,
		ids:     ids,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// GetTeams returns the stored favorites, or an object delta over them when
// the client sends the lastUpdate it already holds.
func (s *FavoritesService) GetTeams(ctx context.Context, userID, lastUpdate string) (any, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FavoritesService.GetTeams")
	defer span.End()

	favorites, ok, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !ok {
		return EmptyFavorites{Teams: []favorite.Team{}, LastUpdate: delta.FormatTimestamp(now)}, nil
	}
	if strings.TrimSpace(lastUpdate) == "" {
		return favorites, nil
	}

	updatedAt, _ := delta.ParseLastSync(favorites.LastUpdate)
	out := delta.GenerateDelta(favorites, updatedAt, lastUpdate, now)
	s.metrics.RecordDelta("favorites_teams", string(out.DeltaType))
	return out, nil
}

// SaveTeams replaces the user's list and starts tracking the teams.
func (s *FavoritesService) SaveTeams(ctx context.Context, userID string, teams []favorite.Team) (SaveFavoritesResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FavoritesService.SaveTeams", attribute.Int("teams", len(teams)))
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SaveFavoritesResult{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if teams == nil {
		return SaveFavoritesResult{}, fmt.Errorf("%w: Teams must be an array", ErrInvalidInput)
	}

	now := delta.FormatTimestamp(s.now())
	stored := make([]favorite.Team, 0, len(teams))
	for _, team := range favorite.Dedupe(teams) {
		team.Sport = game.Sport(strings.ToLower(string(team.Sport)))
		if team.AddedAt == "" {
			team.AddedAt = now
		}
		stored = append(stored, team)
	}

	favorites := favorite.Favorites{UserID: userID, Teams: stored, LastUpdate: now}
	if err := s.repo.Save(ctx, favorites); err != nil {
		return SaveFavoritesResult{}, fmt.Errorf("save favorites: %w", err)
	}
	s.data.ScheduleTeamDataFetch(stored)

	s.logger.InfoContext(ctx, "favorites saved", "user_id", userID, "teams", len(stored))
	return SaveFavoritesResult{Success: true, LastUpdate: now}, nil
}

// Games returns the games delta for the user's teams, optionally narrowed to sports.
func (s *FavoritesService) Games(ctx context.Context, userID, lastUpdate string, sports []string) (delta.GamesDelta, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FavoritesService.Games")
	defer span.End()

	favorites, ok, err := s.load(ctx, userID)
	if err != nil {
		return delta.GamesDelta{}, err
	}
	teams := favorites.Teams
	if len(sports) > 0 {
		wanted := parseSports(sports)
		teams = favorite.FilterBySports(teams, wanted)
		if len(wanted) == 0 {
			teams = nil
		}
	}
	if !ok || len(teams) == 0 {
		return emptyGamesDelta(s.now()), nil
	}

	out, failures := s.data.GetOptimizedGamesData(ctx, teams, lastUpdate)
	s.logFailures(ctx, userID, failures)
	s.metrics.RecordDelta("favorites_games", string(out.DeltaType))
	return out, nil
}

// Summary serves the cached summary, computing and caching it when absent.
func (s *FavoritesService) Summary(ctx context.Context, userID, lastUpdate string) (any, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FavoritesService.Summary")
	defer span.End()

	key := cache.Key("user_summary", userID)
	cached, ok := cache.GetJSON[summary.Summary](ctx, s.store, key)
	s.metrics.RecordCacheLookup("user_summary", ok)
	if ok {
		if strings.TrimSpace(lastUpdate) != "" {
			out := delta.GenerateSummaryDelta(cached, cached.LastUpdate, lastUpdate, s.now())
			s.metrics.RecordDelta("favorites_summary", string(out.DeltaType))
			return out, nil
		}
		return cached, nil
	}

	fresh, err := s.buildSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	cache.SetJSON(ctx, s.store, key, fresh, userSummaryTTL)
	return fresh, nil
}

// Delta bundles favorites, games, and optionally summary deltas in one response.
func (s *FavoritesService) Delta(ctx context.Context, userID, lastSync string, includeSummary bool) (FavoritesDelta, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FavoritesService.Delta")
	defer span.End()

	favorites, ok, err := s.load(ctx, userID)
	if err != nil {
		return FavoritesDelta{}, err
	}
	now := s.now()
	if !ok {
		favorites = favorite.Favorites{UserID: userID, Teams: []favorite.Team{}, LastUpdate: delta.FormatTimestamp(now)}
	}

	updatedAt, _ := delta.ParseLastSync(favorites.LastUpdate)
	out := FavoritesDelta{
		UserID:      userID,
		CurrentSync: delta.FormatTimestamp(now),
		Favorites:   delta.GenerateDelta(favorites, updatedAt, lastSync, now),
		Games:       emptyGamesDelta(now),
	}
	if strings.TrimSpace(lastSync) != "" {
		out.LastSync = &lastSync
	}

	if len(favorites.Teams) > 0 {
		games, failures := s.data.GetOptimizedGamesData(ctx, favorites.Teams, lastSync)
		s.logFailures(ctx, userID, failures)
		out.Games = games
	}

	if includeSummary {
		current, err := s.buildSummary(ctx, userID)
		if err != nil {
			return FavoritesDelta{}, err
		}
		summaryDelta := delta.GenerateSummaryDelta(current, current.LastUpdate, lastSync, now)
		out.Summary = &summaryDelta
	}

	s.metrics.RecordDelta("favorites_delta", string(out.Games.DeltaType))
	return out, nil
}

// Sync refetches everything for the user, bypassing the sport data cache,
// and rewrites the games snapshot, cached games, and summary.
func (s *FavoritesService) Sync(ctx context.Context, userID string) (SyncStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FavoritesService.Sync")
	defer span.End()

	favorites, ok, err := s.load(ctx, userID)
	if err != nil {
		return SyncStatus{}, err
	}

	syncID, err := s.ids.NewID()
	if err != nil {
		return SyncStatus{}, fmt.Errorf("generate sync id: %w", err)
	}
	started := s.now()
	status := SyncStatus{
		SyncID:    syncID,
		UserID:    userID,
		StartedAt: delta.FormatTimestamp(started),
	}

	if !ok || len(favorites.Teams) == 0 {
		status.Status = SyncStatusEmpty
		status.CompletedAt = status.StartedAt
		s.storeSyncStatus(ctx, status)
		return status, nil
	}

	games, failures := s.data.CollectGames(ctx, favorites.Teams, true)
	s.logFailures(ctx, userID, failures)
	if len(failures) == 0 {
		s.data.RefreshGamesSnapshot(ctx, favorites.Teams, games)
	}

	now := s.now()
	current := summary.Build(userID, len(favorites.Teams), games, now, delta.FormatTimestamp(now))
	cache.SetJSON(ctx, s.store, cache.Key("user_games", userID), SportGames{Events: games, LastUpdate: delta.FormatTimestamp(now)}, s.data.cfg.ShortTTL)
	cache.SetJSON(ctx, s.store, cache.Key("user_summary", userID), current, userSummaryTTL)

	status.Status = SyncStatusCompleted
	for _, failure := range failures {
		status.Status = SyncStatusPartial
		status.FailedSports = append(status.FailedSports, string(failure.Sport))
	}
	status.TeamCount = len(favorites.Teams)
	status.GameCount = len(games)
	status.CompletedAt = delta.FormatTimestamp(now)
	s.storeSyncStatus(ctx, status)

	s.logger.InfoContext(ctx, "favorites sync finished",
		"user_id", userID,
		"sync_id", syncID,
		"status", status.Status,
		"games", status.GameCount,
	)
	return status, nil
}

func (s *FavoritesService) SyncStatus(ctx context.Context, userID string) (SyncStatus, error) {
	if strings.TrimSpace(userID) == "" {
		return SyncStatus{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	status, ok := cache.GetJSON[SyncStatus](ctx, s.store, cache.Key("sync_status", userID))
	if !ok {
		return SyncStatus{UserID: userID, Status: SyncStatusNever}, nil
	}
	return status, nil
}

// ClearCache drops the user's favorites, summary, and cached games.
func (s *FavoritesService) ClearCache(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete favorites: %w", err)
	}
	s.store.Delete(ctx, cache.Key("user_summary", userID), cache.Key("user_games", userID))
	return nil
}

func (s *FavoritesService) buildSummary(ctx context.Context, userID string) (summary.Summary, error) {
	favorites, _, err := s.load(ctx, userID)
	if err != nil {
		return summary.Summary{}, err
	}
	return s.data.GenerateUserSummary(ctx, userID, favorites.Teams), nil
}

func (s *FavoritesService) load(ctx context.Context, userID string) (favorite.Favorites, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return favorite.Favorites{}, false, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	favorites, ok, err := s.repo.Get(ctx, userID)
	if err != nil {
		return favorite.Favorites{}, false, fmt.Errorf("get favorites: %w", err)
	}
	return favorites, ok, nil
}

func (s *FavoritesService) storeSyncStatus(ctx context.Context, status SyncStatus) {
	if !cache.SetJSON(ctx, s.store, cache.Key("sync_status", status.UserID), status, syncStatusTTL) {
		s.logger.WarnContext(ctx, "sync status not stored", "user_id", status.UserID, "sync_id", status.SyncID)
	}
}

func (s *FavoritesService) logFailures(ctx context.Context, userID string, failures []*FetchError) {
	for _, failure := range failures {
		s.logger.WarnContext(ctx, "partial games for user",
			"user_id", userID,
			"sport", failure.Sport,
			"source", failure.Source,
			"error", failure.Err,
		)
	}
}

func emptyGamesDelta(now time.Time) delta.GamesDelta {
	return delta.GamesDelta{
		HasChanges: false,
		DeltaType:  delta.TypeFull,
		LastUpdate: delta.FormatTimestamp(now),
		Games:      []game.Game{},
	}
}

func parseSports(values []string) []game.Sport {
	var out []game.Sport
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if sport, ok := game.ParseSport(part); ok {
				out = append(out, sport)
			}
		}
	}
	return out
}

package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/sports-tracker/internal/domain/delta"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/domain/standing"
	"github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/platform/metrics"
	"go.opentelemetry.io/otel/attribute"
)

const (
	gamesSnapshotTTL     = 300 * time.Second
	standingsSnapshotTTL = 600 * time.Second
)

// SyncEnvelope is the response shape shared by the /api/sports endpoints.
type SyncEnvelope struct {
	HasChanges  bool           `json:"hasChanges"`
	DeltaType   delta.Type     `json:"deltaType"`
	LastSync    *string        `json:"lastSync"`
	CurrentSync string         `json:"currentSync"`
	Data        any            `json:"data,omitempty"`
	Changes     any            `json:"changes,omitempty"`
	Summary     *delta.Summary `json:"summary,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// SportGames is the data block of the games endpoint and its snapshot.
type SportGames struct {
	Events     []game.Game `json:"events"`
	LastUpdate string      `json:"lastUpdate"`
}

type GamesQuery struct {
	Sport     string
	LastSync  string
	StartDate string
	EndDate   string
}

// SportsService answers the per-sport delta endpoints.
type SportsService struct {
	data    *SportsDataService
	store   cache.Store
	metrics *metrics.Recorder
	logger  *logging.Logger
	now     func() time.Time
}

func NewSportsService(data *SportsDataService, store cache.Store, recorder *metrics.Recorder, logger *logging.Logger) *SportsService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SportsService{
		data:    data,
		store:   store,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// Games diffs the sport's games against the snapshot left by the previous
// poll for the same date range.
func (s *SportsService) Games(ctx context.Context, query GamesQuery) (SyncEnvelope, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SportsService.Games", attribute.String("sport", query.Sport))
	defer span.End()

	sport, ok := game.ParseSport(query.Sport)
	if !ok {
		return SyncEnvelope{}, fmt.Errorf("%w: Invalid sport. Supported: %s", ErrInvalidInput, game.SportNames(game.GameSports))
	}
	window, err := parseWindow(query.StartDate, query.EndDate)
	if err != nil {
		return SyncEnvelope{}, err
	}

	result := s.data.FetchSportGames(ctx, sport, window)
	if !result.OK() {
		s.logger.WarnContext(ctx, "serving empty games after upstream failure", "sport", sport, "error", result.Err)
	}
	now := s.now()
	current := SportGames{Events: result.Value, LastUpdate: delta.FormatTimestamp(now)}
	key := cache.Key(gamesSnapshotKind(sport, query.StartDate, query.EndDate))

	out := s.gamesEnvelope(ctx, key, current, query.LastSync, now)
	if result.OK() {
		// The snapshot serves the next poller even if this client left.
		cache.SetJSON(context.WithoutCancel(ctx), s.store, key, current, gamesSnapshotTTL)
	}
	s.metrics.RecordDelta("sports_games", string(out.DeltaType))
	return out, nil
}

func (s *SportsService) gamesEnvelope(ctx context.Context, key string, current SportGames, lastSync string, now time.Time) SyncEnvelope {
	currentSync := delta.FormatTimestamp(now)
	if strings.TrimSpace(lastSync) == "" {
		return fullEnvelope(nil, currentSync, current, "Full data provided")
	}

	previous, ok := cache.GetJSON[SportGames](ctx, s.store, key)
	s.metrics.RecordCacheLookup("sports_games_snapshot", ok)
	if !ok {
		return fullEnvelope(&lastSync, currentSync, current, "No previous data found, returning full data")
	}
	if previous.Events == nil {
		previous.Events = []game.Game{}
	}

	diff := delta.GenerateGamesDelta(current.Events, lastSync, previous.Events, now)
	switch diff.DeltaType {
	case delta.TypeFull:
		return fullEnvelope(&lastSync, currentSync, current, "Full data provided")
	case delta.TypeNone:
		return SyncEnvelope{
			HasChanges:  false,
			DeltaType:   delta.TypeNone,
			LastSync:    &lastSync,
			CurrentSync: currentSync,
			Message:     "No changes detected",
		}
	}

	summary := diff.ChangesSummary
	return SyncEnvelope{
		HasChanges:  true,
		DeltaType:   diff.DeltaType,
		LastSync:    &lastSync,
		CurrentSync: currentSync,
		Data:        SportGames{Events: diff.Games, LastUpdate: diff.LastUpdate},
		Changes:     diff.Changes,
		Summary:     &summary,
	}
}

// Standings diffs the league table by team against the stored snapshot.
func (s *SportsService) Standings(ctx context.Context, sportName, lastSync string) (SyncEnvelope, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SportsService.Standings", attribute.String("sport", sportName))
	defer span.End()

	sport, ok := game.ParseSport(sportName)
	if !ok || !sport.SupportsStandings() {
		return SyncEnvelope{}, fmt.Errorf("%w: Invalid sport for standings. Supported: %s", ErrInvalidInput, game.SportNames(game.StandingsSports))
	}

	result := s.data.GetStandings(ctx, sport)
	now := s.now()
	currentSync := delta.FormatTimestamp(now)
	current := standing.Table{Sport: sport, Standings: result.Value, LastUpdate: currentSync}
	key := cache.Key("delta_" + string(sport) + "_standings")

	out := func() SyncEnvelope {
		if strings.TrimSpace(lastSync) == "" {
			return fullEnvelope(nil, currentSync, current, "Full standings data provided")
		}
		previous, ok := cache.GetJSON[standing.Table](ctx, s.store, key)
		s.metrics.RecordCacheLookup("standings_snapshot", ok)
		if !ok {
			return fullEnvelope(&lastSync, currentSync, current, "No previous standings data found, returning full data")
		}

		changes, summary := standing.Diff(current.Standings, previous.Standings)
		if summary.Added+summary.Updated+summary.Removed == 0 {
			return SyncEnvelope{
				DeltaType:   delta.TypeNone,
				LastSync:    &lastSync,
				CurrentSync: currentSync,
				Message:     "No standings changes detected",
			}
		}
		return SyncEnvelope{
			HasChanges:  true,
			DeltaType:   delta.TypeDelta,
			LastSync:    &lastSync,
			CurrentSync: currentSync,
			Data:        changes,
			Summary:     &summary,
		}
	}()

	if result.OK() {
		cache.SetJSON(context.WithoutCancel(ctx), s.store, key, current, standingsSnapshotTTL)
	}
	s.metrics.RecordDelta("sports_standings", string(out.DeltaType))
	return out, nil
}

// Team always returns the full team payload.
func (s *SportsService) Team(ctx context.Context, sportName, teamID, lastSync string) (SyncEnvelope, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SportsService.Team", attribute.String("sport", sportName))
	defer span.End()

	sport, ok := game.ParseSport(sportName)
	if !ok {
		return SyncEnvelope{}, fmt.Errorf("%w: Invalid sport. Supported: %s", ErrInvalidInput, game.SportNames(game.GameSports))
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return SyncEnvelope{}, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}

	payload, err := s.data.GetTeamData(ctx, sport, teamID)
	if err != nil {
		s.logger.WarnContext(ctx, "serving empty team payload after upstream failure", "sport", sport, "team_id", teamID, "error", err)
		payload = map[string]any{}
	}

	currentSync := delta.FormatTimestamp(s.now())
	s.metrics.RecordDelta("sports_team", string(delta.TypeFull))
	if strings.TrimSpace(lastSync) == "" {
		return fullEnvelope(nil, currentSync, payload, "Full team data provided"), nil
	}
	return fullEnvelope(&lastSync, currentSync, payload, "Team data (full refresh for now)"), nil
}

func fullEnvelope(lastSync *string, currentSync string, data any, message string) SyncEnvelope {
	return SyncEnvelope{
		HasChanges:  true,
		DeltaType:   delta.TypeFull,
		LastSync:    lastSync,
		CurrentSync: currentSync,
		Data:        data,
		Message:     message,
	}
}

// gamesSnapshotKind names the snapshot for a requested range; an absent end
// date falls back to the start date.
func gamesSnapshotKind(sport game.Sport, startDate, endDate string) string {
	start := strings.TrimSpace(startDate)
	end := strings.TrimSpace(endDate)
	if end == "" {
		end = start
	}
	if start == "" {
		start = "today"
	}
	if end == "" {
		end = "today"
	}
	return "delta_" + string(sport) + "_games_" + start + "_" + end
}

func parseWindow(startDate, endDate string) (*DateWindow, error) {
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)
	if startDate == "" && endDate == "" {
		return nil, nil
	}
	if startDate == "" {
		startDate = endDate
	}
	start, err := time.Parse(time.DateOnly, startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: startDate must be YYYY-MM-DD", ErrInvalidInput)
	}
	end := start
	if endDate != "" {
		end, err = time.Parse(time.DateOnly, endDate)
		if err != nil {
			return nil, fmt.Errorf("%w: endDate must be YYYY-MM-DD", ErrInvalidInput)
		}
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: endDate is before startDate", ErrInvalidInput)
	}
	return &DateWindow{Start: start, End: end}, nil
}

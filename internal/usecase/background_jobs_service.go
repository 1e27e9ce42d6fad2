package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/sports-tracker/internal/domain/delta"
	"github.com/riskibarqy/sports-tracker/internal/domain/favorite"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/platform/metrics"
	"github.com/sourcegraph/conc/pool"
)

const (
	JobLiveGames     = "liveGamesFetch"
	JobUpcomingGames = "upcomingGamesFetch"
	JobNotifications = "gameNotifications"
	JobCacheCleanup  = "cacheCleanup"
	JobUserSummaries = "userSummaries"
)

const (
	globalLiveGamesTTL     = 60 * time.Second
	globalUpcomingGamesTTL = 300 * time.Second
	scheduledSummaryTTL    = 300 * time.Second
	upcomingDaysAhead      = 7
)

type JobIntervals struct {
	LiveGames     time.Duration
	UpcomingGames time.Duration
	Notifications time.Duration
	UserSummaries time.Duration
	CacheCleanup  time.Duration
}

func DefaultJobIntervals() JobIntervals {
	return JobIntervals{
		LiveGames:     30 * time.Second,
		UpcomingGames: 5 * time.Minute,
		Notifications: time.Minute,
		UserSummaries: 2 * time.Minute,
		CacheCleanup:  time.Hour,
	}
}

// JobDefinition binds a job name to its interval and body.
type JobDefinition struct {
	Name     string
	Interval time.Duration
	Run      func(context.Context) error
}

// JobStatus is the last known state of one background job.
type JobStatus struct {
	Name         string `json:"name"`
	Interval     string `json:"interval"`
	Running      bool   `json:"running"`
	Runs         int64  `json:"runs"`
	Failures     int64  `json:"failures"`
	LastRunAt    string `json:"lastRunAt,omitempty"`
	LastDuration string `json:"lastDuration,omitempty"`
	LastError    string `json:"lastError,omitempty"`
}

// TrackedTeam is the team reference stored with global game caches.
type TrackedTeam struct {
	ID    string     `json:"id"`
	Sport game.Sport `json:"sport"`
	Name  string     `json:"name,omitempty"`
}

// GlobalGames is the payload of the global live and upcoming caches.
type GlobalGames struct {
	Sport      game.Sport    `json:"sport"`
	Games      []game.Game   `json:"games"`
	Teams      []TrackedTeam `json:"teams"`
	LastUpdate string        `json:"lastUpdate"`
	DaysAhead  int           `json:"daysAhead,omitempty"`
}

type BackgroundJobsService struct {
	favorites     favorite.Repository
	data          *SportsDataService
	notifications *NotificationService
	store         cache.Store
	intervals     JobIntervals
	workers       int
	metrics       *metrics.Recorder
	logger        *logging.Logger
	now           func() time.Time

	statusMu sync.RWMutex
	status   map[string]*JobStatus
}

func NewBackgroundJobsService(
	favorites favorite.Repository,
	data *SportsDataService,
	notifications *NotificationService,
	store cache.Store,
	intervals JobIntervals,
	workers int,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) *BackgroundJobsService {
	if logger == nil {
		logger = logging.Default()
	}
	defaults := DefaultJobIntervals()
	if intervals.LiveGames <= 0 {
		intervals.LiveGames = defaults.LiveGames
	}
	if intervals.UpcomingGames <= 0 {
		intervals.UpcomingGames = defaults.UpcomingGames
	}
	if intervals.Notifications <= 0 {
		intervals.Notifications = defaults.Notifications
	}
	if intervals.UserSummaries <= 0 {
		intervals.UserSummaries = defaults.UserSummaries
	}
	if intervals.CacheCleanup <= 0 {
		intervals.CacheCleanup = defaults.CacheCleanup
	}
	if workers <= 0 {
		workers = defaultNotifyWorkers
	}

	s := &BackgroundJobsService{
		favorites:     favorites,
		data:          data,
		notifications: notifications,
		store:         store,
		intervals:     intervals,
		workers:       workers,
		metrics:       recorder,
		logger:        logger,
		now:           time.Now,
		status:        make(map[string]*JobStatus),
	}
	for _, job := range s.Jobs() {
		s.status[job.Name] = &JobStatus{Name: job.Name, Interval: job.Interval.String()}
	}
	return s
}

// Jobs lists the background jobs with status tracking wrapped around each body.
func (s *BackgroundJobsService) Jobs() []JobDefinition {
	return []JobDefinition{
		{Name: JobLiveGames, Interval: s.intervals.LiveGames, Run: s.track(JobLiveGames, s.FetchLiveGames)},
		{Name: JobUpcomingGames, Interval: s.intervals.UpcomingGames, Run: s.track(JobUpcomingGames, s.FetchUpcomingGames)},
		{Name: JobNotifications, Interval: s.intervals.Notifications, Run: s.track(JobNotifications, s.ProcessGameNotifications)},
		{Name: JobCacheCleanup, Interval: s.intervals.CacheCleanup, Run: s.track(JobCacheCleanup, s.CleanupCache)},
		{Name: JobUserSummaries, Interval: s.intervals.UserSummaries, Run: s.track(JobUserSummaries, s.GenerateUserSummaries)},
	}
}

// Status returns job states sorted by name.
func (s *BackgroundJobsService) Status() []JobStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	out := make([]JobStatus, 0, len(s.status))
	for _, status := range s.status {
		out = append(out, *status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *BackgroundJobsService) track(name string, run func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		s.updateStatus(name, func(status *JobStatus) { status.Running = true })

		started := time.Now()
		err := run(ctx)
		elapsed := time.Since(started)
		s.metrics.RecordJob(name, elapsed, err)

		s.updateStatus(name, func(status *JobStatus) {
			status.Running = false
			status.Runs++
			status.LastRunAt = delta.FormatTimestamp(s.now())
			status.LastDuration = elapsed.Round(time.Millisecond).String()
			status.LastError = ""
			if err != nil {
				status.Failures++
				status.LastError = err.Error()
			}
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "background job failed", "job", name, "duration_ms", elapsed.Milliseconds(), "error", err)
		} else {
			s.logger.DebugContext(ctx, "background job finished", "job", name, "duration_ms", elapsed.Milliseconds())
		}
		return err
	}
}

func (s *BackgroundJobsService) updateStatus(name string, fn func(*JobStatus)) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	status, ok := s.status[name]
	if !ok {
		status = &JobStatus{Name: name}
		s.status[name] = status
	}
	fn(status)
}

// FetchLiveGames refreshes today's games for every tracked team and stores
// the ones still worth polling per sport under global_live_games. Finished
// games and games past their sport's grace window are left out.
func (s *BackgroundJobsService) FetchLiveGames(ctx context.Context) error {
	teams, err := s.TrackedTeams(ctx)
	if err != nil {
		return err
	}
	if len(teams) == 0 {
		s.logger.DebugContext(ctx, "no teams to track, skipping live games fetch")
		return nil
	}

	total, failed := s.fanOutSports(ctx, teams, func(ctx context.Context, sport game.Sport, sportTeams []favorite.Team) (int, error) {
		result := s.data.FetchSportDataFresh(ctx, sport, sportTeams)
		if !result.OK() {
			return 0, result.Err
		}
		now := s.now()
		pollable := make([]game.Game, 0, len(result.Value))
		for _, g := range result.Value {
			if game.ShouldStillPoll(g, now) {
				pollable = append(pollable, g)
			}
		}
		cache.SetJSON(ctx, s.store, cache.Key("global_live_games", string(sport)), GlobalGames{
			Sport:      sport,
			Games:      pollable,
			Teams:      trackedTeamRefs(sportTeams),
			LastUpdate: delta.FormatTimestamp(now),
		}, globalLiveGamesTTL)
		return len(pollable), nil
	})

	s.logger.InfoContext(ctx, "live games fetch completed", "games", total, "failed_sports", failed)
	return nil
}

// FetchUpcomingGames stores each sport's unfinished games starting within
// the next seven days under global_upcoming_games.
func (s *BackgroundJobsService) FetchUpcomingGames(ctx context.Context) error {
	teams, err := s.TrackedTeams(ctx)
	if err != nil {
		return err
	}
	if len(teams) == 0 {
		s.logger.DebugContext(ctx, "no teams to track, skipping upcoming games fetch")
		return nil
	}

	now := s.now().UTC()
	window := DateWindow{Start: now, End: now.AddDate(0, 0, upcomingDaysAhead)}
	horizon := now.Add(upcomingDaysAhead * 24 * time.Hour)

	total, failed := s.fanOutSports(ctx, teams, func(ctx context.Context, sport game.Sport, sportTeams []favorite.Team) (int, error) {
		result := s.data.FetchSportDataWindow(ctx, sport, sportTeams, window)
		if !result.OK() {
			return 0, result.Err
		}
		upcoming := make([]game.Game, 0, len(result.Value))
		for _, g := range result.Value {
			start, ok := g.StartedAt()
			if ok && !g.Completed && start.After(now) && !start.After(horizon) {
				upcoming = append(upcoming, g)
			}
		}
		cache.SetJSON(ctx, s.store, cache.Key("global_upcoming_games", string(sport)), GlobalGames{
			Sport:      sport,
			Games:      upcoming,
			Teams:      trackedTeamRefs(sportTeams),
			LastUpdate: delta.FormatTimestamp(s.now()),
			DaysAhead:  upcomingDaysAhead,
		}, globalUpcomingGamesTTL)
		return len(upcoming), nil
	})

	s.logger.InfoContext(ctx, "upcoming games fetch completed", "games", total, "failed_sports", failed)
	return nil
}

func (s *BackgroundJobsService) ProcessGameNotifications(ctx context.Context) error {
	stats, err := s.notifications.ProcessGameNotifications(ctx)
	if err != nil {
		return err
	}
	if stats.Users > 0 {
		s.logger.InfoContext(ctx, "notification scan completed",
			"users", stats.Users,
			"sent", stats.Sent,
			"failed", stats.Failed,
			"expired", stats.Expired,
		)
	}
	return nil
}

// CleanupCache sweeps expired in-process entries, drops games snapshots of
// team sets nobody follows anymore, and prunes the tracked team set.
func (s *BackgroundJobsService) CleanupCache(ctx context.Context) error {
	swept := 0
	if sweeper, ok := s.store.(cache.Sweeper); ok {
		swept = sweeper.Sweep(ctx)
	}

	userIDs, err := s.favorites.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	live := make(map[string]struct{}, len(userIDs))
	var followed []favorite.Team
	for _, userID := range userIDs {
		favorites, ok, err := s.favorites.Get(ctx, userID)
		if err != nil || !ok {
			continue
		}
		followed = append(followed, favorites.Teams...)
		live[cache.Key("games_snapshot", favorite.Hash(favorites.Teams))] = struct{}{}
	}

	var orphaned []string
	for _, key := range s.store.Keys(ctx, cache.Key("games_snapshot", "*")) {
		if _, ok := live[key]; !ok {
			orphaned = append(orphaned, key)
		}
	}
	if len(orphaned) > 0 {
		s.store.Delete(ctx, orphaned...)
	}
	pruned := s.data.PruneTrackedTeams(followed)

	s.logger.InfoContext(ctx, "cache cleanup completed", "swept", swept, "orphaned_snapshots", len(orphaned), "pruned_teams", pruned)
	return nil
}

// GenerateUserSummaries recomputes and caches the summary of every user
// with favorites.
func (s *BackgroundJobsService) GenerateUserSummaries(ctx context.Context) error {
	userIDs, err := s.favorites.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(userIDs) == 0 {
		return nil
	}

	workers, err := ants.NewPool(min(s.workers, len(userIDs)))
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer workers.Release()

	var succeeded atomic.Int32
	var wg sync.WaitGroup
	for _, userID := range userIDs {
		userID := userID
		wg.Add(1)
		if err := workers.Submit(func() {
			defer wg.Done()

			favorites, ok, err := s.favorites.Get(ctx, userID)
			if err != nil {
				s.logger.WarnContext(ctx, "summary skipped", "user_id", userID, "error", err)
				return
			}
			if !ok {
				return
			}
			current := s.data.GenerateUserSummary(ctx, userID, favorites.Teams)
			if cache.SetJSON(ctx, s.store, cache.Key("user_summary", userID), current, scheduledSummaryTTL) {
				succeeded.Add(1)
			}
		}); err != nil {
			wg.Done()
			return fmt.Errorf("submit summary task: %w", err)
		}
	}
	wg.Wait()

	s.logger.InfoContext(ctx, "user summaries generated", "succeeded", succeeded.Load(), "users", len(userIDs))
	return nil
}

// TrackedTeams merges the teams followed by stored users with those
// scheduled at runtime, deduplicated by sport:teamId.
func (s *BackgroundJobsService) TrackedTeams(ctx context.Context) ([]favorite.Team, error) {
	userIDs, err := s.favorites.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var teams []favorite.Team
	for _, userID := range userIDs {
		favorites, ok, err := s.favorites.Get(ctx, userID)
		if err != nil {
			s.logger.WarnContext(ctx, "favorites unreadable", "user_id", userID, "error", err)
			continue
		}
		if ok {
			teams = append(teams, favorites.Teams...)
		}
	}
	teams = append(teams, s.data.TrackedTeams()...)
	return favorite.Dedupe(teams), nil
}

type sportJobResult struct {
	count int
	err   error
}

// fanOutSports runs fn once per sport concurrently and waits for all of them.
func (s *BackgroundJobsService) fanOutSports(
	ctx context.Context,
	teams []favorite.Team,
	fn func(context.Context, game.Sport, []favorite.Team) (int, error),
) (int, int) {
	grouped := favorite.GroupBySport(teams)
	p := pool.NewWithResults[sportJobResult]().WithMaxGoroutines(len(grouped))
	for sport, sportTeams := range grouped {
		sport, sportTeams := sport, sportTeams
		p.Go(func() sportJobResult {
			count, err := fn(ctx, sport, sportTeams)
			if err != nil {
				s.logger.WarnContext(ctx, "sport refresh failed", "sport", sport, "error", err)
			}
			return sportJobResult{count: count, err: err}
		})
	}

	total, failed := 0, 0
	for _, result := range p.Wait() {
		total += result.count
		if result.err != nil {
			failed++
		}
	}
	return total, failed
}

func trackedTeamRefs(teams []favorite.Team) []TrackedTeam {
	out := make([]TrackedTeam, 0, len(teams))
	for _, team := range teams {
		name := team.TeamName
		if name == "" {
			name = team.DisplayName
		}
		out = append(out, TrackedTeam{ID: string(team.TeamID), Sport: team.Sport, Name: name})
	}
	return out
}

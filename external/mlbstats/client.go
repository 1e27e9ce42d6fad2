package mlbstats

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/sports-tracker/external/upstream"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/domain/standing"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
)

const (
	DefaultBaseURL = "https://statsapi.mlb.com"
	source         = "mlb"

	scheduleHydrate  = "team,linescore,venue"
	standingsLeagues = "103,104"
)

// Client reads schedules, standings and teams from the MLB Stats API.
type Client struct {
	http    *upstream.Client
	baseURL string
}

var _ usecase.MLBProvider = (*Client)(nil)

func NewClient(httpClient *upstream.Client, baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: baseURL}
}

// ScheduleURL builds the schedule request for window; a zero window asks
// for today.
func (c *Client) ScheduleURL(window usecase.DateWindow) string {
	values := url.Values{}
	values.Set("sportId", "1")
	values.Set("hydrate", scheduleHydrate)

	start := window.Start
	if start.IsZero() {
		start = time.Now()
	}
	end := window.End
	if end.IsZero() {
		end = start
	}
	values.Set("startDate", start.UTC().Format(time.DateOnly))
	values.Set("endDate", end.UTC().Format(time.DateOnly))

	return c.baseURL + "/api/v1/schedule?" + values.Encode()
}

func (c *Client) FetchSchedule(ctx context.Context, window usecase.DateWindow) ([]usecase.MLBGameSource, error) {
	var payload scheduleEnvelope
	req := upstream.Request{Source: source, Sport: string(game.SportMLB), URL: c.ScheduleURL(window)}
	if err := c.http.GetJSON(ctx, req, &payload); err != nil {
		return nil, fmt.Errorf("fetch mlb schedule: %w", err)
	}

	out := make([]usecase.MLBGameSource, 0, 16)
	for _, date := range payload.Dates {
		for _, item := range date.Games {
			out = append(out, mapGame(item))
		}
	}
	return out, nil
}

func (c *Client) FetchStandings(ctx context.Context, season int) ([]standing.Row, error) {
	values := url.Values{}
	values.Set("leagueId", standingsLeagues)
	values.Set("season", strconv.Itoa(season))
	values.Set("standingsTypes", "regularSeason")
	values.Set("hydrate", "team")
	endpoint := c.baseURL + "/api/v1/standings?" + values.Encode()

	var payload standingsEnvelope
	if err := c.http.GetJSON(ctx, upstream.Request{Source: source, Sport: string(game.SportMLB), URL: endpoint}, &payload); err != nil {
		return nil, fmt.Errorf("fetch mlb standings season=%d: %w", season, err)
	}

	rows := make([]standing.Row, 0, 30)
	for _, record := range payload.Records {
		for _, team := range record.TeamRecords {
			rows = append(rows, mapStanding(record.Division.Name, team))
		}
	}
	return rows, nil
}

func (c *Client) FetchTeam(ctx context.Context, teamID string) (map[string]any, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, fmt.Errorf("%w: team id is required", usecase.ErrInvalidInput)
	}
	endpoint := fmt.Sprintf("%s/api/v1/teams/%s", c.baseURL, url.PathEscape(teamID))

	var payload struct {
		Teams []map[string]any `json:"teams"`
	}
	if err := c.http.GetJSON(ctx, upstream.Request{Source: source, Sport: string(game.SportMLB), URL: endpoint}, &payload); err != nil {
		if upstream.IsNotFound(err) {
			return nil, fmt.Errorf("%w: mlb team %s", usecase.ErrNotFound, teamID)
		}
		return nil, fmt.Errorf("fetch mlb team %s: %w", teamID, err)
	}
	if len(payload.Teams) == 0 {
		return nil, fmt.Errorf("%w: mlb team %s", usecase.ErrNotFound, teamID)
	}
	return payload.Teams[0], nil
}

func mapGame(item gamePayload) usecase.MLBGameSource {
	return usecase.MLBGameSource{
		GamePK:            item.GamePK,
		GameDate:          item.GameDate,
		AbstractGameState: item.Status.AbstractGameState,
		DetailedState:     item.Status.DetailedState,
		Home:              mapSide(item.Teams.Home),
		Away:              mapSide(item.Teams.Away),
		CurrentInning:     item.Linescore.CurrentInning,
		InningHalf:        item.Linescore.InningHalf,
		Venue:             item.Venue.Name,
	}
}

func mapSide(side sidePayload) usecase.ExternalSide {
	out := usecase.ExternalSide{
		Name:         side.Team.Name,
		Abbreviation: side.Team.Abbreviation,
		Score:        side.Score,
	}
	if side.Team.ID > 0 {
		out.ID = strconv.FormatInt(side.Team.ID, 10)
	}
	return out
}

func mapStanding(division string, record teamRecord) standing.Row {
	row := standing.Row{
		TeamName:     record.Team.Name,
		Abbreviation: record.Team.Abbreviation,
		Sport:        game.SportMLB,
		Group:        division,
		Wins:         record.Wins,
		Losses:       record.Losses,
		GamesBehind:  record.GamesBack,
	}
	if record.Team.ID > 0 {
		row.TeamID = strconv.FormatInt(record.Team.ID, 10)
	}
	if pct, err := strconv.ParseFloat(strings.TrimSpace(record.WinningPercentage), 64); err == nil {
		row.WinPercent = pct
	}
	if rank, err := strconv.Atoi(strings.TrimSpace(record.DivisionRank)); err == nil {
		row.Rank = rank
	}
	return row
}

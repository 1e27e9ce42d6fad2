package espn

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/riskibarqy/sports-tracker/external/upstream"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/domain/standing"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
)

const (
	DefaultBaseURL = "https://site.api.espn.com"
	source         = "espn"
	dateLayout     = "20060102"
)

var sportPaths = map[game.Sport]string{
	game.SportNFL: "football/nfl",
	game.SportNBA: "basketball/nba",
	game.SportNHL: "hockey/nhl",
	game.SportMLB: "baseball/mlb",
	game.SportF1:  "racing/f1",
}

// Client reads the ESPN site scoreboard, standings and team APIs.
type Client struct {
	http    *upstream.Client
	baseURL string
}

var _ usecase.ESPNProvider = (*Client)(nil)

func NewClient(httpClient *upstream.Client, baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: baseURL}
}

func sportPath(sport game.Sport, league string) (string, error) {
	if sport == game.SportSoccer {
		if strings.TrimSpace(league) == "" {
			return "", fmt.Errorf("%w: soccer requires a league", usecase.ErrInvalidInput)
		}
		return "soccer/" + url.PathEscape(league), nil
	}
	path, ok := sportPaths[sport]
	if !ok {
		return "", fmt.Errorf("%w: espn does not serve %q", usecase.ErrInvalidInput, sport)
	}
	return path, nil
}

// ScoreboardURL builds the scoreboard request for sport and query.
func (c *Client) ScoreboardURL(sport game.Sport, query usecase.ScoreboardQuery) (string, error) {
	path, err := sportPath(sport, query.League)
	if err != nil {
		return "", err
	}

	values := url.Values{}
	switch {
	case query.Week > 0:
		values.Set("week", strconv.Itoa(query.Week))
		if query.SeasonType > 0 {
			values.Set("seasontype", strconv.Itoa(query.SeasonType))
		}
	case !query.Window.Start.IsZero():
		dates := query.Window.Start.UTC().Format(dateLayout)
		if !query.Window.IsSingleDay() {
			dates += "-" + query.Window.End.UTC().Format(dateLayout)
		}
		values.Set("dates", dates)
	}

	out := fmt.Sprintf("%s/apis/site/v2/sports/%s/scoreboard", c.baseURL, path)
	if encoded := values.Encode(); encoded != "" {
		out += "?" + encoded
	}
	return out, nil
}

func (c *Client) FetchScoreboard(ctx context.Context, sport game.Sport, query usecase.ScoreboardQuery) ([]usecase.ESPNEventSource, error) {
	endpoint, err := c.ScoreboardURL(sport, query)
	if err != nil {
		return nil, err
	}

	var payload scoreboardEnvelope
	if err := c.http.GetJSON(ctx, upstream.Request{Source: source, Sport: string(sport), URL: endpoint}, &payload); err != nil {
		return nil, fmt.Errorf("fetch %s scoreboard: %w", sport, err)
	}

	out := make([]usecase.ESPNEventSource, 0, len(payload.Events))
	for _, event := range payload.Events {
		out = append(out, mapEvent(sport, event))
	}
	return out, nil
}

func (c *Client) FetchStandings(ctx context.Context, sport game.Sport) ([]standing.Row, error) {
	path, err := sportPath(sport, "")
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/apis/v2/sports/%s/standings", c.baseURL, path)

	var payload standingsGroup
	if err := c.http.GetJSON(ctx, upstream.Request{Source: source, Sport: string(sport), URL: endpoint}, &payload); err != nil {
		return nil, fmt.Errorf("fetch %s standings: %w", sport, err)
	}

	rows := make([]standing.Row, 0, 32)
	collectStandings(sport, payload, &rows)
	return rows, nil
}

func (c *Client) FetchTeam(ctx context.Context, sport game.Sport, teamID string) (map[string]any, error) {
	path, err := sportPath(sport, "")
	if err != nil {
		return nil, err
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, fmt.Errorf("%w: team id is required", usecase.ErrInvalidInput)
	}
	endpoint := fmt.Sprintf("%s/apis/site/v2/sports/%s/teams/%s", c.baseURL, path, url.PathEscape(teamID))

	var payload map[string]any
	if err := c.http.GetJSON(ctx, upstream.Request{Source: source, Sport: string(sport), URL: endpoint}, &payload); err != nil {
		if upstream.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s team %s", usecase.ErrNotFound, sport, teamID)
		}
		return nil, fmt.Errorf("fetch %s team %s: %w", sport, teamID, err)
	}
	if team, ok := payload["team"].(map[string]any); ok {
		return team, nil
	}
	return payload, nil
}

func mapEvent(sport game.Sport, event eventPayload) usecase.ESPNEventSource {
	out := usecase.ESPNEventSource{
		Sport:        sport,
		ID:           event.ID,
		Date:         event.Date,
		Name:         event.Name,
		State:        event.Status.Type.State,
		Completed:    event.Status.Type.Completed,
		Description:  event.Status.Type.Description,
		DisplayClock: event.Status.DisplayClock,
		Period:       event.Status.Period,
	}
	if len(event.Competitions) == 0 {
		return out
	}

	competition := event.Competitions[0]
	out.Venue = competition.Venue.FullName
	out.LastPlay = competition.Situation.LastPlay.Text
	if sport == game.SportF1 {
		// Race entrants are drivers, not two sides.
		return out
	}
	for _, competitor := range competition.Competitors {
		out.Competitors = append(out.Competitors, usecase.ExternalSide{
			ID:           firstNonEmpty(competitor.Team.ID, competitor.ID),
			Name:         competitor.Team.DisplayName,
			Abbreviation: competitor.Team.Abbreviation,
			HomeAway:     competitor.HomeAway,
			Score:        competitor.Score,
		})
	}
	return out
}

// collectStandings walks nested conference/division groups and appends
// every entry found.
func collectStandings(sport game.Sport, group standingsGroup, rows *[]standing.Row) {
	for _, entry := range group.Standings.Entries {
		*rows = append(*rows, mapStandingEntry(sport, group.Name, entry))
	}
	for _, child := range group.Children {
		collectStandings(sport, child, rows)
	}
}

func mapStandingEntry(sport game.Sport, groupName string, entry standingEntry) standing.Row {
	row := standing.Row{
		TeamID:       entry.Team.ID,
		TeamName:     entry.Team.DisplayName,
		Abbreviation: entry.Team.Abbreviation,
		Sport:        sport,
		Group:        groupName,
	}
	for _, stat := range entry.Stats {
		switch stat.Name {
		case "wins":
			row.Wins = int(stat.Value)
		case "losses":
			row.Losses = int(stat.Value)
		case "ties", "otLosses":
			row.Ties += int(stat.Value)
		case "winPercent":
			row.WinPercent = stat.Value
		case "gamesBehind":
			row.GamesBehind = stat.DisplayValue
		case "points":
			row.Points = int(stat.Value)
		case "playoffSeed":
			row.Rank = int(stat.Value)
		}
	}
	return row
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

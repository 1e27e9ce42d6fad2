package espn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/sports-tracker/external/upstream"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
)

const scoreboardFixture = `{
  "events": [
    {
      "id": "401585601",
      "date": "2026-07-01T23:30Z",
      "name": "Boston Celtics at Los Angeles Lakers",
      "status": {"displayClock": "5:32", "period": 3, "type": {"state": "in", "completed": false, "description": "In Progress"}},
      "competitions": [{
        "venue": {"fullName": "Crypto.com Arena"},
        "situation": {"lastPlay": {"text": "LeBron James makes layup"}},
        "competitors": [
          {"id": "13", "homeAway": "home", "score": "91", "team": {"id": "13", "displayName": "Los Angeles Lakers", "abbreviation": "LAL"}},
          {"id": "2", "homeAway": "away", "score": {"value": 88, "displayValue": "88"}, "team": {"id": "2", "displayName": "Boston Celtics", "abbreviation": "BOS"}}
        ]
      }]
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	httpClient := upstream.NewClient(upstream.Config{
		HTTPClient: &http.Client{Timeout: time.Second},
		Logger:     logging.NewNop(),
	})
	return NewClient(httpClient, server.URL)
}

func TestClient_ScoreboardURL(t *testing.T) {
	t.Parallel()

	client := NewClient(nil, "https://espn.test/")
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		sport game.Sport
		query usecase.ScoreboardQuery
		want  string
	}{
		{"today", game.SportNBA, usecase.ScoreboardQuery{}, "https://espn.test/apis/site/v2/sports/basketball/nba/scoreboard"},
		{"single day", game.SportNHL, usecase.ScoreboardQuery{Window: usecase.SingleDay(day)}, "https://espn.test/apis/site/v2/sports/hockey/nhl/scoreboard?dates=20260701"},
		{"range", game.SportF1, usecase.ScoreboardQuery{Window: usecase.DateWindow{Start: day, End: day.AddDate(0, 0, 7)}}, "https://espn.test/apis/site/v2/sports/racing/f1/scoreboard?dates=20260701-20260708"},
		{"nfl week", game.SportNFL, usecase.ScoreboardQuery{Week: 5, SeasonType: 2}, "https://espn.test/apis/site/v2/sports/football/nfl/scoreboard?seasontype=2&week=5"},
		{"soccer league", game.SportSoccer, usecase.ScoreboardQuery{League: "eng.1"}, "https://espn.test/apis/site/v2/sports/soccer/eng.1/scoreboard"},
	}
	for _, tc := range cases {
		got, err := client.ScoreboardURL(tc.sport, tc.query)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}

	if _, err := client.ScoreboardURL(game.SportSoccer, usecase.ScoreboardQuery{}); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("soccer without league should be invalid, got %v", err)
	}
}

func TestClient_FetchScoreboardMapsEvents(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/basketball/nba/scoreboard") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(scoreboardFixture))
	})

	events, err := client.FetchScoreboard(context.Background(), game.SportNBA, usecase.ScoreboardQuery{})
	if err != nil {
		t.Fatalf("fetch scoreboard: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	event := events[0]
	if event.State != "in" || event.Period != 3 || event.Venue != "Crypto.com Arena" || event.LastPlay == "" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if len(event.Competitors) != 2 || event.Competitors[0].HomeAway != "home" || event.Competitors[0].Abbreviation != "LAL" {
		t.Fatalf("unexpected competitors: %+v", event.Competitors)
	}

	parsed, err := usecase.ParseGame(event, time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("parse mapped event: %v", err)
	}
	if parsed.HomeTeam.Score != 91 || parsed.AwayTeam.Score != 88 || !parsed.InProgress {
		t.Fatalf("unexpected parsed game: %+v", parsed)
	}
}

func TestClient_FetchScoreboardDropsF1Entrants(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"events":[{"id":"600","name":"British Grand Prix","status":{"type":{"state":"pre"}},"competitions":[{"competitors":[{"id":"1","score":"0"}]}]}]}`))
	})

	events, err := client.FetchScoreboard(context.Background(), game.SportF1, usecase.ScoreboardQuery{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 1 || len(events[0].Competitors) != 0 || events[0].Name != "British Grand Prix" {
		t.Fatalf("unexpected f1 events: %+v", events)
	}
}

func TestClient_FetchStandingsWalksGroups(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/apis/v2/sports/hockey/nhl/standings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
		  "name": "NHL",
		  "children": [
		    {"name": "Eastern", "children": [
		      {"name": "Atlantic", "standings": {"entries": [
		        {"team": {"id": "6", "displayName": "Bruins", "abbreviation": "BOS"},
		         "stats": [{"name": "wins", "value": 40}, {"name": "losses", "value": 20}, {"name": "otLosses", "value": 5}, {"name": "points", "value": 85}, {"name": "gamesBehind", "value": 0, "displayValue": "-"}]}
		      ]}}
		    ]},
		    {"name": "Western", "standings": {"entries": [
		      {"team": {"id": "25", "displayName": "Stars", "abbreviation": "DAL"}, "stats": [{"name": "wins", "value": 38}]}
		    ]}}
		  ]
		}`))
	})

	rows, err := client.FetchStandings(context.Background(), game.SportNHL)
	if err != nil {
		t.Fatalf("fetch standings: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected rows from nested groups, got %d", len(rows))
	}
	if rows[0].TeamID != "6" || rows[0].Group != "Atlantic" || rows[0].Ties != 5 || rows[0].Points != 85 || rows[0].GamesBehind != "-" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Group != "Western" || rows[1].Wins != 38 {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestClient_FetchTeam(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/teams/999") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"team": {"id": "13", "displayName": "Los Angeles Lakers"}}`))
	})

	team, err := client.FetchTeam(context.Background(), game.SportNBA, "13")
	if err != nil {
		t.Fatalf("fetch team: %v", err)
	}
	if team["id"] != "13" {
		t.Fatalf("expected unwrapped team object, got %+v", team)
	}

	if _, err := client.FetchTeam(context.Background(), game.SportNBA, "999"); !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package mlbstats

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riskibarqy/sports-tracker/external/upstream"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(upstream.NewClient(upstream.Config{
		HTTPClient: &http.Client{Timeout: time.Second},
		Logger:     logging.NewNop(),
	}), server.URL)
}

func TestClient_ScheduleURL(t *testing.T) {
	t.Parallel()

	client := NewClient(nil, "https://mlb.test")
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	got := client.ScheduleURL(usecase.DateWindow{Start: day, End: day.AddDate(0, 0, 2)})
	want := "https://mlb.test/api/v1/schedule?endDate=2026-07-03&hydrate=team%2Clinescore%2Cvenue&sportId=1&startDate=2026-07-01"
	if got != want {
		t.Fatalf("ScheduleURL() = %s, want %s", got, want)
	}

	single := client.ScheduleURL(usecase.SingleDay(day))
	if single != "https://mlb.test/api/v1/schedule?endDate=2026-07-01&hydrate=team%2Clinescore%2Cvenue&sportId=1&startDate=2026-07-01" {
		t.Fatalf("unexpected single-day url %s", single)
	}
}

func TestClient_FetchScheduleMapsGames(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/schedule" || r.URL.Query().Get("sportId") != "1" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{
		  "dates": [{"date": "2026-07-01", "games": [
		    {"gamePk": 746001, "gameDate": "2026-07-01T23:05:00Z",
		     "status": {"abstractGameState": "Live", "detailedState": "In Progress"},
		     "teams": {
		       "home": {"score": 3, "team": {"id": 147, "name": "New York Yankees", "abbreviation": "NYY"}},
		       "away": {"score": 2, "team": {"id": 111, "name": "Boston Red Sox", "abbreviation": "BOS"}}
		     },
		     "linescore": {"currentInning": 5, "inningHalf": "Top"},
		     "venue": {"name": "Yankee Stadium"}},
		    {"gamePk": 746002, "gameDate": "2026-07-02T17:05:00Z",
		     "status": {"abstractGameState": "Preview", "detailedState": "Scheduled"},
		     "teams": {"home": {"team": {"id": 110}}, "away": {"team": {"id": 141}}}}
		  ]}]
		}`))
	})

	games, err := client.FetchSchedule(context.Background(), usecase.SingleDay(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("fetch schedule: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	live := games[0]
	if live.GamePK != 746001 || live.Home.ID != "147" || live.CurrentInning != 5 || live.Venue != "Yankee Stadium" {
		t.Fatalf("unexpected live game: %+v", live)
	}

	parsed, err := usecase.ParseGame(live, time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.InProgress || parsed.HomeTeam.Score != 3 || parsed.AwayTeam.Score != 2 {
		t.Fatalf("unexpected parsed game: %+v", parsed)
	}
	if games[1].Home.Score != nil {
		t.Fatalf("missing score should stay nil, got %v", games[1].Home.Score)
	}
}

func TestClient_FetchStandings(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("season") != "2026" || r.URL.Query().Get("leagueId") != "103,104" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"records": [{"division": {"id": 201, "name": "American League East"}, "teamRecords": [
		  {"team": {"id": 147, "name": "New York Yankees"}, "wins": 50, "losses": 33, "winningPercentage": ".602", "gamesBack": "-", "divisionRank": "1"}
		]}]}`))
	})

	rows, err := client.FetchStandings(context.Background(), 2026)
	if err != nil {
		t.Fatalf("fetch standings: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	row := rows[0]
	if row.TeamID != "147" || row.Wins != 50 || row.WinPercent != 0.602 || row.Rank != 1 || row.Group != "American League East" {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestClient_FetchTeamNotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"teams": []}`))
	})

	if _, err := client.FetchTeam(context.Background(), "9999"); !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package game

import (
	"encoding/json"
	"testing"
	"time"
)

func TestExtractScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  any
		want int
	}{
		{name: "nil", raw: nil, want: 0},
		{name: "int", raw: 7, want: 7},
		{name: "float", raw: float64(21), want: 21},
		{name: "numeric string", raw: "3", want: 3},
		{name: "decimal string", raw: "4.0", want: 4},
		{name: "empty string", raw: "", want: 0},
		{name: "garbage string", raw: "abc", want: 0},
		{name: "json number", raw: json.Number("12"), want: 12},
		{name: "value object", raw: map[string]any{"value": float64(5), "displayValue": "5"}, want: 5},
		{name: "display value only", raw: map[string]any{"displayValue": "9"}, want: 9},
		{name: "empty object", raw: map[string]any{}, want: 0},
		{name: "bool", raw: true, want: 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractScore(tc.raw); got != tc.want {
				t.Fatalf("ExtractScore(%v) = %d, want %d", tc.raw, got, tc.want)
			}
		})
	}
}

func TestShouldStillPoll(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 7, 1, 19, 0, 0, 0, time.UTC)
	base := Game{ID: "g1", Sport: SportMLB, StartTime: start.Format(time.RFC3339)}

	if ShouldStillPoll(base, start.Add(3*time.Minute)) {
		t.Fatalf("ambiguous mlb game past its grace window should not be polled")
	}
	if !ShouldStillPoll(base, start.Add(time.Minute)) {
		t.Fatalf("ambiguous mlb game inside its grace window should be polled")
	}
	if !ShouldStillPoll(base, start.Add(-time.Hour)) {
		t.Fatalf("future game should be polled")
	}

	live := base
	live.InProgress = true
	if !ShouldStillPoll(live, start.Add(4*time.Hour)) {
		t.Fatalf("in-progress game should always be polled")
	}

	done := live
	done.Completed = true
	if ShouldStillPoll(done, start.Add(30*time.Second)) {
		t.Fatalf("explicit completed flag must stop polling")
	}

	soccer := base
	soccer.Sport = SportSoccer
	if !ShouldStillPoll(soccer, start.Add(20*time.Minute)) {
		t.Fatalf("soccer grace window is longer than twenty minutes")
	}
}

func TestPhaseMapping(t *testing.T) {
	t.Parallel()

	if got := MLBPhase("Live"); got != PhaseInProgress {
		t.Fatalf("MLBPhase(Live) = %q", got)
	}
	if got := MLBPhase("Final"); got != PhaseCompleted {
		t.Fatalf("MLBPhase(Final) = %q", got)
	}
	if got := MLBPhase("Preview"); got != PhaseScheduled {
		t.Fatalf("MLBPhase(Preview) = %q", got)
	}
	if got := ESPNPhase("in", false); got != PhaseInProgress {
		t.Fatalf("ESPNPhase(in) = %q", got)
	}
	if got := ESPNPhase("pre", true); got != PhaseCompleted {
		t.Fatalf("completed flag should win, got %q", got)
	}

	start := time.Date(2026, 7, 1, 19, 0, 0, 0, time.UTC)
	if got := ResolvePhase(PhaseUnknown, SportNBA, start, start.Add(10*time.Minute)); got != PhaseCompleted {
		t.Fatalf("stale unknown phase should resolve to completed, got %q", got)
	}
	if got := ResolvePhase(PhaseUnknown, SportNBA, start, start.Add(time.Minute)); got != PhaseUnknown {
		t.Fatalf("fresh unknown phase should stay unknown, got %q", got)
	}
}

func TestParseSport(t *testing.T) {
	t.Parallel()

	if sport, ok := ParseSport(" NBA "); !ok || sport != SportNBA {
		t.Fatalf("ParseSport(NBA) = %q, %v", sport, ok)
	}
	if _, ok := ParseSport("cricket"); ok {
		t.Fatalf("cricket should be rejected")
	}
	if SportF1.SupportsStandings() {
		t.Fatalf("f1 has no standings table")
	}
	if got := SportNames(StandingsSports); got != "mlb, nba, nfl, nhl" {
		t.Fatalf("SportNames = %q", got)
	}
}

func TestGameKeyFallsBackToGameID(t *testing.T) {
	t.Parallel()

	if got := (Game{GameID: "legacy"}).Key(); got != "legacy" {
		t.Fatalf("Key() = %q, want legacy", got)
	}
	if got := (Game{ID: "a", GameID: "b"}).Key(); got != "a" {
		t.Fatalf("Key() = %q, want a", got)
	}
}

func TestWinnerAndLoser(t *testing.T) {
	t.Parallel()

	home := Team{ID: "1", Name: "Yankees"}
	away := Team{ID: "2", Name: "Red Sox"}

	tests := []struct {
		name       string
		home, away int
		wantWinner string
	}{
		{name: "home leads", home: 5, away: 2, wantWinner: "1"},
		{name: "away leads", home: 1, away: 4, wantWinner: "2"},
		{name: "level score reports away", home: 3, away: 3, wantWinner: "2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h, a := home, away
			h.Score, a.Score = tc.home, tc.away
			winner, loser := Game{HomeTeam: h, AwayTeam: a}.WinnerAndLoser()
			if winner.ID != tc.wantWinner || loser.ID == winner.ID {
				t.Fatalf("winner=%s loser=%s, want winner %s", winner.ID, loser.ID, tc.wantWinner)
			}
		})
	}
}

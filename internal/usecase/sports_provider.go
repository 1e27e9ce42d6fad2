package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/domain/standing"
)

// DateWindow is an inclusive range of calendar days in UTC.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// SingleDay returns a window covering only day.
func SingleDay(day time.Time) DateWindow {
	return DateWindow{Start: day, End: day}
}

func (w DateWindow) IsSingleDay() bool {
	return w.End.IsZero() || w.Start.Format(time.DateOnly) == w.End.Format(time.DateOnly)
}

// ScoreboardQuery narrows an ESPN-style scoreboard request.
type ScoreboardQuery struct {
	League     string
	Window     DateWindow
	Week       int
	SeasonType int
}

// GameSource is a raw upstream game record. Only MLBGameSource and
// ESPNEventSource implement it.
type GameSource interface {
	gameSource()
}

// MLBGameSource is one statsapi schedule entry.
type MLBGameSource struct {
	GamePK            int64
	GameDate          string
	AbstractGameState string
	DetailedState     string
	Home              ExternalSide
	Away              ExternalSide
	CurrentInning     int
	InningHalf        string
	Venue             string
}

// ESPNEventSource is one scoreboard event from the ESPN site API.
type ESPNEventSource struct {
	Sport        game.Sport
	ID           string
	Date         string
	Name         string
	State        string
	Completed    bool
	Description  string
	DisplayClock string
	Period       int
	LastPlay     string
	Venue        string
	Competitors  []ExternalSide
}

// ExternalSide is one competitor. Score keeps the upstream encoding.
type ExternalSide struct {
	ID           string
	Name         string
	Abbreviation string
	HomeAway     string
	Score        any
}

func (MLBGameSource) gameSource()   {}
func (ESPNEventSource) gameSource() {}

// ESPNProvider reads the ESPN site and standings APIs.
type ESPNProvider interface {
	FetchScoreboard(ctx context.Context, sport game.Sport, query ScoreboardQuery) ([]ESPNEventSource, error)
	FetchStandings(ctx context.Context, sport game.Sport) ([]standing.Row, error)
	FetchTeam(ctx context.Context, sport game.Sport, teamID string) (map[string]any, error)
}

// MLBProvider reads the MLB Stats API.
type MLBProvider interface {
	FetchSchedule(ctx context.Context, window DateWindow) ([]MLBGameSource, error)
	FetchStandings(ctx context.Context, season int) ([]standing.Row, error)
	FetchTeam(ctx context.Context, teamID string) (map[string]any, error)
}

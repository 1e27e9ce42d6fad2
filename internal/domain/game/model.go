package game

import "time"

// Team is one side of a game. Score is always numeric after normalization.
type Team struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Score        int    `json:"score"`
}

// Game is the normalized shape shared by every sport.
// ID falls back to GameID when the upstream used the legacy key.
type Game struct {
	ID         string `json:"id,omitempty"`
	GameID     string `json:"gameId,omitempty"`
	Sport      Sport  `json:"sport"`
	Name       string `json:"name,omitempty"`
	HomeTeam   Team   `json:"homeTeam"`
	AwayTeam   Team   `json:"awayTeam"`
	HomeScore  *int   `json:"homeScore,omitempty"`
	AwayScore  *int   `json:"awayScore,omitempty"`
	Status     string `json:"status"`
	InProgress bool   `json:"inProgress"`
	Completed  bool   `json:"completed"`
	StartTime  string `json:"startTime"`
	Period     *int   `json:"period,omitempty"`
	Clock      string `json:"clock,omitempty"`
	Inning     *int   `json:"inning,omitempty"`
	InningHalf string `json:"inningHalf,omitempty"`
	LastPlay   string `json:"lastPlay,omitempty"`
	GameState  string `json:"gameState,omitempty"`
	Venue      string `json:"venue,omitempty"`
	LastUpdate string `json:"lastUpdate,omitempty"`
}

// Key returns the identifier used to match a game across snapshots.
func (g Game) Key() string {
	if g.ID != "" {
		return g.ID
	}
	return g.GameID
}

func (g Game) StartedAt() (time.Time, bool) {
	if g.StartTime == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, g.StartTime)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// Involves reports whether teamID plays on either side.
func (g Game) Involves(teamID string) bool {
	if teamID == "" {
		return false
	}
	return g.HomeTeam.ID == teamID || g.AwayTeam.ID == teamID
}

// IsScheduled is true for games that have neither started nor finished.
func (g Game) IsScheduled() bool {
	return !g.InProgress && !g.Completed
}

// WinnerAndLoser returns the leading side first. The home team must lead
// outright; a level score reports the away team.
func (g Game) WinnerAndLoser() (Team, Team) {
	if g.HomeTeam.Score > g.AwayTeam.Score {
		return g.HomeTeam, g.AwayTeam
	}
	return g.AwayTeam, g.HomeTeam
}

func IntPtr(value int) *int {
	return &value
}

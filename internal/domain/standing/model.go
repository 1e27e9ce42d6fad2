package standing

import (
	"github.com/riskibarqy/sports-tracker/internal/domain/delta"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
)

// Row is one team's line in a standings table.
type Row struct {
	TeamID       string     `json:"teamId"`
	TeamName     string     `json:"teamName"`
	Abbreviation string     `json:"abbreviation,omitempty"`
	Sport        game.Sport `json:"sport"`
	Group        string     `json:"group,omitempty"`
	Wins         int        `json:"wins"`
	Losses       int        `json:"losses"`
	Ties         int        `json:"ties,omitempty"`
	WinPercent   float64    `json:"winPercent"`
	GamesBehind  string     `json:"gamesBehind,omitempty"`
	Points       int        `json:"points,omitempty"`
	Rank         int        `json:"rank,omitempty"`
}

// Table is the cached standings payload for one sport.
type Table struct {
	Sport      game.Sport `json:"sport"`
	Standings  []Row      `json:"standings"`
	LastUpdate string     `json:"lastUpdate"`
}

type UpdatedRow struct {
	TeamID  string          `json:"teamId"`
	Changes delta.FieldDiff `json:"changes"`
	Row     Row             `json:"row"`
}

type Changes struct {
	Added   []Row        `json:"added"`
	Updated []UpdatedRow `json:"updated"`
	Removed []Row        `json:"removed"`
}

// Diff compares standings tables by team id.
func Diff(current, previous []Row) (Changes, delta.Summary) {
	before := make(map[string]Row, len(previous))
	for _, row := range previous {
		before[row.TeamID] = row
	}

	changes := Changes{Added: []Row{}, Updated: []UpdatedRow{}, Removed: []Row{}}
	seen := make(map[string]struct{}, len(current))
	for _, row := range current {
		seen[row.TeamID] = struct{}{}
		old, ok := before[row.TeamID]
		if !ok {
			changes.Added = append(changes.Added, row)
			continue
		}
		if diff := rowChanges(row, old); len(diff) > 0 {
			changes.Updated = append(changes.Updated, UpdatedRow{TeamID: row.TeamID, Changes: diff, Row: row})
		}
	}
	for _, row := range previous {
		if _, ok := seen[row.TeamID]; !ok {
			changes.Removed = append(changes.Removed, row)
		}
	}

	return changes, delta.Summary{
		Added:   len(changes.Added),
		Updated: len(changes.Updated),
		Removed: len(changes.Removed),
	}
}

func rowChanges(current, previous Row) delta.FieldDiff {
	diff := delta.FieldDiff{}
	if current.Wins != previous.Wins {
		diff["wins"] = delta.Change{From: previous.Wins, To: current.Wins}
	}
	if current.Losses != previous.Losses {
		diff["losses"] = delta.Change{From: previous.Losses, To: current.Losses}
	}
	if current.Ties != previous.Ties {
		diff["ties"] = delta.Change{From: previous.Ties, To: current.Ties}
	}
	if current.WinPercent != previous.WinPercent {
		diff["winPercent"] = delta.Change{From: previous.WinPercent, To: current.WinPercent}
	}
	if current.GamesBehind != previous.GamesBehind {
		diff["gamesBehind"] = delta.Change{From: previous.GamesBehind, To: current.GamesBehind}
	}
	if current.Points != previous.Points {
		diff["points"] = delta.Change{From: previous.Points, To: current.Points}
	}
	if current.Rank != previous.Rank {
		diff["rank"] = delta.Change{From: previous.Rank, To: current.Rank}
	}
	return diff
}

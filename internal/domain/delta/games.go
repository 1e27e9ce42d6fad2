package delta

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
)

// ObservedFields are the only game fields that count as a change.
// lastUpdate is never diffed.
var ObservedFields = []string{
	"status",
	"period",
	"clock",
	"homeScore",
	"awayScore",
	"lastPlay",
	"gameState",
	"inProgress",
	"completed",
}

// Change records one field transition. A nil side means the field was absent.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

type FieldDiff map[string]Change

type UpdatedGame struct {
	ID      string    `json:"id"`
	Changes FieldDiff `json:"changes"`
	Game    game.Game `json:"game"`
}

type RemovedGame struct {
	ID   string    `json:"id"`
	Game game.Game `json:"game"`
}

type Changes struct {
	Added   []game.Game   `json:"added"`
	Updated []UpdatedGame `json:"updated"`
	Removed []RemovedGame `json:"removed"`
}

type Summary struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
}

// GamesDelta is the result of comparing two game snapshots.
type GamesDelta struct {
	HasChanges     bool
	DeltaType      Type
	LastUpdate     string
	Games          []game.Game
	Changes        *Changes
	ChangesSummary Summary
}

func (d GamesDelta) MarshalJSON() ([]byte, error) {
	switch d.DeltaType {
	case TypeNone:
		return sonic.Marshal(struct {
			HasChanges     bool    `json:"hasChanges"`
			DeltaType      Type    `json:"deltaType"`
			LastUpdate     string  `json:"lastUpdate"`
			ChangesSummary Summary `json:"changesSummary"`
		}{d.HasChanges, d.DeltaType, d.LastUpdate, d.ChangesSummary})
	case TypeFull:
		return sonic.Marshal(struct {
			Games          []game.Game `json:"games"`
			HasChanges     bool        `json:"hasChanges"`
			DeltaType      Type        `json:"deltaType"`
			LastUpdate     string      `json:"lastUpdate"`
			ChangesSummary Summary     `json:"changesSummary"`
		}{nonNilGames(d.Games), d.HasChanges, d.DeltaType, d.LastUpdate, d.ChangesSummary})
	default:
		return sonic.Marshal(struct {
			HasChanges     bool        `json:"hasChanges"`
			DeltaType      Type        `json:"deltaType"`
			LastUpdate     string      `json:"lastUpdate"`
			Changes        *Changes    `json:"changes"`
			ChangesSummary Summary     `json:"changesSummary"`
			Games          []game.Game `json:"games"`
		}{d.HasChanges, d.DeltaType, d.LastUpdate, d.Changes, d.ChangesSummary, nonNilGames(d.Games)})
	}
}

// GenerateGamesDelta compares current against the previous snapshot.
// A nil previous means no snapshot exists; an empty non-nil slice is a
// snapshot with zero games.
func GenerateGamesDelta(current []game.Game, lastSync string, previous []game.Game, now time.Time) GamesDelta {
	lastUpdate := FormatTimestamp(now)

	if _, ok := ParseLastSync(lastSync); !ok || previous == nil {
		return GamesDelta{
			HasChanges:     true,
			DeltaType:      TypeFull,
			LastUpdate:     lastUpdate,
			Games:          current,
			ChangesSummary: Summary{Added: len(current)},
		}
	}

	previousIDs, previousByID := indexGames(previous)
	currentIDs, currentByID := indexGames(current)

	changes := Changes{
		Added:   []game.Game{},
		Updated: []UpdatedGame{},
		Removed: []RemovedGame{},
	}

	for _, id := range currentIDs {
		g := currentByID[id]
		before, existed := previousByID[id]
		if !existed {
			changes.Added = append(changes.Added, g)
			continue
		}
		if diff := GetGameChanges(g, before); len(diff) > 0 {
			changes.Updated = append(changes.Updated, UpdatedGame{ID: id, Changes: diff, Game: g})
		}
	}

	for _, id := range previousIDs {
		if _, still := currentByID[id]; !still {
			changes.Removed = append(changes.Removed, RemovedGame{ID: id, Game: previousByID[id]})
		}
	}

	summary := Summary{
		Added:   len(changes.Added),
		Updated: len(changes.Updated),
		Removed: len(changes.Removed),
	}
	if summary.Added+summary.Updated+summary.Removed == 0 {
		return GamesDelta{
			HasChanges: false,
			DeltaType:  TypeNone,
			LastUpdate: lastUpdate,
		}
	}

	games := make([]game.Game, 0, summary.Added+summary.Updated)
	games = append(games, changes.Added...)
	for _, updated := range changes.Updated {
		games = append(games, updated.Game)
	}

	return GamesDelta{
		HasChanges:     true,
		DeltaType:      TypeDelta,
		LastUpdate:     lastUpdate,
		Games:          games,
		Changes:        &changes,
		ChangesSummary: summary,
	}
}

// indexGames keys games by id in first-seen order. A repeated id keeps its
// first position and its last value.
func indexGames(games []game.Game) ([]string, map[string]game.Game) {
	order := make([]string, 0, len(games))
	byID := make(map[string]game.Game, len(games))
	for _, g := range games {
		id := g.Key()
		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = g
	}
	return order, byID
}

// HasGameChanged reports a difference on any observed field.
func HasGameChanged(current, previous game.Game) bool {
	return len(GetGameChanges(current, previous)) > 0
}

// GetGameChanges diffs the observed fields. Nested team scores are compared
// last and override the flat homeScore/awayScore entries.
func GetGameChanges(current, previous game.Game) FieldDiff {
	diff := FieldDiff{}
	for _, field := range ObservedFields {
		from := fieldValue(previous, field)
		to := fieldValue(current, field)
		if from != to {
			diff[field] = Change{From: from, To: to}
		}
	}

	if current.HomeTeam.Score != previous.HomeTeam.Score {
		diff["homeScore"] = Change{From: previous.HomeTeam.Score, To: current.HomeTeam.Score}
	}
	if current.AwayTeam.Score != previous.AwayTeam.Score {
		diff["awayScore"] = Change{From: previous.AwayTeam.Score, To: current.AwayTeam.Score}
	}
	return diff
}

func fieldValue(g game.Game, field string) any {
	switch field {
	case "status":
		return optionalString(g.Status)
	case "period":
		return optionalInt(g.Period)
	case "clock":
		return optionalString(g.Clock)
	case "homeScore":
		return optionalInt(g.HomeScore)
	case "awayScore":
		return optionalInt(g.AwayScore)
	case "lastPlay":
		return optionalString(g.LastPlay)
	case "gameState":
		return optionalString(g.GameState)
	case "inProgress":
		return g.InProgress
	case "completed":
		return g.Completed
	default:
		return nil
	}
}

func optionalString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func optionalInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nonNilGames(games []game.Game) []game.Game {
	if games == nil {
		return []game.Game{}
	}
	return games
}

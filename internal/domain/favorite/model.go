package favorite

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/riskibarqy/sports-tracker/internal/domain/game"
)

// TeamID accepts both JSON strings and numbers; upstreams disagree.
type TeamID string

func (id *TeamID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		value, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		*id = TeamID(strings.TrimSpace(value))
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return err
	}
	*id = TeamID(data)
	return nil
}

// Team is one followed team.
type Team struct {
	TeamID      TeamID     `json:"teamId" validate:"required"`
	Sport       game.Sport `json:"sport" validate:"required,oneof=mlb nfl nba nhl f1 soccer"`
	DisplayName string     `json:"displayName,omitempty"`
	TeamName    string     `json:"teamName,omitempty"`
	AddedAt     string     `json:"addedAt,omitempty"`
}

// Key is the sport-qualified identity used for hashing and dedupe.
func (t Team) Key() string {
	return string(t.Sport) + ":" + string(t.TeamID)
}

// Favorites is the per-user list persisted in the cache.
type Favorites struct {
	UserID     string `json:"userId"`
	Teams      []Team `json:"teams"`
	LastUpdate string `json:"lastUpdate"`
}

// Matches reports whether the game involves any followed team of its sport.
// Every F1 favourite matches every race.
func Matches(teams []Team, g game.Game) bool {
	for _, team := range teams {
		if team.Sport != g.Sport {
			continue
		}
		if g.Sport == game.SportF1 {
			return true
		}
		if g.Involves(string(team.TeamID)) {
			return true
		}
	}
	return false
}

// FilterBySports keeps teams whose sport is listed. An empty list keeps all.
func FilterBySports(teams []Team, sports []game.Sport) []Team {
	if len(sports) == 0 {
		return teams
	}
	allowed := make(map[game.Sport]struct{}, len(sports))
	for _, sport := range sports {
		allowed[sport] = struct{}{}
	}
	out := make([]Team, 0, len(teams))
	for _, team := range teams {
		if _, ok := allowed[team.Sport]; ok {
			out = append(out, team)
		}
	}
	return out
}

// GroupBySport buckets teams, preserving input order inside each bucket.
func GroupBySport(teams []Team) map[game.Sport][]Team {
	grouped := make(map[game.Sport][]Team)
	for _, team := range teams {
		grouped[team.Sport] = append(grouped[team.Sport], team)
	}
	return grouped
}

// Dedupe drops repeated sport:teamId pairs, keeping the first occurrence.
func Dedupe(teams []Team) []Team {
	seen := make(map[string]struct{}, len(teams))
	out := make([]Team, 0, len(teams))
	for _, team := range teams {
		if _, ok := seen[team.Key()]; ok {
			continue
		}
		seen[team.Key()] = struct{}{}
		out = append(out, team)
	}
	return out
}

package game

import "strings"

// Sport identifies one supported league family.
type Sport string

const (
	SportMLB    Sport = "mlb"
	SportNFL    Sport = "nfl"
	SportNBA    Sport = "nba"
	SportNHL    Sport = "nhl"
	SportF1     Sport = "f1"
	SportSoccer Sport = "soccer"
)

// GameSports lists every sport the games endpoints accept.
var GameSports = []Sport{SportMLB, SportNBA, SportNFL, SportNHL, SportF1, SportSoccer}

// StandingsSports lists the sports with a standings table.
var StandingsSports = []Sport{SportMLB, SportNBA, SportNFL, SportNHL}

func ParseSport(value string) (Sport, bool) {
	candidate := Sport(strings.ToLower(strings.TrimSpace(value)))
	for _, sport := range GameSports {
		if sport == candidate {
			return sport, true
		}
	}
	return "", false
}

func (s Sport) SupportsStandings() bool {
	for _, sport := range StandingsSports {
		if sport == s {
			return true
		}
	}
	return false
}

// SportNames renders a list as "mlb, nba, ..." for validation messages.
func SportNames(sports []Sport) string {
	names := make([]string, 0, len(sports))
	for _, sport := range sports {
		names = append(names, string(sport))
	}
	return strings.Join(names, ", ")
}

package usecase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/sports-tracker/internal/domain/delta"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
)

var errMalformedSource = errors.New("malformed game source")

// ParseGame normalizes any raw source into a Game stamped with now.
func ParseGame(src GameSource, now time.Time) (game.Game, error) {
	switch s := src.(type) {
	case MLBGameSource:
		return parseMLBGame(s, now)
	case ESPNEventSource:
		return parseESPNGame(s, now)
	default:
		return game.Game{}, fmt.Errorf("%w: unsupported source %T", errMalformedSource, src)
	}
}

func parseMLBGame(src MLBGameSource, now time.Time) (game.Game, error) {
	if src.GamePK == 0 {
		return game.Game{}, fmt.Errorf("%w: mlb game without gamePk", errMalformedSource)
	}

	start, _ := time.Parse(time.RFC3339, src.GameDate)
	phase := game.ResolvePhase(game.MLBPhase(src.AbstractGameState), game.SportMLB, start, now)

	out := game.Game{
		ID:         strconv.FormatInt(src.GamePK, 10),
		Sport:      game.SportMLB,
		HomeTeam:   toTeam(src.Home),
		AwayTeam:   toTeam(src.Away),
		Status:     firstNonEmpty(src.DetailedState, src.AbstractGameState),
		InProgress: phase == game.PhaseInProgress,
		Completed:  phase == game.PhaseCompleted,
		StartTime:  normalizeStart(start, src.GameDate),
		InningHalf: src.InningHalf,
		GameState:  src.AbstractGameState,
		Venue:      src.Venue,
		LastUpdate: delta.FormatTimestamp(now),
	}
	if src.CurrentInning > 0 {
		out.Inning = game.IntPtr(src.CurrentInning)
	}
	return out, nil
}

func parseESPNGame(src ESPNEventSource, now time.Time) (game.Game, error) {
	if src.ID == "" {
		return game.Game{}, fmt.Errorf("%w: %s event without id", errMalformedSource, src.Sport)
	}

	start, _ := time.Parse(time.RFC3339, normalizeESPNDate(src.Date))
	phase := game.ResolvePhase(game.ESPNPhase(src.State, src.Completed), src.Sport, start, now)

	out := game.Game{
		ID:         src.ID,
		Sport:      src.Sport,
		Name:       src.Name,
		Status:     firstNonEmpty(src.Description, src.State),
		InProgress: phase == game.PhaseInProgress,
		Completed:  phase == game.PhaseCompleted,
		StartTime:  normalizeStart(start, src.Date),
		Clock:      src.DisplayClock,
		LastPlay:   src.LastPlay,
		GameState:  src.State,
		Venue:      src.Venue,
		LastUpdate: delta.FormatTimestamp(now),
	}
	if src.Period > 0 {
		out.Period = game.IntPtr(src.Period)
	}

	// Races have a field of drivers instead of two sides.
	if src.Sport == game.SportF1 {
		return out, nil
	}

	var home, away *ExternalSide
	for i := range src.Competitors {
		side := &src.Competitors[i]
		switch strings.ToLower(side.HomeAway) {
		case "home":
			home = side
		case "away":
			away = side
		}
	}
	if home == nil || away == nil {
		if len(src.Competitors) < 2 {
			return game.Game{}, fmt.Errorf("%w: %s event %s has %d competitors", errMalformedSource, src.Sport, src.ID, len(src.Competitors))
		}
		home, away = &src.Competitors[0], &src.Competitors[1]
	}
	out.HomeTeam = toTeam(*home)
	out.AwayTeam = toTeam(*away)
	return out, nil
}

func toTeam(side ExternalSide) game.Team {
	return game.Team{
		ID:           side.ID,
		Name:         side.Name,
		Abbreviation: side.Abbreviation,
		Score:        game.ExtractScore(side.Score),
	}
}

// normalizeESPNDate pads the minute-precision timestamps ESPN emits
// ("2026-07-01T23:00Z") to RFC 3339.
func normalizeESPNDate(value string) string {
	if len(value) == len("2006-01-02T15:04Z") && strings.HasSuffix(value, "Z") {
		return strings.TrimSuffix(value, "Z") + ":00Z"
	}
	return value
}

func normalizeStart(parsed time.Time, raw string) string {
	if parsed.IsZero() {
		return raw
	}
	return parsed.UTC().Format(time.RFC3339)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

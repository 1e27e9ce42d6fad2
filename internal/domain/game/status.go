package game

import (
	"strings"
	"time"
)

// Phase is the coarse lifecycle state derived from an upstream status.
type Phase string

const (
	PhaseUnknown    Phase = ""
	PhaseScheduled  Phase = "scheduled"
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"
)

const (
	mlbGraceWindow     = 2 * time.Minute
	nflGraceWindow     = 5 * time.Minute
	soccerGraceWindow  = 30 * time.Minute
	defaultGraceWindow = 5 * time.Minute
)

// MLBPhase maps the statsapi abstractGameState.
func MLBPhase(abstractGameState string) Phase {
	switch strings.ToLower(strings.TrimSpace(abstractGameState)) {
	case "live":
		return PhaseInProgress
	case "final":
		return PhaseCompleted
	case "preview":
		return PhaseScheduled
	default:
		return PhaseUnknown
	}
}

// ESPNPhase maps status.type.state and status.type.completed.
func ESPNPhase(state string, completed bool) Phase {
	if completed {
		return PhaseCompleted
	}
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "in":
		return PhaseInProgress
	case "post":
		return PhaseCompleted
	case "pre":
		return PhaseScheduled
	default:
		return PhaseUnknown
	}
}

// GraceWindow is how long after its start an ambiguous game is still polled.
func GraceWindow(sport Sport) time.Duration {
	switch sport {
	case SportMLB:
		return mlbGraceWindow
	case SportNFL:
		return nflGraceWindow
	case SportSoccer:
		return soccerGraceWindow
	default:
		return defaultGraceWindow
	}
}

// ResolvePhase settles an unknown phase using the start time and grace window.
func ResolvePhase(phase Phase, sport Sport, start time.Time, now time.Time) Phase {
	if phase != PhaseUnknown {
		return phase
	}
	if start.IsZero() || now.Before(start) {
		return PhaseScheduled
	}
	if now.Sub(start) > GraceWindow(sport) {
		return PhaseCompleted
	}
	return PhaseUnknown
}

// ShouldStillPoll reports whether the game can still change.
// An explicit completed flag always wins over time-based inference.
func ShouldStillPoll(g Game, now time.Time) bool {
	if g.Completed {
		return false
	}
	if g.InProgress {
		return true
	}
	start, ok := g.StartedAt()
	if !ok || now.Before(start) {
		return true
	}
	return now.Sub(start) <= GraceWindow(g.Sport)
}

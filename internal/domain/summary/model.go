package summary

import (
	"time"

	"github.com/riskibarqy/sports-tracker/internal/domain/game"
)

// Summary is the per-user dashboard rollup.
type Summary struct {
	UserID         string `json:"userId"`
	TotalFavorites int    `json:"totalFavorites"`
	LiveGames      int    `json:"liveGames"`
	UpcomingGames  int    `json:"upcomingGames"`
	CompletedToday int    `json:"completedToday"`
	LastUpdate     string `json:"lastUpdate"`
}

// Build counts games by state. completedToday uses the UTC calendar day of now.
func Build(userID string, favorites int, games []game.Game, now time.Time, lastUpdate string) Summary {
	out := Summary{UserID: userID, TotalFavorites: favorites, LastUpdate: lastUpdate}
	today := now.UTC().Format(time.DateOnly)

	for _, g := range games {
		switch {
		case g.InProgress:
			out.LiveGames++
		case g.Completed:
			if start, ok := g.StartedAt(); ok && start.UTC().Format(time.DateOnly) == today {
				out.CompletedToday++
			}
		default:
			if start, ok := g.StartedAt(); !ok || start.After(now) {
				out.UpcomingGames++
			}
		}
	}
	return out
}

package httpapi

import (
	"net/http"

	"github.com/riskibarqy/sports-tracker/internal/usecase"
	"go.opentelemetry.io/otel/attribute"
)

func (h *Handler) GetSportGames(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSportGames", attribute.String("sport", pathParam(r, "sport")))
	defer span.End()

	sport := pathParam(r, "sport")
	out, err := h.sports.Games(ctx, usecase.GamesQuery{
		Sport:     sport,
		LastSync:  queryParam(r, "lastSync"),
		StartDate: queryParam(r, "startDate"),
		EndDate:   queryParam(r, "endDate"),
	})
	if err != nil {
		h.fail(ctx, w, err, "get sport games failed", "sport", sport)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetSportStandings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSportStandings", attribute.String("sport", pathParam(r, "sport")))
	defer span.End()

	sport := pathParam(r, "sport")
	out, err := h.sports.Standings(ctx, sport, queryParam(r, "lastSync"))
	if err != nil {
		h.fail(ctx, w, err, "get standings failed", "sport", sport)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetSportTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSportTeam", attribute.String("sport", pathParam(r, "sport")))
	defer span.End()

	sport := pathParam(r, "sport")
	teamID := pathParam(r, "teamID")
	out, err := h.sports.Team(ctx, sport, teamID, queryParam(r, "lastSync"))
	if err != nil {
		h.fail(ctx, w, err, "get team failed", "sport", sport, "team_id", teamID)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

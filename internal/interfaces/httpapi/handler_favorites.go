package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/sports-tracker/internal/domain/favorite"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
)

type saveFavoritesRequest struct {
	Teams []favorite.Team `json:"teams" validate:"required,dive"`
}

func (h *Handler) GetFavoriteTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFavoriteTeams")
	defer span.End()

	userID := pathParam(r, "userID")
	out, err := h.favorites.GetTeams(ctx, userID, queryParam(r, "lastUpdate"))
	if err != nil {
		h.fail(ctx, w, err, "get favorite teams failed", "user_id", userID)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) SaveFavoriteTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SaveFavoriteTeams")
	defer span.End()

	userID := pathParam(r, "userID")
	var req saveFavoritesRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	for i := range req.Teams {
		req.Teams[i].Sport = game.Sport(strings.ToLower(strings.TrimSpace(string(req.Teams[i].Sport))))
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	out, err := h.favorites.SaveTeams(ctx, userID, req.Teams)
	if err != nil {
		h.fail(ctx, w, err, "save favorite teams failed", "user_id", userID)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetFavoriteGames(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFavoriteGames")
	defer span.End()

	userID := pathParam(r, "userID")
	out, err := h.favorites.Games(ctx, userID, queryParam(r, "lastUpdate"), splitCSV(queryParam(r, "sports")))
	if err != nil {
		h.fail(ctx, w, err, "get favorite games failed", "user_id", userID)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetFavoriteSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFavoriteSummary")
	defer span.End()

	userID := pathParam(r, "userID")
	out, err := h.favorites.Summary(ctx, userID, queryParam(r, "lastUpdate"))
	if err != nil {
		h.fail(ctx, w, err, "get favorite summary failed", "user_id", userID)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetFavoritesDelta(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFavoritesDelta")
	defer span.End()

	userID := pathParam(r, "userID")
	includeSummary := false
	for _, part := range splitCSV(queryParam(r, "include")) {
		if strings.EqualFold(part, "summary") {
			includeSummary = true
		}
	}

	out, err := h.favorites.Delta(ctx, userID, queryParam(r, "lastSync"), includeSummary)
	if err != nil {
		h.fail(ctx, w, err, "get favorites delta failed", "user_id", userID)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) SyncFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SyncFavorites")
	defer span.End()

	userID := pathParam(r, "userID")
	out, err := h.favorites.Sync(ctx, userID)
	if err != nil {
		h.fail(ctx, w, err, "sync favorites failed", "user_id", userID)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetFavoritesSyncStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFavoritesSyncStatus")
	defer span.End()

	userID := pathParam(r, "userID")
	out, err := h.favorites.SyncStatus(ctx, userID)
	if err != nil {
		h.fail(ctx, w, err, "get sync status failed", "user_id", userID)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) ClearFavoritesCache(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearFavoritesCache")
	defer span.End()

	userID := pathParam(r, "userID")
	if err := h.favorites.ClearCache(ctx, userID); err != nil {
		h.fail(ctx, w, err, "clear favorites cache failed", "user_id", userID)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, messageResponse{Success: true, Message: "Cache cleared for user"})
}

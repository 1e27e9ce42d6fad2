package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func registerSystemRoutes(r chi.Router, handler *Handler, metricsHandler http.Handler) {
	r.Get("/health", handler.Health)
	r.Get("/health/cache", handler.CacheHealth)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
}

func registerSportsRoutes(r chi.Router, handler *Handler) {
	r.Route("/sports/{sport}", func(r chi.Router) {
		r.Get("/games", handler.GetSportGames)
		r.Get("/standings", handler.GetSportStandings)
		r.Get("/teams/{teamID}", handler.GetSportTeam)
	})
}

func registerFavoritesRoutes(r chi.Router, handler *Handler) {
	r.Route("/favorites", func(r chi.Router) {
		r.Get("/teams/{userID}", handler.GetFavoriteTeams)
		r.Post("/teams/{userID}", handler.SaveFavoriteTeams)
		r.Get("/games/{userID}", handler.GetFavoriteGames)
		r.Get("/summary/{userID}", handler.GetFavoriteSummary)
		r.Delete("/cache/{userID}", handler.ClearFavoritesCache)
		r.Get("/{userID}/delta", handler.GetFavoritesDelta)
		r.Post("/{userID}/sync", handler.SyncFavorites)
		r.Get("/{userID}/sync-status", handler.GetFavoritesSyncStatus)
	})
}

func registerNotificationRoutes(r chi.Router, handler *Handler) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/vapid-public-key", handler.GetVAPIDPublicKey)
		r.Post("/subscribe/{userID}", handler.Subscribe)
		r.Put("/preferences/{userID}", handler.UpdatePreferences)
		r.Post("/send/{userID}", handler.SendTestNotification)
		r.Delete("/unsubscribe/{userID}", handler.Unsubscribe)
	})
}

func registerJobRoutes(r chi.Router, handler *Handler) {
	r.Get("/jobs/status", handler.GetJobsStatus)
}

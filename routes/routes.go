package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jacoblam121/tournament-arc/handlers"
	"github.com/jacoblam121/tournament-arc/middleware"
	"github.com/jacoblam121/tournament-arc/services"
)

// SetupRoutes mounts the full HTTP surface. Everything mutating state
// outside the normal player flow lives under /admin behind the JWT
// middleware.
func SetupRoutes(
	router *chi.Mux,
	authService *services.AuthService,
	authHandler *handlers.AuthHandler,
	playerHandler *handlers.PlayerHandler,
	eventHandler *handlers.EventHandler,
	matchHandler *handlers.MatchHandler,
	leaderboardHandler *handlers.LeaderboardHandler,
	adminHandler *handlers.AdminHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/login", authHandler.LoginHandler)

	router.Route("/players", func(r chi.Router) {
		r.Post("/", playerHandler.RegisterPlayerHandler)
		r.Get("/{playerID}", playerHandler.GetProfileHandler)
		r.Get("/{playerID}/history", playerHandler.GetHistoryHandler)
		r.Get("/{playerID}/clusters/{clusterID}/rating", playerHandler.GetClusterRatingHandler)
	})

	router.Route("/clusters", func(r chi.Router) {
		r.Get("/", eventHandler.ListClustersHandler)
		r.Post("/", eventHandler.CreateClusterHandler)
	})

	router.Route("/events", func(r chi.Router) {
		r.Get("/", eventHandler.ListEventsHandler)
		r.Post("/", eventHandler.CreateEventHandler)
		r.Get("/{eventID}", eventHandler.GetEventHandler)
		r.Get("/{eventID}/standings", leaderboardHandler.StandingsHandler)
		r.Post("/{eventID}/scores", leaderboardHandler.SubmitScoreHandler)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Post("/", matchHandler.CreateMatchHandler)
		r.Post("/bridge", matchHandler.BridgeChallengeHandler)
		r.Get("/{matchID}", matchHandler.GetMatchHandler)
		r.Post("/{matchID}/activate", matchHandler.ActivateMatchHandler)
		r.Post("/{matchID}/cancel", matchHandler.CancelMatchHandler)
		r.Post("/{matchID}/results", matchHandler.ProposeResultsHandler)
		r.Post("/{matchID}/confirmations", matchHandler.RecordConfirmationHandler)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(authService))

		r.Post("/matches/{matchID}/complete", adminHandler.CompleteMatchHandler)
		r.Post("/matches/{matchID}/terminate-proposal", adminHandler.TerminateProposalHandler)
		r.Get("/matches/{matchID}/undo", adminHandler.PreviewUndoHandler)
		r.Post("/matches/{matchID}/undo", adminHandler.UndoMatchHandler)
		r.Delete("/matches/{matchID}", adminHandler.DeleteMatchHandler)
		r.Post("/matches/clear", adminHandler.ClearMatchesHandler)

		r.Post("/players/{playerID}/reset-elo", adminHandler.ResetPlayerEloHandler)
		r.Post("/reset-elo", adminHandler.ResetAllEloHandler)
		r.Post("/events/{eventID}/reset-leaderboard", adminHandler.ResetLeaderboardEventHandler)
		r.Post("/reset-leaderboards", adminHandler.ResetAllLeaderboardsHandler)
	})

	router.Get("/ws/events/{eventID}", webSocketHandler.ServeWs)
}

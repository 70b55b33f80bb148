package app

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/futsalhub/platform/internal/auth"
	"github.com/futsalhub/platform/internal/guard"
	"github.com/futsalhub/platform/internal/handler"
	adminhandler "github.com/futsalhub/platform/internal/handler/admin"
	"github.com/futsalhub/platform/internal/infra"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	DB          infra.Pinger
	JWTMgr      *auth.JWTManager
	Core        *Core
	Limiter     *guard.RateLimiter
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	jwtMgr := deps.JWTMgr
	logger := deps.Logger
	core := deps.Core

	// Handlers
	matchHandler := handler.NewMatchHandler(core.Match)
	meHandler := handler.NewMeHandler(core.Users)
	fixtureAdmin := adminhandler.NewFixtureAdminHandler(core.Admin)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS(deps.CORSOrigins))
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(deps.DB, core.Hub))

	// Viewer websocket (no auth, throttled per IP)
	r.With(handler.RateLimit(deps.Limiter)).Get("/ws", core.Hub.ServeWS)

	// Public live reads
	r.Route("/matches/{id}", func(r chi.Router) {
		r.Use(handler.RateLimit(deps.Limiter))
		r.Use(auth.OptionalAuth(jwtMgr))

		r.Get("/live", matchHandler.GetLive)
		r.Get("/minute", matchHandler.GetMinute)
		r.Get("/possession", matchHandler.GetPossession)
	})

	// Operator writes; per-match assignment is checked by the service
	r.Route("/operator/matches/{id}", func(r chi.Router) {
		r.Use(auth.AuthenticateStaff(jwtMgr))
		r.Use(auth.RequireRole(auth.StaffRoles()...))

		r.Post("/events", matchHandler.RecordEvent)
		r.Post("/substitutions", matchHandler.RecordSubstitution)
		r.Post("/transitions", matchHandler.Transition)
		r.Post("/possession", matchHandler.TogglePossession)
		r.Post("/stoppage", matchHandler.AnnounceStoppage)
	})

	// Admin routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.AuthenticateStaff(jwtMgr))
		r.Use(auth.RequireRole(auth.AdminRoles()...))

		r.Delete("/events/{id}", matchHandler.DeleteEvent)

		r.Post("/teams", fixtureAdmin.CreateTeam)
		r.Post("/players", fixtureAdmin.CreatePlayer)
		r.Post("/matches", fixtureAdmin.CreateMatch)

		r.Route("/matches/{id}", func(r chi.Router) {
			r.Get("/audit", matchHandler.AuditScore)
			r.Put("/lineups", fixtureAdmin.SetLineup)
			r.Post("/operators", fixtureAdmin.AssignOperator)
			r.Delete("/operators/{userID}", fixtureAdmin.UnassignOperator)
		})
	})

	// Authenticated viewer routes
	r.Route("/me", func(r chi.Router) {
		r.Use(auth.AuthenticateUser(jwtMgr))

		r.Get("/notifications", meHandler.ListNotifications)
		r.Post("/notifications/{id}/read", meHandler.MarkRead)
		r.Put("/push-token", meHandler.SetPushToken)
		r.Put("/language", meHandler.SetLanguage)
		r.Put("/favorites/teams", meHandler.SetFavoriteTeams)
		r.Put("/favorites/matches/{id}", meHandler.FavoriteMatch)
		r.Delete("/favorites/matches/{id}", meHandler.UnfavoriteMatch)
	})

	return r
}

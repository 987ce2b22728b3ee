package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tmorvan/bankdesk/internal/auth"
	"github.com/tmorvan/bankdesk/internal/handlers"
	"github.com/tmorvan/bankdesk/internal/middleware"
	"github.com/tmorvan/bankdesk/internal/models"
	"github.com/tmorvan/bankdesk/internal/repositories"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	configHandler *handlers.SystemConfigHandler,
	ticketHandler *handlers.TicketHandler,
	kbHandler *handlers.KnowledgeBaseHandler,
	auditHandler *handlers.AuditHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
	loginLimit middleware.RateLimitConfig,
) {
	// Public routes
	router.With(middleware.RateLimitByIP(loginLimit)).Post("/auth/login", authHandler.Login)

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/me", authHandler.Me)
		r.Put("/auth/me", authHandler.UpdateProfile)

		// Tickets: visibility scoping happens in the service layer
		r.Post("/tickets", ticketHandler.Create)
		r.Get("/tickets", ticketHandler.List)
		r.Get("/tickets/{id}", ticketHandler.Get)
		r.Put("/tickets/{id}", ticketHandler.Update)
		r.Post("/tickets/{id}/comments", ticketHandler.AddComment)
		r.Get("/tickets/{id}/comments", ticketHandler.ListComments)

		// Knowledge base: everyone reads, admins write
		r.Get("/kb", kbHandler.Search)
		r.Get("/kb/{id}", kbHandler.Get)
		r.Post("/kb/{id}/rate", kbHandler.Rate)

		// Staff routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, models.RoleSupport, models.RoleAdmin))
			r.Get("/tickets/stats", ticketHandler.Stats)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, models.RoleAdmin))

			r.Get("/users", userHandler.List)
			r.Post("/users", userHandler.Create)
			r.Get("/users/{id}", userHandler.Get)
			r.Put("/users/{id}", userHandler.Update)
			r.Patch("/users/{id}/password", userHandler.ResetPassword)
			r.Put("/users/{id}/status", userHandler.SetActive)
			r.Delete("/users/{id}", userHandler.Delete)

			r.Get("/system-config", configHandler.Get)
			r.Put("/system-config", configHandler.Update)
			r.Post("/system-config/reset-lockouts", configHandler.ResetLockouts)

			r.Delete("/tickets/{id}", ticketHandler.Delete)

			r.Post("/kb", kbHandler.Create)
			r.Put("/kb/{id}", kbHandler.Update)
			r.Delete("/kb/{id}", kbHandler.Delete)

			r.Get("/audit-logs", auditHandler.List)
		})
	})
}

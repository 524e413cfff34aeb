// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/sgea/event-attendance/internal/config"
	"github.com/sgea/event-attendance/internal/handler"
	"github.com/sgea/event-attendance/internal/middleware"
	"github.com/sgea/event-attendance/internal/model"
)

// Handlers collects every handler the router mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	Event        *handler.EventHandler
	Registration *handler.RegistrationHandler
	Attendance   *handler.AttendanceHandler
	Audit        *handler.AuditHandler
}

// Register mounts all routes.  The public browse endpoints carry the
// Redis response cache; everything under the protected group runs
// JWT authentication and role checks.  Fine-grained authorization
// (ownership, self-access) happens in the policy layer, not here.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Public browse: events are visible without a session.
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	e.GET("/v1/events", h.Event.List, cache)
	e.GET("/v1/events/:id", h.Event.Get, cache)

	// Session lifecycle.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/refresh-access", h.Auth.RefreshAccess)
	auth.POST("/logout", h.Auth.Logout)
	// Logout also works top-level with just a refresh token.
	e.POST("/v1/logout", h.Auth.Logout)

	// Everything else requires a valid access token with a known role.
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(
		model.RoleParticipant, model.RoleTeacher, model.RoleOrganizer, model.RoleStaff))

	g.GET("/me", h.Auth.Me)

	// Event catalog.
	g.POST("/events", h.Event.Create)
	g.PUT("/events/:id", h.Event.Update)
	g.DELETE("/events/:id", h.Event.Delete)
	g.POST("/events/:id/code", h.Event.IssueCode)
	g.GET("/events/:id/attendees", h.Registration.Attendees)

	// Registration ledger.
	g.POST("/events/:id/registrations", h.Registration.Register)
	g.GET("/registrations/mine", h.Registration.Mine)
	g.DELETE("/registrations/:id", h.Registration.Cancel)

	// Attendance and certificates.
	g.PUT("/registrations/:id/presence", h.Attendance.SetPresence)
	g.POST("/events/:id/confirm", h.Attendance.ConfirmByCode)
	g.GET("/registrations/:id/certificate", h.Attendance.Certificate)

	// Audit trail.
	g.GET("/audit", h.Audit.List)
	g.POST("/audit/purge", h.Audit.Purge)
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-booking-gateway/internal/booking"
	"github.com/iliyamo/cinema-booking-gateway/internal/config"
	"github.com/iliyamo/cinema-booking-gateway/internal/handler"
	"github.com/iliyamo/cinema-booking-gateway/internal/middleware"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Auth     *handler.AuthHandler
	Browse   *handler.BrowseHandler
	Sessions *handler.SessionHandler
	Tickets  *handler.TicketsHandler
	Health   echo.HandlerFunc
	Metrics  echo.HandlerFunc
}

// Options carries the middleware settings of the routes.  Rdb may be nil,
// which disables the response cache and the rate limiter.
type Options struct {
	JWTSecret string
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Rdb       *redis.Client
}

// RegisterRoutes registers the operational endpoints.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health)
	if h.Metrics != nil {
		e.GET("/metrics", h.Metrics)
	}
}

// RegisterAuth registers sign-in, registration and sign-out under /v1/auth.
// A session token is optional on all three: when present the browser keeps
// its client id across the sign-in.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, opt Options) {
	g := e.Group("/v1/auth", middleware.SessionAuth(opt.JWTSecret, middleware.Optional, ""))
	g.POST("/login", a.Login)
	g.POST("/register", a.Register)
	g.POST("/logout", a.Logout)
}

// RegisterPublic registers the catalog reads behind the response cache.
func RegisterPublic(e *echo.Echo, b *handler.BrowseHandler, opt Options) {
	g := e.Group("/v1", middleware.NewRedisCache(opt.Cache, opt.Rdb))
	g.GET("/movies", b.Movies)
	g.GET("/movies/:id", b.Movie)
	g.GET("/movies/:id/sessions", b.MovieSessions)
	g.GET("/cinemas", b.Cinemas)
	g.GET("/cinemas/:id/sessions", b.CinemaSessions)
}

// RegisterSessions registers the seat map.  Guests see it read-only.
// Submissions are rate limited.
func RegisterSessions(e *echo.Echo, s *handler.SessionHandler, opt Options) {
	g := e.Group("/v1/sessions", middleware.SessionAuth(opt.JWTSecret, middleware.Optional, ""))
	g.GET("/:id", s.Show)
	g.POST("/:id/seats/toggle", s.Toggle)
	g.DELETE("/:id/selection", s.Reset)
	g.POST("/:id/bookings", s.Submit, middleware.NewTokenBucket(opt.RateLimit, opt.Rdb))
}

// RegisterTickets registers the ticket list and payments.  They require a
// session; guests get a redirect to sign in and come back to the list.
func RegisterTickets(e *echo.Echo, t *handler.TicketsHandler, opt Options) {
	auth := middleware.SessionAuth(opt.JWTSecret, middleware.Required, booking.TicketsPath)
	e.GET("/v1/me/tickets", t.List, auth)
	e.GET("/v1/me/tickets/stream", t.Stream, auth)
	e.POST("/v1/bookings/:id/payments", t.Pay, auth, middleware.NewTokenBucket(opt.RateLimit, opt.Rdb))
}

// Register wires every route group.
func Register(e *echo.Echo, h Handlers, opt Options) {
	RegisterRoutes(e, h)
	RegisterAuth(e, h.Auth, opt)
	RegisterPublic(e, h.Browse, opt)
	RegisterSessions(e, h.Sessions, opt)
	RegisterTickets(e, h.Tickets, opt)
}

// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/handler"
	"github.com/iliyamo/movie-booking/internal/middleware"
)

// Deps carries everything the routes need.  Redis may be nil, which
// disables caching and rate limiting.
type Deps struct {
	Log       *logrus.Logger
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	DB        handler.Pinger
	Resolver  middleware.TokenResolver

	Auth      *handler.AuthHandler
	Movies    *handler.MovieHandler
	Showtimes *handler.ShowtimeHandler
	Halls     *handler.HallHandler
	Bookings  *handler.BookingHandler
}

// New builds the Echo instance with global middleware and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.Recover())
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis))

	RegisterRoutes(e, d.DB)
	RegisterAuth(e, d.Auth, d.Resolver)
	RegisterCatalog(e, d)
	RegisterBookings(e, d.Bookings, d.Resolver)
	RegisterAdmin(e, d)
	return e
}

// RegisterRoutes registers the unauthenticated health checks.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth registers registration and login under /v1/auth and the
// current account under /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, resolver middleware.TokenResolver) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(resolver))
}

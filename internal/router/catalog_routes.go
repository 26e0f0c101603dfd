package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/middleware"
)

// RegisterCatalog registers the public, cached movie reads and the
// authenticated showtime reads.  Showtime visibility depends on the
// caller's role, so those responses are not cached.
func RegisterCatalog(e *echo.Echo, d Deps) {
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	e.GET("/v1/movies", d.Movies.List, cache)
	e.GET("/v1/movies/search", d.Movies.Search, cache)
	e.GET("/v1/movies/:id", d.Movies.Get, cache)

	g := e.Group("/v1/showtimes", middleware.JWTAuth(d.Resolver))
	g.GET("", d.Showtimes.List)
	g.GET("/:id", d.Showtimes.Get)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/middleware"
)

// RegisterAdmin registers catalog writes.  Every successful write drops
// the cached movie responses.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.Resolver),
		middleware.RequireAdmin(),
		middleware.InvalidateCache(d.Cache, d.Redis),
	)

	g.POST("/movies", d.Movies.Create)
	g.PUT("/movies/:id", d.Movies.Update)
	g.DELETE("/movies/:id", d.Movies.Deactivate)

	g.POST("/showtimes", d.Showtimes.Create)
	g.PUT("/showtimes/:id", d.Showtimes.Update)
	g.PATCH("/showtimes/:id/deactivate", d.Showtimes.Deactivate)
	g.DELETE("/showtimes/:id", d.Showtimes.Delete)

	g.GET("/halls", d.Halls.List)
	g.POST("/halls", d.Halls.Create)
}

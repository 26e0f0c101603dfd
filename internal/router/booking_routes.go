package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/handler"
	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/model"
)

// RegisterBookings registers the booking lifecycle.  Customers act on
// their own bookings; admins on any.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, resolver middleware.TokenResolver) {
	g := e.Group(
		"/v1/bookings",
		middleware.JWTAuth(resolver),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.POST("/:id/cancel", h.Cancel)
	g.DELETE("/:id", h.Delete)
}

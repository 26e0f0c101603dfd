package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/service"
)

// Bookings is the booking lifecycle.
type Bookings interface {
	Create(ctx context.Context, userID, showtimeID uint64, seats int) (*model.Booking, error)
	Cancel(ctx context.Context, who service.Identity, bookingID uint64) (*model.Booking, error)
	Delete(ctx context.Context, who service.Identity, bookingID uint64) error
	List(ctx context.Context, who service.Identity, p service.Page) ([]model.Booking, error)
}

// BookingHandler serves the caller's bookings.  Admins see and manage
// every booking.
type BookingHandler struct {
	bookings Bookings
}

func NewBookingHandler(bookings Bookings) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

type createBookingReq struct {
	ShowtimeID uint64 `json:"showtime_id" validate:"required"`
	Seats      int    `json:"seats" validate:"gt=0"`
}

// Create books seats for the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.bookings.Create(ctx, caller(c).UserID, req.ShowtimeID, req.Seats)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) List(c echo.Context) error {
	p, ok := pageFrom(c)
	if !ok {
		return badRequest(c, "invalid skip/limit")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.bookings.List(ctx, caller(c), p)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []model.Booking{}
	}
	return c.JSON(http.StatusOK, items)
}

// Cancel returns the seats to the showtime unless the showtime starts
// within the lockout window.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.bookings.Cancel(ctx, caller(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.bookings.Delete(ctx, caller(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

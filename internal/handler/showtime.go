package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/service"
)

// Schedule manages showtimes.
type Schedule interface {
	Create(ctx context.Context, in service.ShowtimeInput) (*model.Showtime, error)
	Update(ctx context.Context, id uint64, in service.ShowtimeInput) (*model.Showtime, error)
	Get(ctx context.Context, id uint64, isAdmin bool) (*model.Showtime, error)
	List(ctx context.Context, q service.ShowtimeQuery, isAdmin bool) ([]model.Showtime, error)
	Deactivate(ctx context.Context, id uint64) (*model.Showtime, error)
	Delete(ctx context.Context, id uint64) error
}

type ShowtimeHandler struct {
	showtimes Schedule
}

func NewShowtimeHandler(showtimes Schedule) *ShowtimeHandler {
	return &ShowtimeHandler{showtimes: showtimes}
}

// List filters by ?movie_id=.  Admins also see inactive showtimes.
func (h *ShowtimeHandler) List(c echo.Context) error {
	p, ok := pageFrom(c)
	if !ok {
		return badRequest(c, "invalid skip/limit")
	}
	q := service.ShowtimeQuery{Page: p}
	if v := c.QueryParam("movie_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return badRequest(c, "invalid movie_id")
		}
		q.MovieID = &id
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.showtimes.List(ctx, q, caller(c).IsAdmin)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []model.Showtime{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ShowtimeHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.showtimes.Get(ctx, id, caller(c).IsAdmin)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Create schedules a showtime.  A collision answers 409 naming the
// conflicting showtime.
func (h *ShowtimeHandler) Create(c echo.Context) error {
	var in service.ShowtimeInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&in); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.showtimes.Create(ctx, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *ShowtimeHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	var in service.ShowtimeInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&in); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.showtimes.Update(ctx, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *ShowtimeHandler) Deactivate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.showtimes.Deactivate(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *ShowtimeHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.showtimes.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

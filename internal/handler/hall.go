package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/model"
)

type Halls interface {
	Create(ctx context.Context, name string) (*model.Hall, error)
	List(ctx context.Context) ([]model.Hall, error)
}

type HallHandler struct {
	halls Halls
}

func NewHallHandler(halls Halls) *HallHandler {
	return &HallHandler{halls: halls}
}

type createHallReq struct {
	Name string `json:"name" validate:"required,notblank,max=128"`
}

func (h *HallHandler) Create(c echo.Context) error {
	var req createHallReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	hall, err := h.halls.Create(ctx, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, hall)
}

func (h *HallHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.halls.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []model.Hall{}
	}
	return c.JSON(http.StatusOK, items)
}

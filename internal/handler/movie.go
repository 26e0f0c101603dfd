package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/service"
)

// Catalog is the movie side of the catalog store.
type Catalog interface {
	Create(ctx context.Context, in service.MovieInput) (*model.Movie, error)
	Get(ctx context.Context, id uint64) (*model.Movie, error)
	List(ctx context.Context, p service.Page) ([]model.Movie, error)
	Search(ctx context.Context, q service.MovieSearch) (*service.MovieSearchResult, error)
	Update(ctx context.Context, id uint64, in service.MovieInput) (*model.Movie, error)
	Deactivate(ctx context.Context, id uint64) (*model.Movie, error)
}

// MovieHandler serves the movie catalog.  Reads are public; writes are
// mounted behind the admin guard.
type MovieHandler struct {
	movies Catalog
}

func NewMovieHandler(movies Catalog) *MovieHandler {
	return &MovieHandler{movies: movies}
}

// List returns active movies.
func (h *MovieHandler) List(c echo.Context) error {
	p, ok := pageFrom(c)
	if !ok {
		return badRequest(c, "invalid skip/limit")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.movies.List(ctx, p)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []model.Movie{}
	}
	return c.JSON(http.StatusOK, items)
}

// Search filters active movies by ?title= and ?genre=.
func (h *MovieHandler) Search(c echo.Context) error {
	p, ok := pageFrom(c)
	if !ok {
		return badRequest(c, "invalid skip/limit")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.movies.Search(ctx, service.MovieSearch{
		Title: c.QueryParam("title"),
		Genre: c.QueryParam("genre"),
		Page:  p,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Get returns one active movie.
func (h *MovieHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	m, err := h.movies.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MovieHandler) Create(c echo.Context) error {
	var in service.MovieInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&in); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	m, err := h.movies.Create(ctx, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *MovieHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	var in service.MovieInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&in); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	m, err := h.movies.Update(ctx, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Deactivate soft-deletes a movie once no upcoming booking depends on it.
func (h *MovieHandler) Deactivate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	m, err := h.movies.Deactivate(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

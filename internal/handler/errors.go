package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/service"
)

// requestTimeout bounds every database round trip made on behalf of a request.
const requestTimeout = 5 * time.Second

// statusFor maps the service error taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInsufficientSeats),
		errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, service.ErrAlreadyEnded),
		errors.Is(err, service.ErrLockoutWindow),
		errors.Is(err, service.ErrNotYetCompleted):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": msg}.  Internal errors are logged
// and their text is not exposed.
func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("request failed")
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// pageFrom reads ?skip=&limit=.  Range checks happen in the service.
func pageFrom(c echo.Context) (service.Page, bool) {
	var p service.Page
	if v := c.QueryParam("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, false
		}
		p.Skip = n
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, false
		}
		p.Limit = n
	}
	return p, true
}

// caller returns the identity stored by middleware.JWTAuth, or the zero
// identity on public routes.
func caller(c echo.Context) service.Identity {
	id, _ := middleware.IdentityFrom(c)
	return id
}

package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/service"
)

const identityKey = "identity"

// SetIdentity stores the caller for IdentityFrom and the role guards.
func SetIdentity(c echo.Context, id service.Identity) {
	c.Set(identityKey, id)
	c.Set("user_id", id.UserID)
	if id.IsAdmin {
		c.Set("role", model.RoleAdmin)
	} else {
		c.Set("role", model.RoleCustomer)
	}
}

// IdentityFrom returns the caller stored by JWTAuth.
func IdentityFrom(c echo.Context) (service.Identity, bool) {
	id, ok := c.Get(identityKey).(service.Identity)
	return id, ok
}

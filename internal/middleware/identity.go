package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sukha-pms/internal/model"
)

// Context keys set by JWTAuth.
const (
	ctxUser   = "user"
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// CurrentUser returns the user JWTAuth attached to the request.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(ctxUser).(model.User)
	return u, ok
}

// SetCurrentUser attaches u to the request the way JWTAuth does.
func SetCurrentUser(c echo.Context, u model.User) {
	c.Set(ctxUser, u)
	c.Set(ctxUserID, u.ID)
	c.Set(ctxRole, u.Role)
}

// identity is the rate-limit identity of the caller: the user id once
// authenticated, "anon" before.
func identity(c echo.Context) string {
	if id, ok := c.Get(ctxUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sukha-pms/internal/model"
	"github.com/iliyamo/sukha-pms/internal/repository"
	"github.com/iliyamo/sukha-pms/internal/utils"
)

// UserLoader resolves the subject of an access token.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// JWTAuth validates the Bearer access token and loads its subject. The
// loaded user, not the token claim, is the source of the role, so a role
// change or deactivation takes effect on the next request. Any failure is
// a 401.
func JWTAuth(secret string, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			id, _ := claims.UserID()

			u, err := users.GetByID(c.Request().Context(), id)
			if errors.Is(err, repository.ErrUserNotFound) || (err == nil && !u.IsActive) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user not found"})
			}
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
			}
			SetCurrentUser(c, u)
			return next(c)
		}
	}
}

package middleware

import (
	"ai-build-shop/internal/model"
	"ai-build-shop/internal/service"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const userKey = "user"

// LoadSession resolves the session cookie into the current user. Requests
// without a valid session continue anonymously.
func LoadSession(auth service.AuthService, cookieName string, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			user, err := auth.Resolve(c.Request().Context(), cookie.Value)
			switch {
			case errors.Is(err, service.ErrUnauthenticated):
			case err != nil:
				log.Error("resolve session cookie", zap.Error(err))
				return err
			default:
				c.Set(userKey, user)
			}
			return next(c)
		}
	}
}

func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return service.ErrUnauthenticated
			}
			return next(c)
		}
	}
}

func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return service.ErrUnauthenticated
			}
			if user.Role != model.UserRoleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

// CurrentUser returns nil for anonymous requests.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(userKey).(*model.User)
	return user
}

// SetUser is used by handler tests to simulate a logged-in request.
func SetUser(c echo.Context, user *model.User) {
	c.Set(userKey, user)
}

package middleware

import (
	"log/slog"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/dounie/opshub/internal/domain"
)

// UserContextKey is the echo context key under which an authenticated
// *domain.User is stored for downstream handlers.
const UserContextKey = "user"

// Session keys written by the application's login flow.
const (
	SessionUserIDKey   = "user_id"
	SessionUsernameKey = "username"
	SessionRoleKey     = "role"
)

// SessionUser copies the identity held in the named cookie session into the
// echo context. Requests without a session pass through untouched; issuing
// sessions is the job of the login flow, not of the hub.
func SessionUser(name string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := c.Get(UserContextKey).(*domain.User); ok {
				return next(c)
			}

			sess, err := session.Get(name, c)
			if err != nil {
				slog.Debug("Ignoring unreadable session", "error", err)
				return next(c)
			}

			userID, _ := sess.Values[SessionUserIDKey].(string)
			if userID == "" {
				return next(c)
			}
			username, _ := sess.Values[SessionUsernameKey].(string)
			role, _ := sess.Values[SessionRoleKey].(string)

			c.Set(UserContextKey, &domain.User{
				ID:       userID,
				Username: username,
				Role:     domain.Role(role),
			})
			return next(c)
		}
	}
}

// UserFromContext returns the user stored by SessionUser or an upstream auth
// middleware.
func UserFromContext(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(UserContextKey).(*domain.User)
	return user, ok && user != nil && user.ID != ""
}

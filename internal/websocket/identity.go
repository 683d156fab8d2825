package websocket

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/middleware"
)

// UserIDQueryParam carries the caller identity when no upstream
// authentication has populated the request context.
const UserIDQueryParam = "userId"

// Directory looks up known users for role and username resolution.
type Directory interface {
	Lookup(userID string) (domain.User, bool)
}

// IdentityResolver determines who is on the other end of an upgrade request.
type IdentityResolver struct {
	directory Directory
}

// NewIdentityResolver creates a resolver backed by directory, which may be nil.
func NewIdentityResolver(directory Directory) *IdentityResolver {
	return &IdentityResolver{directory: directory}
}

// Resolve returns the caller identity. An authenticated user in the echo
// context wins over the query parameter. Username and role come from the
// directory when the user is known there; otherwise the username falls back
// to the ID and the role to client.
func (r *IdentityResolver) Resolve(c echo.Context) (domain.Identity, bool) {
	var id domain.Identity
	if user, ok := middleware.UserFromContext(c); ok {
		id = domain.Identity{UserID: user.ID, Username: user.Username, Role: user.Role}
	} else {
		id.UserID = strings.TrimSpace(c.QueryParam(UserIDQueryParam))
	}
	if id.UserID == "" {
		return domain.Identity{}, false
	}

	if r.directory != nil {
		if known, ok := r.directory.Lookup(id.UserID); ok {
			if id.Username == "" {
				id.Username = known.Username
			}
			if !id.Role.Valid() {
				id.Role = known.Role
			}
		}
	}
	if id.Username == "" {
		id.Username = id.UserID
	}
	if !id.Role.Valid() {
		id.Role = domain.RoleClient
	}
	return id, true
}

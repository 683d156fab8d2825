package domain

import (
	"fmt"
	"time"
)

// Role is the operational role of a user. Roles gate which users receive
// system notifications and status snapshots.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleClient  Role = "client"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff, RoleClient:
		return true
	}
	return false
}

// RoleSet is a set of roles used to filter fan-out.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports whether the set contains r.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// OperatorRoles are the roles that receive system notifications and status.
func OperatorRoles() RoleSet {
	return NewRoleSet(RoleAdmin, RoleManager)
}

// User is the presence record for a hub participant.
type User struct {
	ID       string    `json:"id" yaml:"id" validate:"required,max=128"`
	Username string    `json:"username" yaml:"username" validate:"max=128"`
	Role     Role      `json:"role" yaml:"role" validate:"required,oneof=admin manager staff client"`
	IsOnline bool      `json:"isOnline" yaml:"-"`
	LastSeen time.Time `json:"lastSeen" yaml:"-"`
}

// Validate checks the user record against its tags.
func (u *User) Validate() error {
	if err := validatorInstance.Struct(u); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	return nil
}

// Identity is the already-authenticated caller of a websocket connection.
type Identity struct {
	UserID   string
	Username string
	Role     Role
}

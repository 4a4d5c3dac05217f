package property

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("property not found")
	ErrNameRequired = errors.New("property name is required")
	ErrNotMember    = errors.New("user is not a member of this property")
	ErrForbidden    = errors.New("insufficient role for this property")
	ErrInvalidRole  = errors.New("role must be viewer, manager or owner")
)

// Role is a member's access level on a property.
type Role string

const (
	RoleViewer  Role = "viewer"
	RoleManager Role = "manager"
	RoleOwner   Role = "owner"
)

func (r Role) rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleManager:
		return 2
	case RoleOwner:
		return 3
	}

	return 0
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return r.rank() > 0 && r.rank() >= min.rank()
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r.rank() == 0 {
		return "", ErrInvalidRole
	}

	return r, nil
}

// CanManageTransactions covers creating, editing, deleting and importing transactions.
func (r Role) CanManageTransactions() bool { return r.AtLeast(RoleManager) }

func (r Role) CanEditProperty() bool { return r.AtLeast(RoleManager) }

func (r Role) CanDeleteProperty() bool { return r.AtLeast(RoleOwner) }

type Property struct {
	ID        uuid.UUID
	Name      string
	Address   *string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

type Member struct {
	PropertyID uuid.UUID
	UserID     uuid.UUID
	Role       Role
	CreatedAt  time.Time
}

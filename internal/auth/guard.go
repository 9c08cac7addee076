package auth

import (
	"time"

	apperrors "patientrecords/internal/errors"
	"patientrecords/internal/model"
)

// Identity is the verified caller of a request.
type Identity struct {
	UserID    uint
	Email     string
	Role      model.Role
	TokenID   string
	ExpiresAt time.Time
}

// IsAdmin reports whether the identity holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == model.RoleAdmin
}

// Operation names a guarded action.
type Operation string

const (
	OpListPatients  Operation = "patients.list"
	OpGetPatient    Operation = "patients.get"
	OpCreatePatient Operation = "patients.create"
	OpUpdatePatient Operation = "patients.update"
	OpDeletePatient Operation = "patients.delete"
	OpViewProfile   Operation = "auth.profile"
	OpLogout        Operation = "auth.logout"
	OpListUsers     Operation = "users.list"
	OpSeed          Operation = "seed.run"
)

type requirement int

const (
	requireAuthenticated requirement = iota + 1
	requireAdmin
)

var policy = map[Operation]requirement{
	OpListPatients:  requireAuthenticated,
	OpGetPatient:    requireAuthenticated,
	OpViewProfile:   requireAuthenticated,
	OpLogout:        requireAuthenticated,
	OpCreatePatient: requireAdmin,
	OpUpdatePatient: requireAdmin,
	OpDeletePatient: requireAdmin,
	OpListUsers:     requireAdmin,
	OpSeed:          requireAdmin,
}

// RequireAuthenticated fails unless a verified identity is present.
func RequireAuthenticated(id *Identity) error {
	if id == nil || id.UserID == 0 {
		return apperrors.ErrUnauthenticated
	}
	return nil
}

// RequireAdmin fails unless the identity is present and holds the admin role.
func RequireAdmin(id *Identity) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if !id.IsAdmin() {
		return apperrors.ErrForbidden
	}
	return nil
}

// Authorize decides whether id may perform op. Unknown operations are denied.
func Authorize(id *Identity, op Operation) error {
	req, ok := policy[op]
	if !ok {
		if err := RequireAuthenticated(id); err != nil {
			return err
		}
		return apperrors.ErrForbidden
	}
	switch req {
	case requireAdmin:
		return RequireAdmin(id)
	default:
		return RequireAuthenticated(id)
	}
}

package session

import (
	"errors"

	"github.com/isdelr/creatives/internal/models"
)

// Status is the resolution state of the session.
type Status int

const (
	// StatusUnresolved means the stored credential has not been checked yet.
	StatusUnresolved Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "invalid"
	}
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	Status Status
	User   *models.User
}

// Resolved reports whether the status is terminal.
func (s Snapshot) Resolved() bool {
	return s.Status != StatusUnresolved
}

var (
	// ErrRegisterLogin marks a registration whose follow-up sign-in failed.
	ErrRegisterLogin = errors.New("account created but sign-in failed")
	// ErrLoginRequired is returned by a gate when nobody is signed in.
	ErrLoginRequired = errors.New("sign in required")
	// ErrAdminRequired is returned by an admin gate for non-admin users.
	ErrAdminRequired = errors.New("admin access required")
)

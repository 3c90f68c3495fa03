package session

import (
	"context"
)

// Requirement is what a protected surface needs from the session.
type Requirement int

const (
	RequireUser Requirement = iota
	RequireAdmin
)

// Decision is the outcome of checking a Requirement against a Snapshot.
type Decision struct {
	Kind DecisionKind
	// Target is where to send the user when Kind is DecisionRedirect.
	Target string
}

type DecisionKind int

const (
	DecisionWait DecisionKind = iota
	DecisionRedirect
	DecisionProceed
)

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Decide never redirects before the session is resolved.
func Decide(s Snapshot, req Requirement) Decision {
	switch {
	case s.Status == StatusUnresolved:
		return Decision{Kind: DecisionWait}
	case s.Status != StatusAuthenticated || s.User == nil:
		return Decision{Kind: DecisionRedirect, Target: LoginPath}
	case req == RequireAdmin && !s.User.IsAdmin:
		return Decision{Kind: DecisionRedirect, Target: HomePath}
	default:
		return Decision{Kind: DecisionProceed}
	}
}

// Gate blocks protected operations until the session is resolved.
type Gate struct {
	m *Manager
}

// NewGate returns a Gate over m.
func NewGate(m *Manager) *Gate {
	return &Gate{m: m}
}

// Enter waits for resolution and returns the current user if req is met.
// ErrLoginRequired and ErrAdminRequired report the two redirect cases.
func (g *Gate) Enter(ctx context.Context, req Requirement) (Snapshot, error) {
	snap, err := g.m.WaitResolved(ctx)
	if err != nil {
		return snap, err
	}
	d := Decide(snap, req)
	switch {
	case d.Kind == DecisionProceed:
		return snap, nil
	case d.Target == HomePath:
		return snap, ErrAdminRequired
	default:
		return snap, ErrLoginRequired
	}
}

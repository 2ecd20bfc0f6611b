package session

import (
	"time"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// State is a snapshot of the active edit session.
type State struct {
	// ID identifies this session instance; a new Begin always gets a new ID.
	ID      string                `json:"id"`
	Target  core.EditTarget       `json:"target"`
	Column  core.ColumnDescriptor `json:"column"`
	Initial core.Value            `json:"initial"`
	Buffer  core.Value            `json:"buffer"`
	// Invalid is set when the last commit attempt failed validation.
	Invalid   bool      `json:"invalid"`
	Problem   string    `json:"problem,omitempty"`
	WarnUntil time.Time `json:"warnUntil,omitzero"`
	StartedAt time.Time `json:"startedAt"`
}

// Warning reports whether the invalid-value warning should still show at now.
func (s State) Warning(now time.Time) bool {
	return s.Invalid && now.Before(s.WarnUntil)
}

// Transition names what happened to the store.
type Transition int

// Store transitions delivered to subscribers.
const (
	// Began: a session opened. Previous holds a session that was implicitly cancelled.
	Began Transition = iota
	// Staged: the transient buffer changed.
	Staged
	// Committed: the session closed through a commit. Event is nil when the value was unchanged.
	Committed
	// Cancelled: the session closed without a commit.
	Cancelled
	// Rejected: a commit attempt failed validation and the session stayed open.
	Rejected
)

// String returns the transition name.
func (t Transition) String() string {
	switch t {
	case Began:
		return "began"
	case Staged:
		return "staged"
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// MarshalText writes the transition name.
func (t Transition) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Change is delivered to subscribers after every transition.
type Change struct {
	Kind Transition `json:"kind"`
	// Session is the session after the transition, nil when none is active.
	Session *State `json:"session,omitempty"`
	// Previous is the session the transition ended, if any.
	Previous *State            `json:"previous,omitempty"`
	Event    *core.CommitEvent `json:"event,omitempty"`
	Err      string            `json:"error,omitempty"`
}

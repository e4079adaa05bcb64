package models

import "github.com/google/uuid"

// AttemptID identifies one identification attempt across logs, audit events
// and traces.
type AttemptID uuid.UUID

// NewAttemptID returns a fresh random attempt id.
func NewAttemptID() AttemptID {
	return AttemptID(uuid.New())
}

func (id AttemptID) String() string {
	return uuid.UUID(id).String()
}

func (id AttemptID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// Snapshot is a point-in-time copy of the controller state, safe to hand to
// other goroutines.
type Snapshot struct {
	AttemptID      AttemptID
	SessionID      string
	ChannelBound   bool
	AuthStarted    bool
	CardPresent    bool
	CardBlocked    bool
	PendingCommand string // command name only, never the payload
	AccessRights   AccessRights
	State          SessionState // last state handed to subscribers, nil before the first
	NFCEnabled     bool
}

package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention.
type EventCategory string

const (
	// CategorySecurity covers card blocking, engine-reported failures and
	// protocol violations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine lifecycle events of an attempt.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted by the session controller to capture the lifecycle of an
// identification attempt. It never carries PIN, PUK or CAN values.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	AttemptID string
	SessionID string
	Action    string
	Reason    string
	// Detail holds a non-secret qualifier: a result minor URI, the host of a
	// redirect URL, a command name.
	Detail string
	// AccessRights are the data categories requested in the attempt, recorded
	// on success so disclosures can be traced.
	AccessRights []string
}

type Action string

const (
	EventIdentificationStarted   Action = "identification_started"
	EventIdentificationSucceeded Action = "identification_succeeded"
	EventIdentificationFailed    Action = "identification_failed"
	EventCardBlocked             Action = "card_blocked"
	EventProtocolViolation       Action = "protocol_violation"
	EventDecodeFailed            Action = "decode_failed"
	EventChannelFailed           Action = "channel_failed"
	EventChannelUnbound          Action = "channel_unbound"
)

var eventCategories = map[Action]EventCategory{
	EventIdentificationFailed: CategorySecurity,
	EventCardBlocked:          CategorySecurity,
	EventProtocolViolation:    CategorySecurity,
	EventDecodeFailed:         CategorySecurity,

	EventIdentificationStarted:   CategoryOperations,
	EventIdentificationSucceeded: CategoryOperations,
	EventChannelFailed:           CategoryOperations,
	EventChannelUnbound:          CategoryOperations,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := eventCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister is implemented by stores that can read back the events of one
// attempt.
type Lister interface {
	ListByAttempt(ctx context.Context, attemptID string) ([]Event, error)
}

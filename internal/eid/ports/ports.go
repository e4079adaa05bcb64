// Package ports defines the boundaries of the eID session controller: the
// channel to the identity engine and the audit sink.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"eidgate/pkg/platform/audit"
)

// Listener receives asynchronous callbacks from a Channel. Implementations
// must not block; callbacks may arrive on any goroutine.
type Listener interface {
	// SessionStarted reports that the channel is connected and the engine
	// assigned sessionID.
	SessionStarted(sessionID string)

	// MessageReceived delivers one raw inbound payload.
	MessageReceived(raw []byte)

	// Disconnected reports that the channel was lost. err is nil for an
	// orderly close initiated by the engine.
	Disconnected(err error)
}

// Channel connects to the identity engine. All operations are
// fire-and-forget; results arrive through the Listener passed to Bind.
type Channel interface {
	// Bind starts connecting and returns without waiting for the connection.
	Bind(ctx context.Context, listener Listener) error

	// Send delivers one encoded command for the given session.
	Send(sessionID string, command string) error

	// Unbind releases the channel. It is safe to call when not bound.
	Unbind() error
}

// AuditPublisher emits audit events for the identification lifecycle.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

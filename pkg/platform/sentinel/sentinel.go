package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Adapters and stores return these
// (optionally wrapped) so the controller can classify failures without
// depending on transport details.
//
// - ErrNotFound: record does not exist in a store
// - ErrNotConnected: the engine channel is not bound or the session id is stale
// - ErrInvalidState: operation not allowed in the current state (e.g. double bind)
// - ErrUnavailable: collaborator or capability temporarily unavailable
// - ErrStopped: the controller loop is no longer running
var (
	ErrNotFound     = errors.New("not found")
	ErrNotConnected = errors.New("not connected")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrStopped      = errors.New("stopped")
)

package service

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"eidgate/internal/eid/models"
	"eidgate/internal/eid/protocol"
)

// session is the controller state of one identification attempt. It is owned
// by the Run loop and never touched from other goroutines.
type session struct {
	attemptID   models.AttemptID
	tokenURL    string
	sessionID   string
	bound       bool
	authStarted bool
	cardPresent bool
	cardBlocked bool
	rights      models.AccessRights
	pending     *protocol.Command

	// generation identifies the listener of the current bind; callbacks from
	// an older listener are dropped.
	generation uint64

	span    trace.Span
	spanCtx context.Context
}

// reset clears everything scoped to one attempt and starts a new one.
func (s *session) reset(tokenURL string) {
	s.attemptID = models.NewAttemptID()
	s.tokenURL = tokenURL
	s.sessionID = ""
	s.bound = false
	s.authStarted = false
	s.cardPresent = false
	s.cardBlocked = false
	s.rights = models.AccessRights{}
	s.pending = nil
	s.generation++
}

func (s *session) pendingName() string {
	if s.pending == nil {
		return ""
	}
	return s.pending.Name
}

func (s *session) endSpan() {
	if s.span != nil {
		s.span.End()
		s.span = nil
		s.spanCtx = nil
	}
}

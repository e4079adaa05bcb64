package service

import "context"

// listener forwards channel callbacks into the mailbox, tagged with the bind
// generation it was created for.
type listener struct {
	svc        *Service
	generation uint64
}

func (l *listener) SessionStarted(sessionID string) {
	l.svc.post(context.Background(), "session_started", func(ctx context.Context) {
		if !l.current() {
			return
		}
		l.svc.sessionStarted(ctx, sessionID)
	})
}

func (l *listener) MessageReceived(raw []byte) {
	payload := append([]byte(nil), raw...)
	l.svc.post(context.Background(), "message_received", func(ctx context.Context) {
		if !l.current() {
			return
		}
		l.svc.messageReceived(ctx, payload)
	})
}

func (l *listener) Disconnected(err error) {
	l.svc.post(context.Background(), "disconnected", func(ctx context.Context) {
		if !l.current() {
			return
		}
		l.svc.disconnected(ctx, err)
	})
}

// current must only be called from the Run loop.
func (l *listener) current() bool {
	return l.svc.sess.bound && l.svc.sess.generation == l.generation
}

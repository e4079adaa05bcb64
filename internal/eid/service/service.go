// Package service implements the eID session controller. It folds inbound
// engine messages and UI operations into one session state machine and
// publishes the resulting UI states.
//
// All state is owned by the goroutine running Run. Public operations and
// channel callbacks only post closures to a bounded mailbox.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"eidgate/internal/eid/metrics"
	"eidgate/internal/eid/models"
	"eidgate/internal/eid/ports"
	"eidgate/internal/eid/protocol"
	"eidgate/pkg/platform/sentinel"
)

const (
	DefaultDebounce         = 300 * time.Millisecond
	DefaultMailboxSize      = 64
	DefaultSubscriberBuffer = 16

	tracerName = "eidgate/internal/eid/service"
)

var ErrEmptyCommand = errors.New("command name is required")

// Service is the session controller.
type Service struct {
	channel ports.Channel
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor ports.AuditPublisher
	tracer  trace.Tracer

	debounce         time.Duration
	mailboxSize      int
	subscriberBuffer int

	mailbox chan func(context.Context)
	done    chan struct{}
	running atomic.Bool

	states *broadcaster[models.SessionState]
	nfc    *broadcaster[bool]
	out    *coalescer

	// owned by Run
	sess       session
	nfcEnabled bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithDebounce sets the coalescing window for emitted states. Zero delivers
// every state immediately.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		s.debounce = d
	}
}

func WithMailboxSize(n int) Option {
	return func(s *Service) {
		s.mailboxSize = n
	}
}

// WithSubscriberBuffer sets the per-subscriber channel capacity.
func WithSubscriberBuffer(n int) Option {
	return func(s *Service) {
		s.subscriberBuffer = n
	}
}

// New constructs a Service bound to channel. Call Run to start processing.
func New(channel ports.Channel, opts ...Option) (*Service, error) {
	if channel == nil {
		return nil, fmt.Errorf("engine channel is required")
	}

	s := &Service{
		channel:          channel,
		logger:           slog.Default(),
		debounce:         DefaultDebounce,
		mailboxSize:      DefaultMailboxSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.mailboxSize < 1 {
		s.mailboxSize = 1
	}

	s.mailbox = make(chan func(context.Context), s.mailboxSize)
	s.done = make(chan struct{})
	s.states = newBroadcaster[models.SessionState](s.subscriberBuffer)
	s.nfc = newBroadcaster[bool](s.subscriberBuffer)
	s.out = newCoalescer(s.debounce, s.publishState, s.metrics.IncStateCoalesced)
	return s, nil
}

// Run processes the mailbox until ctx is cancelled. On exit the channel is
// released, a pending debounced state is flushed and all subscriptions are
// closed. Run may be called once.
func (s *Service) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("session controller already running: %w", sentinel.ErrInvalidState)
	}
	defer s.shutdown()

	s.logger.Info("session controller started", "debounce", s.debounce)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session controller stopping")
			return ctx.Err()
		case fn := <-s.mailbox:
			s.execute(ctx, fn)
		}
	}
}

func (s *Service) shutdown() {
	close(s.done)
	s.execute(context.Background(), s.unbind)
	s.out.stop()
	s.states.close()
	s.nfc.close()
}

func (s *Service) execute(ctx context.Context, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session controller operation panicked",
				"attempt_id", s.sess.attemptID.String(),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	fn(ctx)
}

// post enqueues fn for the Run loop. It blocks while the mailbox is full.
func (s *Service) post(ctx context.Context, op string, fn func(context.Context)) error {
	select {
	case <-s.done:
		s.logger.Debug("session controller stopped, dropping operation", "op", op)
		return sentinel.ErrStopped
	default:
	}

	select {
	case s.mailbox <- fn:
		return nil
	case <-s.done:
		s.logger.Debug("session controller stopped, dropping operation", "op", op)
		return sentinel.ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartIdentification binds the engine channel and runs an authentication
// for tokenURL. It is a no-op while a channel is bound.
func (s *Service) StartIdentification(ctx context.Context, tokenURL string) error {
	return s.post(ctx, "start_identification", func(ctx context.Context) {
		s.startIdentification(ctx, tokenURL)
	})
}

// SetPin submits the PIN now if a card is present, otherwise holds it until
// a card is recognized.
func (s *Service) SetPin(ctx context.Context, pin string) error {
	return s.post(ctx, "set_pin", func(ctx context.Context) {
		s.setSecret(ctx, protocol.CmdSetPin, pin)
	})
}

func (s *Service) SetPuk(ctx context.Context, puk string) error {
	return s.post(ctx, "set_puk", func(ctx context.Context) {
		s.setSecret(ctx, protocol.CmdSetPuk, puk)
	})
}

func (s *Service) SetCan(ctx context.Context, can string) error {
	return s.post(ctx, "set_can", func(ctx context.Context) {
		s.setSecret(ctx, protocol.CmdSetCan, can)
	})
}

// SendCommand sends a command without payload immediately. The pending
// secret, if any, is left untouched.
func (s *Service) SendCommand(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyCommand
	}
	return s.post(ctx, "send_command", func(ctx context.Context) {
		s.send(ctx, protocol.NewCommand(name))
	})
}

// Unbind disables NFC and releases the engine channel. It is safe to call
// at any time.
func (s *Service) Unbind(ctx context.Context) error {
	return s.post(ctx, "unbind", s.unbind)
}

// Subscribe returns a stream of settled session states. A subscriber that
// falls behind loses its oldest undelivered state. The channel closes on
// cancel or when Run exits.
func (s *Service) Subscribe() (<-chan models.SessionState, func()) {
	return s.states.subscribe()
}

// SubscribeNFC returns a stream of NFC enablement changes.
func (s *Service) SubscribeNFC() (<-chan bool, func()) {
	return s.nfc.subscribe()
}

// Snapshot returns a copy of the controller state. The request is served
// by the Run loop after every operation posted before it.
func (s *Service) Snapshot(ctx context.Context) (models.Snapshot, error) {
	result := make(chan models.Snapshot, 1)
	err := s.post(ctx, "snapshot", func(context.Context) {
		result <- s.snapshot()
	})
	if err != nil {
		return models.Snapshot{}, err
	}

	select {
	case snap := <-result:
		return snap, nil
	case <-ctx.Done():
		return models.Snapshot{}, ctx.Err()
	case <-s.done:
		return models.Snapshot{}, sentinel.ErrStopped
	}
}

func (s *Service) snapshot() models.Snapshot {
	state, _ := s.states.last()
	return models.Snapshot{
		AttemptID:      s.sess.attemptID,
		SessionID:      s.sess.sessionID,
		ChannelBound:   s.sess.bound,
		AuthStarted:    s.sess.authStarted,
		CardPresent:    s.sess.cardPresent,
		CardBlocked:    s.sess.cardBlocked,
		PendingCommand: s.sess.pendingName(),
		AccessRights:   s.sess.rights.Clone(),
		State:          state,
		NFCEnabled:     s.nfcEnabled,
	}
}

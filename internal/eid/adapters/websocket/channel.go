// Package websocket connects the session controller to the identity engine's
// SDK endpoint over a local WebSocket.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"eidgate/internal/eid/ports"
	"eidgate/pkg/platform/sentinel"
)

const (
	DefaultURL         = "ws://127.0.0.1:24727/eID-Kernel"
	DefaultOrigin      = "http://127.0.0.1"
	DefaultDialTimeout = 5 * time.Second
)

// Channel implements ports.Channel. One connection is one engine session.
type Channel struct {
	url          string
	origin       string
	dialTimeout  time.Duration
	logger       *slog.Logger
	newSessionID func() string

	mu        sync.Mutex
	bound     bool
	conn      *websocket.Conn
	sessionID string
	cancel    context.CancelFunc
	done      chan struct{}
}

type Option func(*Channel)

func WithURL(url string) Option {
	return func(c *Channel) {
		c.url = url
	}
}

func WithOrigin(origin string) Option {
	return func(c *Channel) {
		c.origin = origin
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(c *Channel) {
		c.dialTimeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// WithSessionIDFunc overrides how session ids are generated on connect.
func WithSessionIDFunc(fn func() string) Option {
	return func(c *Channel) {
		c.newSessionID = fn
	}
}

func New(opts ...Option) *Channel {
	c := &Channel{
		url:          DefaultURL,
		origin:       DefaultOrigin,
		dialTimeout:  DefaultDialTimeout,
		logger:       slog.Default(),
		newSessionID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.Channel = (*Channel)(nil)

// Bind dials the engine in the background. The listener learns the outcome
// through SessionStarted or Disconnected.
func (c *Channel) Bind(ctx context.Context, listener ports.Listener) error {
	if listener == nil {
		return fmt.Errorf("listener is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bound {
		return fmt.Errorf("engine channel already bound: %w", sentinel.ErrInvalidState)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.bound = true
	c.cancel = cancel
	c.done = done

	go c.run(ctx, listener, done)
	return nil
}

func (c *Channel) run(ctx context.Context, listener ports.Listener, done chan struct{}) {
	defer close(done)

	conn, err := c.dial(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.release(done)
		c.logger.Warn("engine dial failed", "url", c.url, "error", err)
		listener.Disconnected(fmt.Errorf("dial engine: %w", err))
		return
	}

	sessionID := c.newSessionID()
	c.mu.Lock()
	if ctx.Err() != nil || c.done != done {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.sessionID = sessionID
	c.mu.Unlock()

	c.logger.Debug("engine connected", "session_id", sessionID)
	listener.SessionStarted(sessionID)

	for {
		var frame []byte
		if err := websocket.Message.Receive(conn, &frame); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.release(done)
			_ = conn.Close()
			if errors.Is(err, io.EOF) {
				c.logger.Info("engine closed the connection", "session_id", sessionID)
				listener.Disconnected(nil)
				return
			}
			listener.Disconnected(fmt.Errorf("read engine frame: %w", err))
			return
		}
		listener.MessageReceived(frame)
	}
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	cfg, err := websocket.NewConfig(c.url, c.origin)
	if err != nil {
		return nil, err
	}
	cfg.Dialer = &net.Dialer{Timeout: c.dialTimeout}
	return cfg.DialContext(ctx)
}

// release clears the binding owned by done, if it is still current.
func (c *Channel) release(done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != done {
		return
	}
	c.cancel()
	c.reset()
}

func (c *Channel) reset() {
	c.bound = false
	c.conn = nil
	c.sessionID = ""
	c.cancel = nil
	c.done = nil
}

// Send writes one text frame. The command text is never included in errors.
func (c *Channel) Send(sessionID string, command string) error {
	c.mu.Lock()
	conn, current := c.conn, c.sessionID
	c.mu.Unlock()

	if conn == nil {
		return sentinel.ErrNotConnected
	}
	if sessionID != current {
		return fmt.Errorf("session %s is not current: %w", sessionID, sentinel.ErrInvalidState)
	}
	if err := websocket.Message.Send(conn, command); err != nil {
		return fmt.Errorf("write engine frame: %w", err)
	}
	return nil
}

// Unbind cancels a pending dial or closes the connection. It does not wait
// for the read loop; callbacks still in flight must be ignored by the
// listener's owner.
func (c *Channel) Unbind() error {
	c.mu.Lock()
	if !c.bound {
		c.mu.Unlock()
		return nil
	}
	cancel, conn := c.cancel, c.conn
	c.reset()
	c.mu.Unlock()

	cancel()
	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close engine connection: %w", err)
	}
	return nil
}

package publisher

import (
	"context"
	"errors"
	"log/slog"

	audit "eidgate/pkg/platform/audit"
	"eidgate/pkg/platform/circuit"
)

var ErrCircuitOpen = errors.New("audit store circuit open")

// guardedStore records delivery outcomes and, with a breaker, stops calling
// a failing store until a probe succeeds.
type guardedStore struct {
	store   audit.Store
	breaker *circuit.Breaker
	metrics *Metrics
	logger  *slog.Logger
}

func (g *guardedStore) Append(ctx context.Context, event audit.Event) error {
	if g.breaker != nil && !g.breaker.Allow() {
		g.metrics.incDropped("circuit_open")
		return ErrCircuitOpen
	}

	if err := g.store.Append(ctx, event); err != nil {
		g.metrics.incPersistFailure()
		if g.breaker != nil {
			if _, change := g.breaker.RecordFailure(); change.Opened {
				g.metrics.setBreakerOpen(true)
				g.logger.WarnContext(ctx, "audit store circuit opened", "breaker", g.breaker.Name(), "error", err)
			}
		}
		return err
	}

	g.metrics.incPersisted()
	if g.breaker != nil {
		if _, change := g.breaker.RecordSuccess(); change.Closed {
			g.metrics.setBreakerOpen(false)
			g.logger.InfoContext(ctx, "audit store circuit closed", "breaker", g.breaker.Name())
		}
	}
	return nil
}

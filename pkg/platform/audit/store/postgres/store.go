// Package postgres stores audit events in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "eidgate/pkg/platform/audit"
)

const table = "eid_audit_events"

// psq builds statements with $n placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var columns = []string{
	"attempt_id", "session_id", "category", "action", "reason", "detail", "access_rights", "occurred_at",
}

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	rights := event.AccessRights
	if rights == nil {
		rights = []string{}
	}

	query, args, err := psq.Insert(table).
		Columns(append([]string{"id"}, columns...)...).
		Values(
			uuid.New(),
			event.AttemptID,
			event.SessionID,
			string(event.Category),
			event.Action,
			event.Reason,
			event.Detail,
			pq.Array(rights),
			event.Timestamp,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByAttempt(ctx context.Context, attemptID string) ([]audit.Event, error) {
	query, args, err := psq.Select(columns...).
		From(table).
		Where(sq.Eq{"attempt_id": attemptID}).
		OrderBy("occurred_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e        audit.Event
			category string
			rights   []string
		)
		if err := rows.Scan(&e.AttemptID, &e.SessionID, &category, &e.Action, &e.Reason, &e.Detail, pq.Array(&rights), &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		if len(rights) > 0 {
			e.AccessRights = rights
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

// Cleanup deletes events older than retention and reports how many rows
// were removed.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	query, args, err := psq.Delete(table).
		Where(sq.Lt{"occurred_at": s.now().Add(-retention)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build audit cleanup: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clean up audit events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clean up audit events: %w", err)
	}
	return n, nil
}

// RunCleanup calls Cleanup every interval until ctx ends. Failures are
// logged and retried on the next tick.
func (s *Store) RunCleanup(ctx context.Context, interval, retention time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.Cleanup(ctx, retention)
			if err != nil {
				logger.WarnContext(ctx, "audit cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "audit events expired", "deleted", n)
			}
		}
	}
}

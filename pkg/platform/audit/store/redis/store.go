// Package redis stores audit events as one Redis list per identification
// attempt, expiring after a retention window.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	audit "eidgate/pkg/platform/audit"
)

const (
	keyPrefix        = "eid:audit:"
	defaultRetention = 30 * 24 * time.Hour
)

type Store struct {
	client    *redis.Client
	retention time.Duration
}

type Option func(*Store)

// WithRetention sets how long an attempt's events are kept after the last
// append.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, retention: defaultRetention}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type record struct {
	Category     string    `json:"category"`
	Timestamp    time.Time `json:"timestamp"`
	AttemptID    string    `json:"attempt_id"`
	SessionID    string    `json:"session_id,omitempty"`
	Action       string    `json:"action"`
	Reason       string    `json:"reason,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	AccessRights []string  `json:"access_rights,omitempty"`
}

func key(attemptID string) string {
	return keyPrefix + attemptID
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(record{
		Category:     string(event.Category),
		Timestamp:    event.Timestamp,
		AttemptID:    event.AttemptID,
		SessionID:    event.SessionID,
		Action:       event.Action,
		Reason:       event.Reason,
		Detail:       event.Detail,
		AccessRights: event.AccessRights,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	k := key(event.AttemptID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, k, payload)
	pipe.Expire(ctx, k, s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByAttempt(ctx context.Context, attemptID string) ([]audit.Event, error) {
	raw, err := s.client.LRange(ctx, key(attemptID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	events := make([]audit.Event, 0, len(raw))
	for _, item := range raw {
		var r record
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("unmarshal audit event: %w", err)
		}
		events = append(events, audit.Event{
			Category:     audit.EventCategory(r.Category),
			Timestamp:    r.Timestamp,
			AttemptID:    r.AttemptID,
			SessionID:    r.SessionID,
			Action:       r.Action,
			Reason:       r.Reason,
			Detail:       r.Detail,
			AccessRights: r.AccessRights,
		})
	}
	return events, nil
}

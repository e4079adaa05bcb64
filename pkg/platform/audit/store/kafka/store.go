// Package kafka publishes audit events to a Kafka topic, keyed by attempt id
// so all events of one attempt land on the same partition in order.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "eidgate/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the store needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Store struct {
	producer Producer
	topic    string
}

func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

// NewClient builds a franz-go client for the given seed brokers.
func NewClient(brokers []string, opts ...kgo.Opt) (*kgo.Client, error) {
	opts = append([]kgo.Opt{kgo.SeedBrokers(brokers...)}, opts...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

type payload struct {
	Category     string    `json:"category"`
	Timestamp    time.Time `json:"timestamp"`
	AttemptID    string    `json:"attempt_id"`
	SessionID    string    `json:"session_id,omitempty"`
	Action       string    `json:"action"`
	Reason       string    `json:"reason,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	AccessRights []string  `json:"access_rights,omitempty"`
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(payload{
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

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.AttemptID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "category", Value: []byte(event.Category)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Package publisher ships audit events to a Kafka topic.
//
// Compliance-grade events (seals, quarantines) are produced synchronously
// and fail closed: if the broker write fails, the error propagates and the
// calling operation must fail. Operational events are produced
// asynchronously and fail open with a logged warning.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"evigate/pkg/platform/audit"
)

const flushTimeout = 5 * time.Second

// Publisher is a Store implementation backed by Kafka.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects to the brokers and ensures the audit topic exists.
func New(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("audit publisher requires at least one broker")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("ensure audit topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("ensure audit topic %q: %w", topic, resp.Err)
	}
	return nil
}

// Append publishes one audit event. Keyed by tenant so a tenant's trail
// stays ordered within a partition.
func (p *Publisher) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.TenantID.String()),
		Value: payload,
	}

	if event.Category == audit.CategoryCompliance {
		if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
			return fmt.Errorf("compliance audit publish failed: %w", err)
		}
		return nil
	}

	p.client.Produce(ctx, rec, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("audit publish failed",
				"action", string(event.Action),
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes pending produces and releases the client.
func (p *Publisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}

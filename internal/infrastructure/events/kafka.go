package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/config"
	"github.com/DanielPopoola/openfinance-gateway/internal/metrics"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher produces events to a single topic keyed by resource id, so
// every version of a resource lands on the same partition in order.
type KafkaPublisher struct {
	client  *kgo.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger, m *metrics.Metrics) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, logger: logger, metrics: m}, nil
}

func (p *KafkaPublisher) PublishCreated(ctx context.Context, event application.Event) {
	p.produce(ctx, event)
}

func (p *KafkaPublisher) PublishFinalized(ctx context.Context, event application.Event) {
	p.produce(ctx, event)
}

func (p *KafkaPublisher) produce(ctx context.Context, event application.Event) {
	record, err := newRecord(event)
	if err != nil {
		p.logger.Error("failed to encode event", "event_type", event.Type, "error", err)
		p.metrics.ObserveEvent(event.Type, err)
		return
	}

	// The request context ends with the response; delivery outlives it.
	p.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		p.metrics.ObserveEvent(event.Type, err)
		if err != nil {
			p.logger.Error("failed to publish event",
				"event_type", event.Type,
				"resource_id", event.ResourceID,
				"topic", r.Topic,
				"error", err)
		}
	})
}

// Close flushes buffered records and releases the client.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}

func newRecord(event application.Event) (*kgo.Record, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Key:   []byte(event.ResourceID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}

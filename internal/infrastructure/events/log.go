// Package events delivers resource lifecycle notifications. Publishing is
// fire and forget: a delivery failure is logged and never fails the request.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/metrics"
)

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewLogPublisher(logger *slog.Logger, m *metrics.Metrics) *LogPublisher {
	return &LogPublisher{logger: logger, metrics: m}
}

func (p *LogPublisher) PublishCreated(ctx context.Context, event application.Event) {
	p.log(ctx, "resource created", event)
}

func (p *LogPublisher) PublishFinalized(ctx context.Context, event application.Event) {
	p.log(ctx, "resource finalized", event)
}

func (p *LogPublisher) log(ctx context.Context, msg string, event application.Event) {
	p.logger.InfoContext(ctx, msg,
		"event_type", event.Type,
		"resource", event.Resource,
		"resource_id", event.ResourceID,
		"principal_id", event.PrincipalID,
		"status", event.Status)
	p.metrics.ObserveEvent(event.Type, nil)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []application.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) PublishCreated(_ context.Context, event application.Event) {
	r.append(event)
}

func (r *Recorder) PublishFinalized(_ context.Context, event application.Event) {
	r.append(event)
}

func (r *Recorder) append(event application.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []application.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]application.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of the given type were published.
func (r *Recorder) Count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

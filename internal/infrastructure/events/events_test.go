package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = application.Event{
	Type:        "quote.created",
	Resource:    "quote",
	ResourceID:  "QT-1",
	PrincipalID: "tpp-a",
	Status:      "QUOTED",
	OccurredAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC),
}

func TestNewRecord(t *testing.T) {
	record, err := newRecord(sample)
	require.NoError(t, err)

	assert.Equal(t, []byte("QT-1"), record.Key)
	require.Len(t, record.Headers, 1)
	assert.Equal(t, "event-type", record.Headers[0].Key)
	assert.Equal(t, []byte("quote.created"), record.Headers[0].Value)

	var decoded application.Event
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	assert.Equal(t, sample, decoded)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	NewLogPublisher(logger, nil).PublishCreated(context.Background(), sample)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "resource created", line["msg"])
	assert.Equal(t, "QT-1", line["resource_id"])
	assert.Equal(t, "QUOTED", line["status"])
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.PublishCreated(context.Background(), sample)
	finalized := sample
	finalized.Type = "quote.finalized"
	r.PublishFinalized(context.Background(), finalized)

	assert.Len(t, r.Events(), 2)
	assert.Equal(t, 1, r.Count("quote.created"))
	assert.Equal(t, 1, r.Count("quote.finalized"))
}

// Package events publishes Trackside domain events over NATS with
// OpenTelemetry trace propagation. Publishing is optional everywhere it is
// wired: a nil Publisher drops events silently so deployments without a
// broker lose nothing but the notifications.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// Subjects for the two event streams.
const (
	SubjectIncidentAdded  = "trackside.incident.added"
	SubjectIngestComplete = "trackside.ingest.completed"
)

// IncidentAdded is emitted when the live service appends a confirmed
// resolution to the collection.
type IncidentAdded struct {
	PointID    uint64    `json:"point_id"`
	Collection string    `json:"collection"`
	Action     string    `json:"action"`
	ImageCount int       `json:"image_count"`
	AddedAt    time.Time `json:"added_at"`
}

// IngestCompleted is emitted at the end of a batch ingestion run.
type IngestCompleted struct {
	Collection string    `json:"collection"`
	Points     int       `json:"points"`
	Skipped    int       `json:"skipped"`
	Dimension  int       `json:"dimension"`
	FinishedAt time.Time `json:"finished_at"`
}

// headerCarrier adapts nats.Msg headers for the OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publisher publishes JSON events to NATS.
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher wraps an established NATS connection.
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// Publish serializes v and publishes it to subject, injecting the trace
// context from ctx into the message headers. A nil Publisher is a no-op.
func Publish[T any](ctx context.Context, p *Publisher, subject string, v T) error {
	if p == nil || p.nc == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return p.nc.PublishMsg(msg)
}

// Subscribe registers a handler for JSON messages of type T. Trace context
// is extracted from message headers; malformed messages are dropped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		handler(ctx, v)
	})
}

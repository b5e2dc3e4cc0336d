package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// NatsNotifier announces newly cached TTS audio on a NATS subject.
type NatsNotifier struct {
	natsConnection *nats.Conn
	subject        string
}

// NewNatsNotifier creates a notifier publishing to subject.
func NewNatsNotifier(natsConnection *nats.Conn, subject string) *NatsNotifier {
	return &NatsNotifier{natsConnection: natsConnection, subject: subject}
}

// AudioCached publishes an AudioChunkCreatedEvent whose AudioKey is the
// object key of the cached clip.
func (n *NatsNotifier) AudioCached(_ context.Context, _, objectKey string) error {
	event := &events.AudioChunkCreatedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
		},
		AudioKey: objectKey,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audio created event: %w", err)
	}

	err = n.natsConnection.Publish(n.subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish audio created event to %s: %w", n.subject, err)
	}

	return nil
}

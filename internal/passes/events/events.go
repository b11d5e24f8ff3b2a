// Package events publishes registration and pass-update notifications for a
// downstream push worker. Push tokens never leave the service in events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"passbook/internal/platform/kafka/producer"
)

// Type names an event.
type Type string

const (
	DeviceRegistered   Type = "device.registered"
	DeviceUnregistered Type = "device.unregistered"
	PassUpdated        Type = "pass.updated"
)

// Event is the wire payload, JSON-encoded.
type Event struct {
	ID                      string    `json:"id"`
	Type                    Type      `json:"type"`
	PassTypeIdentifier      string    `json:"passTypeIdentifier"`
	SerialNumber            string    `json:"serialNumber"`
	DeviceLibraryIdentifier string    `json:"deviceLibraryIdentifier,omitempty"`
	OccurredAt              time.Time `json:"occurredAt"`
	RequestID               string    `json:"requestId,omitempty"`
}

// New stamps an event with a fresh ID.
func New(t Type, passType, serial, deviceID string, at time.Time) Event {
	return Event{
		ID:                      uuid.NewString(),
		Type:                    t,
		PassTypeIdentifier:      passType,
		SerialNumber:            serial,
		DeviceLibraryIdentifier: deviceID,
		OccurredAt:              at.UTC(),
	}
}

// Key groups events for one pass onto one partition.
func (e Event) Key() string {
	return e.PassTypeIdentifier + "/" + e.SerialNumber
}

// Producer is the subset of the Kafka producer used here.
type Producer interface {
	ProduceAsync(msg *producer.Message) error
}

// KafkaPublisher writes events to a single topic.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaPublisher(p Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

// Publish buffers the event for delivery. Broker failures are reported by
// the producer's delivery callback, not here.
func (p *KafkaPublisher) Publish(_ context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	headers := map[string]string{"event_type": string(e.Type)}
	if e.RequestID != "" {
		headers["request_id"] = e.RequestID
	}
	if err := p.producer.ProduceAsync(&producer.Message{
		Topic:   p.topic,
		Key:     []byte(e.Key()),
		Value:   value,
		Headers: headers,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

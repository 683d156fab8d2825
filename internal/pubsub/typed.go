package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Event binds a topic name to its payload type.
type Event[T any] struct {
	topic string
}

// NewEvent declares a typed topic.
func NewEvent[T any](topic string) Event[T] {
	return Event[T]{topic: topic}
}

// Topic returns the topic name.
func (e Event[T]) Topic() string { return e.topic }

// Publish encodes payload and publishes it on the event's topic.
func (e Event[T]) Publish(ctx context.Context, pub Publisher, userID string, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", e.topic, err)
	}
	return pub.Publish(ctx, Message{Topic: e.topic, UserID: userID, Payload: data})
}

// Subscribe decodes every message on the topic before calling handle. A
// payload that does not decode is logged and dropped.
func (e Event[T]) Subscribe(ctx context.Context, sub Subscriber, handle func(context.Context, T) error) error {
	return sub.Subscribe(ctx, e.topic, func(ctx context.Context, msg Message) error {
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			slog.Warn("Dropping undecodable event", "topic", e.topic, "error", err)
			return nil
		}
		return handle(ctx, payload)
	})
}

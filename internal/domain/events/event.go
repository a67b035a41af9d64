package events

import "time"

// DomainEvent is implemented by every strongly typed domain event. It exposes
// the routing type and occurrence time the event bus needs while leaving the
// payload shape to each domain package.
type DomainEvent interface {
	// EventType identifies the category of this event for routing and handling.
	EventType() EventType

	// OccurredAt records when the event was created, enabling temporal
	// tracking and debugging of event flows.
	OccurredAt() time.Time
}

// EventEnvelope is the transport-level representation of a domain event as it
// moves through the event bus. It carries the deserialized payload along with
// broker positioning metadata.
type EventEnvelope struct {
	// Type identifies the category of this event for routing and handling.
	Type EventType

	// Key is the partition key the event was published with.
	Key string

	// Timestamp records when the envelope was materialized by the consumer.
	Timestamp time.Time

	// Payload contains the deserialized event data.
	Payload any

	// Metadata carries broker positioning information for the envelope.
	Metadata EventMetadata
}

// EventMetadata records where in the underlying stream an event was read from.
type EventMetadata struct {
	Partition int32
	Offset    int64
}

package events

import "time"

// Event is what the NATS bridge publishes. Subscribers key off the code
// returned by EventType to find the matching notification type row, so
// codes are stable identifiers like "SESSION_CREATED" or
// "GENERATION_PROGRESS", never display text.
type Event interface {
	EventType() string

	// Payload carries the template variables ({title}, {status}, ...) plus
	// routing fields (user_id, entity_type, entity_id).
	Payload() map[string]interface{}

	Timestamp() time.Time
}

// BaseEvent is the one implementation the services use. Constructing it
// inline keeps the publish sites readable.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

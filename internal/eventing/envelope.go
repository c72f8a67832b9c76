package eventing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the envelope schema written by this service.
const SchemaVersion = 1

// Named events report their own type name; others use the Go type name.
type Named interface {
	EventName() string
}

// Keyed events name the station they belong to. The key partitions Kafka
// messages so events of one station stay ordered.
type Keyed interface {
	EventKey() string
}

// Timed events carry their own occurrence time.
type Timed interface {
	EventTime() time.Time
}

// Envelope wraps event payload with metadata.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id"`
	TenantID      string          `json:"tenant_id"`
	StationID     string          `json:"station_id"`
	SchemaVersion int             `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// Meta provides envelope overrides.
type Meta struct {
	CorrelationID string
	TenantID      string
}

// NewEventID generates a random event identifier.
func NewEventID() string {
	return uuid.NewString()
}

// BuildEnvelope marshals event and fills the envelope from meta and the
// optional Named, Keyed and Timed methods of event.
func BuildEnvelope(event any, meta Meta) (Envelope, error) {
	if event == nil {
		return Envelope{}, errors.New("eventing: nil event")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("eventing: marshal payload: %w", err)
	}

	env := Envelope{
		EventID:       NewEventID(),
		EventType:     strings.TrimPrefix(fmt.Sprintf("%T", event), "*"),
		OccurredAt:    time.Now().UTC(),
		CorrelationID: meta.CorrelationID,
		TenantID:      meta.TenantID,
		SchemaVersion: SchemaVersion,
		Payload:       payload,
	}
	if named, ok := event.(Named); ok {
		env.EventType = named.EventName()
	}
	if keyed, ok := event.(Keyed); ok {
		env.StationID = keyed.EventKey()
	}
	if timed, ok := event.(Timed); ok && !timed.EventTime().IsZero() {
		env.OccurredAt = timed.EventTime().UTC()
	}
	if env.CorrelationID == "" {
		env.CorrelationID = env.EventID
	}
	return env, nil
}

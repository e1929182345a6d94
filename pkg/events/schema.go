package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	EventTypeLoaderStarted   EventType = "loader.started"
	EventTypeLoaderCompleted EventType = "loader.completed"
	EventTypeLoaderAborted   EventType = "loader.aborted"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Service       string    `json:"service"`
	RunID         string    `json:"run_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
}

// LoaderEvent reports a loader run starting or ending
type LoaderEvent struct {
	BaseEvent
	Loader     string              `json:"loader"`
	Target     string              `json:"target"`
	State      models.RunState     `json:"state"`
	Counters   *models.RunCounters `json:"counters,omitempty"`
	Warnings   []string            `json:"warnings,omitempty"`
	Error      string              `json:"error,omitempty"`
	ErrorKind  string              `json:"error_kind,omitempty"`
	DurationMS int64               `json:"duration_ms,omitempty"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, service, runID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		Service:       service,
		RunID:         runID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}

// Package events emits loader lifecycle events
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	fernerrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = kafka.SchemaVersion

// Publisher sends one keyed event
type Publisher interface {
	Publish(ctx context.Context, key, eventType string, event any) error
}

// Emitter turns loader progress into events. Publish failures are logged, never returned,
// so an unavailable broker cannot fail a load.
type Emitter struct {
	publisher Publisher
	service   string
	timeout   time.Duration
	logger    ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, service string, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		service:   service,
		timeout:   5 * time.Second,
		logger:    logger,
	}
}

// LoaderStarted emits loader.started
func (e *Emitter) LoaderStarted(ctx context.Context, result *models.RunResult) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.LoaderStarted")
	defer span.End()

	e.emit(ctx, &LoaderEvent{
		BaseEvent: NewBaseEvent(EventTypeLoaderStarted, e.service, result.RunID),
		Loader:    result.Loader,
		Target:    result.Target,
		State:     result.State,
	})
}

// BatchCompleted is a no-op; per batch progress is reported through metrics
func (e *Emitter) BatchCompleted(_ context.Context, _ string, _ models.BatchStats) {}

// LoaderFinished emits loader.completed or loader.aborted with the final counters
func (e *Emitter) LoaderFinished(ctx context.Context, result *models.RunResult) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.LoaderFinished")
	defer span.End()

	eventType := EventTypeLoaderCompleted
	if result.State == models.RunStateAborted {
		eventType = EventTypeLoaderAborted
	}

	counters := result.Counters
	event := &LoaderEvent{
		BaseEvent:  NewBaseEvent(eventType, e.service, result.RunID),
		Loader:     result.Loader,
		Target:     result.Target,
		State:      result.State,
		Counters:   &counters,
		Warnings:   result.Warnings,
		DurationMS: result.Duration.Milliseconds(),
	}
	if result.Err != nil {
		event.Error = result.Err.Error()
		event.ErrorKind = string(fernerrors.KindOf(result.Err))
	}
	e.emit(ctx, event)
}

func (e *Emitter) emit(ctx context.Context, event *LoaderEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	if err := e.publisher.Publish(ctx, event.RunID, string(event.EventType), event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": event.EventType,
			"loader":     event.Loader,
		}).Warnf("Failed to emit %s event", event.EventType)
	}
}

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fernerrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
)

type published struct {
	key       string
	eventType string
	event     *LoaderEvent
}

type fakePublisher struct {
	sent []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, key, eventType string, event any) error {
	p.sent = append(p.sent, published{key: key, eventType: eventType, event: event.(*LoaderEvent)})
	return p.err
}

func newTestEmitter(p Publisher) *Emitter {
	return NewEmitter(p, "fern", ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestEmitter_Lifecycle(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestEmitter(pub)

	result := &models.RunResult{RunID: "run-1", Loader: "funds", Target: "FUNDS", State: models.RunStateInit}
	e.LoaderStarted(context.Background(), result)
	e.BatchCompleted(context.Background(), "funds", models.BatchStats{Batch: 1})

	result.State = models.RunStateDone
	result.Counters = models.RunCounters{Expected: 3, Successful: 3}
	result.Duration = 1500 * time.Millisecond
	e.LoaderFinished(context.Background(), result)

	require.Len(t, pub.sent, 2)
	assert.Equal(t, "run-1", pub.sent[0].key)
	assert.Equal(t, "loader.started", pub.sent[0].eventType)
	assert.Nil(t, pub.sent[0].event.Counters)

	done := pub.sent[1].event
	assert.Equal(t, EventTypeLoaderCompleted, done.EventType)
	assert.Equal(t, "fern", done.Service)
	assert.Equal(t, SchemaVersion, done.SchemaVersion)
	assert.Equal(t, int64(3), done.Counters.Successful)
	assert.Equal(t, int64(1500), done.DurationMS)
	assert.NotEmpty(t, done.CorrelationID)
}

func TestEmitter_AbortedAndPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	e := newTestEmitter(pub)

	e.LoaderFinished(context.Background(), &models.RunResult{
		RunID:  "run-2",
		Loader: "financial",
		State:  models.RunStateAborted,
		Err:    fernerrors.NewLoadError(fernerrors.KindBatch, "backend unavailable"),
	})

	require.Len(t, pub.sent, 1)
	ev := pub.sent[0].event
	assert.Equal(t, EventTypeLoaderAborted, ev.EventType)
	assert.Equal(t, "batch", ev.ErrorKind)
	assert.Contains(t, ev.Error, "backend unavailable")
}

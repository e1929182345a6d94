package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStartup(maxAttempts int) (*Startup, *[]time.Duration) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	s := NewStartup(logger, maxAttempts, time.Second)
	waits := &[]time.Duration{}
	s.wait = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return s, waits
}

func TestStartup_Backoff(t *testing.T) {
	s, _ := newTestStartup(5)
	assert.Equal(t, 1*time.Second, s.Backoff(1))
	assert.Equal(t, 2*time.Second, s.Backoff(2))
	assert.Equal(t, 4*time.Second, s.Backoff(3))
	assert.Equal(t, 8*time.Second, s.Backoff(4))
}

func TestStartup_RetriesUntilSuccess(t *testing.T) {
	s, waits := newTestStartup(5)

	calls := 0
	s.AddDependency(&Func{Name: "graph", OnStart: func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
	assert.Equal(t, StatusStarted, s.Status("graph"))
}

func TestStartup_BoundedAttempts(t *testing.T) {
	s, waits := newTestStartup(3)

	cause := errors.New("auth failed")
	s.AddDependency(&Func{Name: "source", OnStart: func(context.Context) error { return cause }})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, *waits, 2)
	assert.Equal(t, StatusFailed, s.Status("source"))
}

func TestStartup_DependencyOrder(t *testing.T) {
	s, _ := newTestStartup(1)

	var started, stopped []string
	for _, dep := range []*Func{
		{Name: "graph", Requires: []string{"source"}},
		{Name: "source"},
	} {
		d := dep
		d.OnStart = func(context.Context) error { started = append(started, d.Name); return nil }
		d.OnStop = func(context.Context) error { stopped = append(stopped, d.Name); return nil }
		s.AddDependency(d)
	}

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"source", "graph"}, started)

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"graph", "source"}, stopped)
}

func TestStartup_ContextCancelled(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	s := NewStartup(logger, 3, time.Hour)
	s.AddDependency(&Func{Name: "graph", OnStart: func(context.Context) error { return errors.New("down") }})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

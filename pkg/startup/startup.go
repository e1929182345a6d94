package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is an external connection that must be established before loading
type Dependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Status int

const (
	StatusPending Status = iota
	StatusStarted
	StatusStopped
	StatusFailed
)

// Startup brings dependencies up with bounded exponential backoff.
// Retries only happen here, never once loading has begun.
type Startup struct {
	dependencies map[string]Dependency
	order        []string
	started      []string
	logger       ectologger.Logger
	statuses     map[string]Status
	maxAttempts  int
	baseWait     time.Duration
	wait         func(ctx context.Context, d time.Duration) error
}

func NewStartup(logger ectologger.Logger, maxAttempts int, baseWait time.Duration) *Startup {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Startup{
		logger:       logger,
		dependencies: make(map[string]Dependency),
		statuses:     make(map[string]Status),
		maxAttempts:  maxAttempts,
		baseWait:     baseWait,
		wait:         sleep,
	}
}

// AddDependency registers a dependency; dependencies start in registration order
func (s *Startup) AddDependency(dependency Dependency) {
	if _, ok := s.dependencies[dependency.GetName()]; !ok {
		s.order = append(s.order, dependency.GetName())
	}
	s.dependencies[dependency.GetName()] = dependency
}

// Backoff returns the wait before the attempt following the given one (1-based): base * 2^(attempt-1)
func (s *Startup) Backoff(attempt int) time.Duration {
	return s.baseWait * time.Duration(1<<uint(attempt-1))
}

func (s *Startup) Start(ctx context.Context) error {
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.WithContext(ctx).WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)

		success := true
		for _, name := range s.order {
			if err := s.startDependency(ctx, s.dependencies[name]); err != nil {
				s.logger.WithContext(ctx).WithError(err).Errorf("Startup dependency '%s' attempt %d failed", name, attempt)
				lastErr = err
				success = false
				break
			}
		}

		if success {
			return nil
		}

		if attempt == s.maxAttempts {
			break
		}

		waitTime := s.Backoff(attempt)
		s.logger.WithContext(ctx).Infof("Retrying in %s (attempt %d/%d)", waitTime, attempt, s.maxAttempts)
		if err := s.wait(ctx, waitTime); err != nil {
			return err
		}
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Startup) startDependency(ctx context.Context, dependency Dependency) error {
	if s.statuses[dependency.GetName()] == StatusStarted {
		return nil
	}

	for _, name := range dependency.DependsOn() {
		parent, ok := s.dependencies[name]
		if !ok {
			return fmt.Errorf("dependency '%s' requires unknown dependency '%s'", dependency.GetName(), name)
		}
		if err := s.startDependency(ctx, parent); err != nil {
			return err
		}
	}

	log := s.logger.WithContext(ctx).WithField("dependency", dependency.GetName())
	log.Infof("Starting dependency '%s'", dependency.GetName())
	s.statuses[dependency.GetName()] = StatusPending
	if err := dependency.Start(ctx); err != nil {
		s.statuses[dependency.GetName()] = StatusFailed
		return err
	}
	s.statuses[dependency.GetName()] = StatusStarted
	s.started = append(s.started, dependency.GetName())
	return nil
}

// Stop stops started dependencies in reverse start order
func (s *Startup) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(s.started) - 1; i >= 0; i-- {
		dependency := s.dependencies[s.started[i]]
		if s.statuses[dependency.GetName()] != StatusStarted {
			continue
		}

		log := s.logger.WithContext(ctx).WithField("dependency", dependency.GetName())
		if err := dependency.Stop(ctx); err != nil {
			log.WithError(err).Errorf("Failed to stop dependency '%s'", dependency.GetName())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.statuses[dependency.GetName()] = StatusStopped
		log.Infof("Dependency '%s' stopped", dependency.GetName())
	}
	return firstErr
}

// Status returns the current status of a dependency
func (s *Startup) Status(name string) Status {
	return s.statuses[name]
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Func adapts plain functions into a Dependency
type Func struct {
	Name     string
	Requires []string
	OnStart  func(ctx context.Context) error
	OnStop   func(ctx context.Context) error
}

func (f *Func) GetName() string     { return f.Name }
func (f *Func) DependsOn() []string { return f.Requires }

func (f *Func) Start(ctx context.Context) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(ctx)
}

func (f *Func) Stop(ctx context.Context) error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop(ctx)
}

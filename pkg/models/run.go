package models

import "time"

// RunState is the state of a single loader run
type RunState string

const (
	RunStateInit           RunState = "INIT"
	RunStateCountingSource RunState = "COUNTING_SOURCE"
	RunStateCountingBefore RunState = "COUNTING_TARGET_BEFORE"
	RunStateStreaming      RunState = "STREAMING"
	RunStateCountingAfter  RunState = "COUNTING_TARGET_AFTER"
	RunStateReporting      RunState = "REPORTING"
	RunStateDone           RunState = "DONE"
	RunStateAborted        RunState = "ABORTED"
)

// IsTerminal reports whether no further transitions are possible
func (s RunState) IsTerminal() bool {
	return s == RunStateDone || s == RunStateAborted
}

// RunCounters aggregates the outcome of one loader run
type RunCounters struct {
	Expected          int64  `json:"expected"`
	DistinctIDs       *int64 `json:"distinct_ids,omitempty"`
	SkippedNull       int64  `json:"skipped_null"`
	SkippedUnresolved int64  `json:"skipped_unresolved"`
	Successful        int64  `json:"successful"`
	// Unprocessed counts rows never merged because the run aborted
	Unprocessed int64  `json:"unprocessed"`
	Read        int64  `json:"read"`
	Batches     int    `json:"batches"`
	Before      *int64 `json:"before,omitempty"`
	After       *int64 `json:"after,omitempty"`
}

// Accounted is the number of rows with a known outcome
func (c RunCounters) Accounted() int64 {
	return c.SkippedNull + c.SkippedUnresolved + c.Successful + c.Unprocessed
}

// Conserved reports whether every expected row has exactly one outcome
func (c RunCounters) Conserved() bool {
	return c.Expected == c.Accounted()
}

// NetNew is after minus before, nil when either count was unavailable
func (c RunCounters) NetNew() *int64 {
	if c.Before == nil || c.After == nil {
		return nil
	}
	n := *c.After - *c.Before
	return &n
}

// RunResult is the final report of one loader run
type RunResult struct {
	RunID     string        `json:"run_id"`
	Loader    string        `json:"loader"`
	Target    string        `json:"target"`
	State     RunState      `json:"state"`
	Counters  RunCounters   `json:"counters"`
	Warnings  []string      `json:"warnings,omitempty"`
	Err       error         `json:"-"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

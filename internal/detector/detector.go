// Package detector decides when a remote job has genuinely finished by
// watching its append-only log transcript.
//
// A naive "does the log contain the marker" check false-positives whenever
// the instance previously ran another job or the monitor restarted, so the
// detector counts marker occurrences and compares against a baseline taken
// at attach time. Only a count that exceeds the baseline is a new event.
package detector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"framelift/internal/domain"
	"framelift/internal/port"
)

type State string

const (
	StateAttached  State = "attached"
	StatePolling   State = "polling"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

const (
	DefaultSuccessMarker = "FRAMELIFT_JOB_COMPLETE"
	DefaultFailureMarker = "FRAMELIFT_JOB_FAILED"
)

type Config struct {
	SuccessMarker string
	FailureMarker string

	// PollInterval is the base cadence; consecutive transient failures
	// double it up to MaxPollInterval, and any successful read resets it.
	PollInterval    time.Duration
	MaxPollInterval time.Duration

	MaxWait                time.Duration
	MaxConsecutiveFailures int
	MaxTailLines           int

	// OnPoll observes every poll outcome (nil err on success).
	OnPoll func(err error)
}

func (c *Config) withDefaults() {
	if c.SuccessMarker == "" {
		c.SuccessMarker = DefaultSuccessMarker
	}
	if c.FailureMarker == "" {
		c.FailureMarker = DefaultFailureMarker
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxPollInterval <= 0 {
		c.MaxPollInterval = time.Minute
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 2 * time.Hour
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = 10
	}
	if c.MaxTailLines <= 0 {
		c.MaxTailLines = 2000
	}
}

type Detector struct {
	source     port.LogSource
	instanceID string
	cfg        Config

	state           State
	attached        bool
	baselineSuccess int
	baselineFailure int
	lastSuccess     int
	lastFailure     int

	consecutiveFailures int
	interval            time.Duration
}

func New(source port.LogSource, instanceID string, cfg Config) *Detector {
	cfg.withDefaults()
	return &Detector{
		source:     source,
		instanceID: instanceID,
		cfg:        cfg,
		state:      StateAttached,
		interval:   cfg.PollInterval,
	}
}

func (d *Detector) State() State {
	return d.state
}

// Interval reports the current poll delay, after backoff.
func (d *Detector) Interval() time.Duration {
	return d.interval
}

func (d *Detector) terminal() bool {
	switch d.state {
	case StateCompleted, StateFailed, StateTimedOut:
		return true
	}
	return false
}

// Poll performs a single read of the transcript and advances the state
// machine. The first successful read only establishes the baselines; it can
// never complete the job. Terminal states are sticky.
func (d *Detector) Poll(ctx context.Context) (State, error) {
	if d.terminal() {
		return d.state, nil
	}

	text, err := d.source.ReadTail(ctx, d.instanceID, d.cfg.MaxTailLines)
	if err == nil && text == "" {
		err = domain.MarkTransient(fmt.Errorf("empty transcript from instance %s", d.instanceID))
	}
	if d.cfg.OnPoll != nil {
		d.cfg.OnPoll(err)
	}
	if err != nil {
		d.consecutiveFailures++
		d.interval = min(d.interval*2, d.cfg.MaxPollInterval)
		if d.consecutiveFailures >= d.cfg.MaxConsecutiveFailures {
			d.state = StateTimedOut
			return d.state, fmt.Errorf("%w: %d consecutive poll failures", domain.ErrTimeout, d.consecutiveFailures)
		}
		return d.state, err
	}

	d.consecutiveFailures = 0
	d.interval = d.cfg.PollInterval

	successCount := strings.Count(text, d.cfg.SuccessMarker)
	failureCount := strings.Count(text, d.cfg.FailureMarker)

	if !d.attached {
		// Baselines absorb markers left by earlier jobs on a reused
		// instance or by a crashed monitoring session.
		d.attached = true
		d.baselineSuccess = successCount
		d.baselineFailure = failureCount
		d.lastSuccess = successCount
		d.lastFailure = failureCount
		d.state = StatePolling
		return d.state, nil
	}

	d.lastSuccess = successCount
	d.lastFailure = failureCount

	if failureCount > d.baselineFailure {
		d.state = StateFailed
		return d.state, nil
	}
	if successCount > d.baselineSuccess {
		d.state = StateCompleted
		return d.state, nil
	}

	d.state = StatePolling
	return d.state, nil
}

// Wait polls until a terminal state or the wall-clock ceiling.
func (d *Detector) Wait(ctx context.Context) (State, error) {
	deadline := time.Now().Add(d.cfg.MaxWait)

	for {
		state, err := d.Poll(ctx)
		if d.terminal() {
			if state == StateTimedOut && err == nil {
				err = domain.ErrTimeout
			}
			return state, err
		}

		if time.Now().After(deadline) {
			d.state = StateTimedOut
			return d.state, fmt.Errorf("%w: no completion within %s", domain.ErrTimeout, d.cfg.MaxWait)
		}

		select {
		case <-ctx.Done():
			return d.state, ctx.Err()
		case <-time.After(d.interval):
		}
	}
}

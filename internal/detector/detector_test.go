package detector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"framelift/internal/domain"
)

// scriptedLog replays a fixed sequence of transcript reads, repeating the
// last one once exhausted.
type scriptedLog struct {
	reads []readResult
	calls int
}

type readResult struct {
	text string
	err  error
}

func (s *scriptedLog) ReadTail(_ context.Context, _ string, _ int) (string, error) {
	i := s.calls
	if i >= len(s.reads) {
		i = len(s.reads) - 1
	}
	s.calls++
	r := s.reads[i]
	return r.text, r.err
}

func transcript(successMarkers, failureMarkers int) string {
	var b strings.Builder
	b.WriteString("booting\nmodel loaded\n")
	for i := 0; i < successMarkers; i++ {
		b.WriteString("... " + DefaultSuccessMarker + "\n")
	}
	for i := 0; i < failureMarkers; i++ {
		b.WriteString("... " + DefaultFailureMarker + "\n")
	}
	return b.String()
}

func testConfig() Config {
	return Config{
		PollInterval:           time.Millisecond,
		MaxPollInterval:        8 * time.Millisecond,
		MaxWait:                time.Second,
		MaxConsecutiveFailures: 3,
	}
}

func TestPoll_StaleMarkersAreNotCompletions(t *testing.T) {
	// Two markers already in the transcript at attach time belong to a
	// prior run on the reused instance; polling the same transcript again
	// must not report a completion.
	src := &scriptedLog{reads: []readResult{
		{text: transcript(2, 0)},
		{text: transcript(2, 0)},
		{text: transcript(2, 0)},
	}}
	d := New(src, "inst-1", testConfig())

	state, err := d.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatePolling, state)

	for n := 0; n < 2; n++ {
		state, err = d.Poll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatePolling, state)
	}
}

func TestPoll_FreshMarkerCompletesExactlyOnce(t *testing.T) {
	src := &scriptedLog{reads: []readResult{
		{text: transcript(2, 0)},
		{text: transcript(2, 0)},
		{text: transcript(3, 0)},
		{text: transcript(3, 0)},
	}}
	d := New(src, "inst-1", testConfig())

	_, err := d.Poll(context.Background())
	require.NoError(t, err)
	state, err := d.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatePolling, state)

	state, err = d.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)

	// Terminal state is sticky; the extra occurrence is not re-detected.
	state, err = d.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
}

func TestPoll_FirstReadNeverCompletes(t *testing.T) {
	// Even a transcript that already carries a marker only establishes
	// the baseline on attach.
	src := &scriptedLog{reads: []readResult{{text: transcript(1, 0)}}}
	d := New(src, "inst-1", testConfig())

	state, err := d.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatePolling, state)
}

func TestPoll_FailureMarkerUsesSameBaselineLogic(t *testing.T) {
	src := &scriptedLog{reads: []readResult{
		{text: transcript(0, 1)},
		{text: transcript(0, 1)},
		{text: transcript(0, 2)},
	}}
	d := New(src, "inst-1", testConfig())

	_, err := d.Poll(context.Background())
	require.NoError(t, err)

	state, err := d.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatePolling, state, "stale failure marker must not fail the job")

	state, err = d.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, state)
}

func TestPoll_FailureWinsOverSimultaneousSuccess(t *testing.T) {
	src := &scriptedLog{reads: []readResult{
		{text: transcript(0, 0)},
		{text: transcript(1, 1)},
	}}
	d := New(src, "inst-1", testConfig())

	_, err := d.Poll(context.Background())
	require.NoError(t, err)

	state, err := d.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, state)
}

func TestPoll_TransientFailuresBackOffAndReset(t *testing.T) {
	netErr := domain.MarkTransient(errors.New("connection reset"))
	src := &scriptedLog{reads: []readResult{
		{text: transcript(0, 0)},
		{err: netErr},
		{err: netErr},
		{text: transcript(0, 0)},
	}}
	cfg := testConfig()
	cfg.MaxConsecutiveFailures = 10
	d := New(src, "inst-1", cfg)

	_, err := d.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.PollInterval, d.Interval())

	_, err = d.Poll(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StatePolling, d.State(), "transient failure must not change state")
	assert.Equal(t, 2*cfg.PollInterval, d.Interval())

	_, err = d.Poll(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 4*cfg.PollInterval, d.Interval())

	_, err = d.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.PollInterval, d.Interval(), "successful read resets backoff")
}

func TestPoll_EmptyTranscriptIsTransient(t *testing.T) {
	src := &scriptedLog{reads: []readResult{{text: ""}}}
	cfg := testConfig()
	cfg.MaxConsecutiveFailures = 10
	d := New(src, "inst-1", cfg)

	state, err := d.Poll(context.Background())
	assert.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, StateAttached, state, "attach requires a successful read")
}

func TestPoll_ConsecutiveFailuresTimeOut(t *testing.T) {
	netErr := domain.MarkTransient(errors.New("connection reset"))
	src := &scriptedLog{reads: []readResult{{err: netErr}}}
	d := New(src, "inst-1", testConfig())

	var state State
	var err error
	for n := 0; n < 3; n++ {
		state, err = d.Poll(context.Background())
	}

	assert.Equal(t, StateTimedOut, state)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestWait_CompletesOnFreshMarker(t *testing.T) {
	src := &scriptedLog{reads: []readResult{
		{text: transcript(1, 0)},
		{text: transcript(1, 0)},
		{text: transcript(2, 0)},
	}}
	d := New(src, "inst-1", testConfig())

	state, err := d.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
}

func TestWait_WallClockCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.MaxWait = 20 * time.Millisecond
	src := &scriptedLog{reads: []readResult{{text: transcript(0, 0)}}}
	d := New(src, "inst-1", cfg)

	state, err := d.Wait(context.Background())
	assert.Equal(t, StateTimedOut, state)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestWait_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &scriptedLog{reads: []readResult{{text: transcript(0, 0)}}}
	d := New(src, "inst-1", testConfig())

	_, err := d.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoll_CountsObservedViaHook(t *testing.T) {
	polls, failures := 0, 0
	cfg := testConfig()
	cfg.OnPoll = func(err error) {
		polls++
		if err != nil {
			failures++
		}
	}
	src := &scriptedLog{reads: []readResult{
		{text: transcript(0, 0)},
		{err: domain.MarkTransient(errors.New("blip"))},
		{text: transcript(0, 0)},
	}}
	d := New(src, "inst-1", cfg)

	for n := 0; n < 3; n++ {
		_, _ = d.Poll(context.Background())
	}

	assert.Equal(t, 3, polls)
	assert.Equal(t, 1, failures)
}

package dac

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luft21/owo-dac-laptop/internal/clock"
	"github.com/Luft21/owo-dac-laptop/model"
	"github.com/Luft21/owo-dac-laptop/service/client"
	"github.com/Luft21/owo-dac-laptop/service/status"
)

type fakeWorkflow struct {
	mu         sync.Mutex
	submitFail int // fail this many submits before succeeding
	submits    int
	payloads   []map[string]string
	holdFirst  chan struct{} // when set, the first submit waits for it
	viewHTML   string
	viewErr    error
}

func (f *fakeWorkflow) SubmitDecision(ctx context.Context, payload map[string]string, session string) (*client.SubmitResponse, error) {
	f.mu.Lock()
	hold := f.holdFirst
	f.holdFirst = nil
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	f.payloads = append(f.payloads, payload)
	if f.submitFail > 0 {
		f.submitFail--
		return nil, errors.New("gateway timeout")
	}
	return &client.SubmitResponse{Success: true}, nil
}

func (f *fakeWorkflow) failNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitFail = n
}

// submitsFor counts submitted payloads carrying the given field value.
func (f *fakeWorkflow) submitsFor(field, value string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, payload := range f.payloads {
		if payload[field] == value {
			count++
		}
	}
	return count
}

func (f *fakeWorkflow) ViewCase(ctx context.Context, actionID, session string) (*client.ViewResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.viewErr != nil {
		return nil, f.viewErr
	}
	return &client.ViewResponse{Success: true, HTML: f.viewHTML}, nil
}

func (f *fakeWorkflow) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

type fakeLedger struct {
	mu       sync.Mutex
	saveFail int
	saves    []*client.ApprovalPayload
}

func (f *fakeLedger) SaveApproval(ctx context.Context, payload *client.ApprovalPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveFail > 0 {
		f.saveFail--
		return errors.New("ledger unavailable")
	}
	copied := *payload
	f.saves = append(f.saves, &copied)
	return nil
}

func (f *fakeLedger) saved() []*client.ApprovalPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*client.ApprovalPayload(nil), f.saves...)
}

type fakeFetcher struct{}

func (f *fakeFetcher) FetchDetail(ctx context.Context, item model.Item, session string) (*model.Detail, error) {
	return &model.Detail{
		School:      model.School{NPSN: item.NPSN},
		ExtractedID: "ID-" + item.NPSN,
		Resi:        "RESI-" + item.NPSN,
		BappID:      item.Bapp,
	}, nil
}

// stubSleep collapses retry backoff and the idle decay, recording the
// requested durations.
type sleepRecorder struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (r *sleepRecorder) install(t *testing.T) {
	t.Helper()
	restore := clock.SleepFunc
	clock.SleepFunc = func(ctx context.Context, d time.Duration) {
		r.mu.Lock()
		r.durations = append(r.durations, d)
		r.mu.Unlock()
	}
	t.Cleanup(func() { clock.SleepFunc = restore })
}

func (r *sleepRecorder) slept() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.durations...)
}

func newTestService(t *testing.T, workflow *fakeWorkflow, ledger *fakeLedger) *Service {
	t.Helper()
	srv, err := New(
		WithWorkflow(workflow),
		WithLedger(ledger),
		WithDetailFetcher(&fakeFetcher{}),
		WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	srv.SetWorkflowSession("wf-session")
	srv.SetLedgerSession("ledger-session")
	return srv
}

func cases() []model.Item {
	return []model.Item{
		{NPSN: "10100001", Bapp: "B-1", ActionID: "A-1", SerialNumber: "SN-1"},
		{NPSN: "10100002", Bapp: "B-2", ActionID: "A-2", SerialNumber: "SN-2"},
	}
}

func waitForState(t *testing.T, srv *Service, want status.State) status.Snapshot {
	t.Helper()
	var snapshot status.Snapshot
	require.Eventually(t, func() bool {
		snapshot = srv.Status()
		return snapshot.State == want
	}, time.Second, time.Millisecond, "expected state %q, was %q", want, snapshot.State)
	return snapshot
}

func TestAcceptDecisionEndToEnd(t *testing.T) {
	recorder := &sleepRecorder{}
	recorder.install(t)
	workflow := &fakeWorkflow{}
	ledger := &fakeLedger{}
	srv := newTestService(t, workflow, ledger)

	ctx := context.Background()
	require.NoError(t, srv.LoadCases(ctx, cases()))
	require.NoError(t, srv.EnqueueDecision(ctx, Decision{Approve: true, Fields: map[string]string{"status": "2"}}))

	waitForState(t, srv, status.StateIdle)

	// Cursor advanced optimistically; the second case is current.
	current, ok := srv.Current()
	require.True(t, ok)
	assert.Equal(t, "10100002", current.NPSN)

	// Empty note commits an accept verdict.
	saves := ledger.saved()
	require.Len(t, saves, 1)
	assert.Equal(t, 2, saves[0].Status)
	assert.Equal(t, "ID-10100001", saves[0].ID)
	assert.Equal(t, "ledger-session", saves[0].SessionID)

	// Submitted case dropped from the pending list.
	left, err := srv.pendingStore.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "10100002", left[0].NPSN)

	// Success decays to idle after the configured delay.
	assert.Contains(t, recorder.slept(), 3*time.Second)
}

func TestNoteModeDefersToGateAndKeepsRejectVerdict(t *testing.T) {
	recorder := &sleepRecorder{}
	recorder.install(t)
	workflow := &fakeWorkflow{viewHTML: `<textarea name="description">Kurang jelas</textarea>`}
	ledger := &fakeLedger{}
	srv := newTestService(t, workflow, ledger)

	ctx := context.Background()
	require.NoError(t, srv.LoadCases(ctx, cases()))
	require.NoError(t, srv.EnqueueDecision(ctx, Decision{Approve: true, NoteMode: true, Fields: map[string]string{"status": "2"}}))

	var pendingNote string
	require.Eventually(t, func() bool {
		pending, ok := srv.PendingNote()
		if ok {
			pendingNote = pending.Note
		}
		return ok
	}, time.Second, time.Millisecond)
	assert.Equal(t, "Kurang jelas", pendingNote)

	// Note mode holds the cursor until the gate resolves.
	current, ok := srv.Current()
	require.True(t, ok)
	assert.Equal(t, "10100001", current.NPSN)
	assert.Empty(t, ledger.saved())

	require.NoError(t, srv.ConfirmNote(ctx, "Sudah lengkap"))

	saves := ledger.saved()
	require.Len(t, saves, 1)
	assert.Equal(t, "Sudah lengkap", saves[0].Note)
	// The verdict derives from the note fetched at protocol time; editing
	// the text does not flip it back to accept.
	assert.Equal(t, 3, saves[0].Status)

	current, ok = srv.Current()
	require.True(t, ok)
	assert.Equal(t, "10100002", current.NPSN)
	assert.Equal(t, status.StateIdle, srv.Status().State)
}

func TestSubmitExhaustionFailsAndRetryReplaysAllPhases(t *testing.T) {
	recorder := &sleepRecorder{}
	recorder.install(t)
	workflow := &fakeWorkflow{submitFail: 3}
	ledger := &fakeLedger{}
	srv := newTestService(t, workflow, ledger)

	ctx := context.Background()
	require.NoError(t, srv.LoadCases(ctx, cases()))
	require.NoError(t, srv.EnqueueDecision(ctx, Decision{Approve: true, Fields: map[string]string{"status": "2"}}))

	snapshot := waitForState(t, srv, status.StateError)
	assert.Equal(t, status.StageSubmit, snapshot.FailedStage)
	assert.True(t, snapshot.Retryable)
	assert.Equal(t, 3, workflow.submitCount())

	// Fixed backoff between submit attempts.
	slept := recorder.slept()
	backoffs := 0
	for _, d := range slept {
		if d == 2*time.Second {
			backoffs++
		}
	}
	assert.Equal(t, 2, backoffs)

	// The upstream is healthy again; the retry replays the submit phase.
	require.NoError(t, srv.RetryLastFailure(ctx))
	waitForState(t, srv, status.StateIdle)
	assert.Equal(t, 4, workflow.submitCount())
	require.Len(t, ledger.saved(), 1)
}

func TestSaveExhaustionRetryResumesAfterSubmit(t *testing.T) {
	recorder := &sleepRecorder{}
	recorder.install(t)
	workflow := &fakeWorkflow{}
	ledger := &fakeLedger{saveFail: 3}
	srv := newTestService(t, workflow, ledger)

	ctx := context.Background()
	require.NoError(t, srv.LoadCases(ctx, cases()))
	require.NoError(t, srv.EnqueueDecision(ctx, Decision{Approve: true, Fields: map[string]string{"status": "2"}}))

	snapshot := waitForState(t, srv, status.StateError)
	assert.Equal(t, status.StageSaveApproval, snapshot.FailedStage)
	assert.Equal(t, 1, workflow.submitCount())

	require.NoError(t, srv.RetryLastFailure(ctx))
	waitForState(t, srv, status.StateIdle)

	// A retry past a committed submit must not re-submit.
	assert.Equal(t, 1, workflow.submitCount())
	require.Len(t, ledger.saved(), 1)
}

func TestConfirmNoteKeepsLaterFailureVisible(t *testing.T) {
	recorder := &sleepRecorder{}
	recorder.install(t)
	workflow := &fakeWorkflow{viewHTML: `<textarea name="description">Kurang jelas</textarea>`}
	ledger := &fakeLedger{}
	srv := newTestService(t, workflow, ledger)

	ctx := context.Background()
	require.NoError(t, srv.LoadCases(ctx, cases()))
	require.NoError(t, srv.EnqueueDecision(ctx, Decision{Approve: true, NoteMode: true, Fields: map[string]string{"case": "A"}}))
	require.Eventually(t, func() bool {
		_, ok := srv.PendingNote()
		return ok
	}, time.Second, time.Millisecond)

	// with the gate still open, a later decision fails terminally
	workflow.failNext(3)
	require.NoError(t, srv.EnqueueDecision(ctx, Decision{Approve: true, Fields: map[string]string{"case": "B"}}))
	waitForState(t, srv, status.StateError)

	require.NoError(t, srv.ConfirmNote(ctx, "Sudah lengkap"))

	// confirming the note must not wipe the failure or its retry snapshot
	snapshot := srv.Status()
	assert.Equal(t, status.StateError, snapshot.State)
	assert.Equal(t, status.StageSubmit, snapshot.FailedStage)
	assert.True(t, snapshot.Retryable)
	require.Len(t, ledger.saved(), 1)

	// the failed decision is still retryable afterwards
	require.NoError(t, srv.RetryLastFailure(ctx))
	waitForState(t, srv, status.StateIdle)
	require.Len(t, ledger.saved(), 2)
}

func TestRetryBehindQueuedTasksStillSkipsSubmit(t *testing.T) {
	recorder := &sleepRecorder{}
	recorder.install(t)
	hold := make(chan struct{})
	workflow := &fakeWorkflow{holdFirst: hold}
	ledger := &fakeLedger{saveFail: 3}
	srv := newTestService(t, workflow, ledger)

	ctx := context.Background()
	require.NoError(t, srv.LoadCases(ctx, cases()))

	// both decisions are queued before the first one fails its save phase
	require.NoError(t, srv.EnqueueDecision(ctx, Decision{Approve: true, Fields: map[string]string{"case": "A"}}))
	require.NoError(t, srv.EnqueueDecision(ctx, Decision{Approve: true, Fields: map[string]string{"case": "B"}}))
	close(hold)

	snapshot := waitForState(t, srv, status.StateError)
	assert.Equal(t, status.StageSaveApproval, snapshot.FailedStage)
	assert.Equal(t, 1, srv.QueueSize(), "the second decision stays queued behind the stall")

	// the ledger recovers; the retry drains after the queued decision yet
	// must not submit a second time
	require.NoError(t, srv.RetryLastFailure(ctx))
	waitForState(t, srv, status.StateIdle)

	assert.Equal(t, 1, workflow.submitsFor("case", "A"))
	assert.Equal(t, 1, workflow.submitsFor("case", "B"))
	require.Len(t, ledger.saved(), 2)
}

func TestRetryWithoutFailure(t *testing.T) {
	srv := newTestService(t, &fakeWorkflow{}, &fakeLedger{})
	err := srv.RetryLastFailure(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRetry)
}

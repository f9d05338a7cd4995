// Package status tracks the processing indicator surfaced to the operator
// (idle/processing/success/error) together with the last-failure snapshot
// that powers the explicit retry action. The tracker instance is shared by
// the queue, the protocol and the human-review gate; every component mutates
// it via methods and observers receive value-copy snapshots, never the bare
// shared state.
package status

import (
	"sync"

	"github.com/Luft21/owo-dac-laptop/model"
)

// State is the operator-visible processing state.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// Stage names the protocol phase a terminal failure occurred in.
type Stage string

const (
	StageNone         Stage = "none"
	StageSubmit       Stage = "submit"
	StageSaveApproval Stage = "save-approval"
)

// Retry is the minimal state needed to replay a failed task: the submitted
// payload, the case identity, the detail snapshot and the stage the task
// failed in, so a replay past a committed submit can resume after it.
type Retry struct {
	Payload map[string]string
	Item    model.Item
	Detail  *model.Detail
	Stage   Stage
}

// Snapshot is a read-only copy of the tracker state.
type Snapshot struct {
	State       State  `json:"state"`
	FailedStage Stage  `json:"failedStage"`
	LastError   string `json:"lastError,omitempty"`
	// Retryable reports whether a retry snapshot is held; it is true if and
	// only if State is StateError.
	Retryable bool `json:"retryable"`
}

// Tracker keeps the process-wide processing status. It is safe for
// concurrent use.
type Tracker struct {
	sync.Mutex
	state       State
	failedStage Stage
	lastError   string
	retry       *Retry
	onChange    func(Snapshot)
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{state: StateIdle, failedStage: StageNone}
}

// OnChange registers a callback invoked with a snapshot after every
// transition. The callback runs outside the critical section so it may
// perform slow work without blocking the queue.
func (t *Tracker) OnChange(fn func(Snapshot)) {
	t.Lock()
	t.onChange = fn
	t.Unlock()
}

// Begin marks the start of a task run: state becomes processing, the failed
// stage and message reset and any retry snapshot is discarded.
func (t *Tracker) Begin() {
	t.Lock()
	t.state = StateProcessing
	t.failedStage = StageNone
	t.lastError = ""
	t.retry = nil
	t.notifyLocked()
}

// Succeed marks the current task as committed.
func (t *Tracker) Succeed() {
	t.Lock()
	t.state = StateSuccess
	t.notifyLocked()
}

// Fail records a terminal failure together with the snapshot needed to
// replay the task. The failed stage is stamped onto the snapshot.
func (t *Tracker) Fail(stage Stage, message string, retry *Retry) {
	t.Lock()
	t.state = StateError
	t.failedStage = stage
	t.lastError = message
	if retry != nil {
		retry.Stage = stage
	}
	t.retry = retry
	t.notifyLocked()
}

// Idle returns the indicator to idle unconditionally. Used by the queue
// when a task is handed to the human-review gate mid-drain.
func (t *Tracker) Idle() {
	t.Lock()
	t.state = StateIdle
	t.notifyLocked()
}

// IdleUnlessError returns the indicator to idle unless a terminal failure
// is being displayed; the error and its retry snapshot stay visible until
// the next task begins. Used by the gate when it closes.
func (t *Tracker) IdleUnlessError() {
	t.Lock()
	if t.state == StateError {
		t.Unlock()
		return
	}
	t.state = StateIdle
	t.notifyLocked()
}

// IdleIfSuccess transitions success back to idle; a tracker that moved on
// to another state in the meantime is left alone. Used by the delayed
// success decay so a fresh task never flashes idle mid-run.
func (t *Tracker) IdleIfSuccess() {
	t.Lock()
	if t.state != StateSuccess {
		t.Unlock()
		return
	}
	t.state = StateIdle
	t.notifyLocked()
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.Lock()
	defer t.Unlock()
	return t.snapshotLocked()
}

// RetrySnapshot returns the held retry snapshot, or nil when the tracker is
// not in the error state.
func (t *Tracker) RetrySnapshot() *Retry {
	t.Lock()
	defer t.Unlock()
	return t.retry
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		State:       t.state,
		FailedStage: t.failedStage,
		LastError:   t.lastError,
		Retryable:   t.retry != nil,
	}
}

// notifyLocked releases the lock and invokes the callback with a copy taken
// while the lock was still held.
func (t *Tracker) notifyLocked() {
	snapshot := t.snapshotLocked()
	cb := t.onChange
	t.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

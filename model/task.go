package model

import (
	"github.com/Luft21/owo-dac-laptop/internal/idgen"
)

// ItemKey is the natural key of a case: (npsn, bapp number) identifies the
// case independently of any generated id.
type ItemKey struct {
	NPSN string `json:"npsn"`
	Bapp string `json:"no_bapp"`
}

// Item identifies the case being decided.
type Item struct {
	NPSN         string `json:"npsn"`
	SchoolName   string `json:"nama_sekolah,omitempty"`
	SerialNumber string `json:"serial_number"`
	Bapp         string `json:"no_bapp"`
	ActionID     string `json:"action_id"`
	// DuplicateFlag is "2" when the upstream list marked the serial number
	// as a potential duplicate.
	DuplicateFlag string `json:"cek_sn_penyedia,omitempty"`
}

// Key returns the case natural key.
func (i Item) Key() ItemKey {
	return ItemKey{NPSN: i.NPSN, Bapp: i.Bapp}
}

// Duplicate reports whether the upstream list flagged the serial number.
func (i Item) Duplicate() bool {
	return i.DuplicateFlag == "2"
}

// Task is an immutable snapshot of one operator decision awaiting
// propagation. It is created at decision time, consumed exactly once by the
// queue (or re-submitted verbatim via the retry path) and never mutated
// after creation.
type Task struct {
	// ID is assigned at creation and used only for logging and tracing.
	ID string

	// Session is the opaque workflow-engine credential handle. The engine
	// never inspects it.
	Session string

	// Payload is the flat field snapshot built at decision time. The
	// protocol submits exactly what the operator saw even if the form
	// state mutates afterwards.
	Payload map[string]string

	// Item identifies the case being decided.
	Item Item

	// Detail is the structured record captured at decision time, needed by
	// the save phase.
	Detail *Detail

	// WaitForHuman defers the final save to the human-review gate.
	WaitForHuman bool

	// IsRetry marks a resumed task.
	IsRetry bool

	// SubmitCommitted marks a retry whose submit phase already committed
	// on the original run; the protocol resumes at the note fetch.
	SubmitCommitted bool
}

// NewTask snapshots the supplied decision inputs. The payload map is copied
// so later form edits cannot leak into an in-flight submission.
func NewTask(session string, payload map[string]string, item Item, detail *Detail) *Task {
	snapshot := make(map[string]string, len(payload))
	for k, v := range payload {
		snapshot[k] = v
	}
	return &Task{
		ID:      idgen.New(),
		Session: session,
		Payload: snapshot,
		Item:    item,
		Detail:  detail,
	}
}

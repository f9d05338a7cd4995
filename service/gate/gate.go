// Package gate implements the human-review escape hatch: a paused approval
// whose note the operator edits before the final ledger write. Only one
// pending approval may be open at a time.
package gate

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Luft21/owo-dac-laptop/internal/idgen"
	"github.com/Luft21/owo-dac-laptop/service/client"
	"github.com/Luft21/owo-dac-laptop/service/status"
)

var (
	// ErrAlreadyOpen is returned when a second approval is opened while one
	// is still pending.
	ErrAlreadyOpen = errors.New("a pending approval is already open")
	// ErrNothingPending is returned by Confirm/Cancel without an open
	// approval.
	ErrNothingPending = errors.New("no pending approval")
)

// Cursor advances the operator's working position once the human confirms.
type Cursor interface {
	Advance()
}

// Pending is the approval waiting for a human note edit.
type Pending struct {
	ID      string
	Payload *client.ApprovalPayload
	Note    string
}

// Service holds at most one pending approval.
type Service struct {
	mu      sync.Mutex
	pending *Pending

	ledger  client.Ledger
	tracker *status.Tracker
	cursor  Cursor
	logger  zerolog.Logger
}

// New creates a gate writing confirmed approvals to the supplied ledger.
func New(ledger client.Ledger, tracker *status.Tracker, cursor Cursor, logger zerolog.Logger) *Service {
	return &Service{ledger: ledger, tracker: tracker, cursor: cursor, logger: logger}
}

// Open surfaces the payload and its derived note for edit.
func (s *Service) Open(payload *client.ApprovalPayload, initialNote string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return ErrAlreadyOpen
	}
	s.pending = &Pending{ID: idgen.New(), Payload: payload, Note: initialNote}
	s.logger.Debug().Str("id", s.pending.ID).Msg("approval opened for note edit")
	return nil
}

// Pending returns a copy of the open approval, if any.
func (s *Service) Pending() (*Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil, false
	}
	copied := *s.pending
	return &copied, true
}

// Confirm overwrites the note with the operator's edit, writes the approval
// to the ledger exactly once, closes the gate and advances the cursor. A
// save failure is reported to the caller but not retried; the gate still
// closes and the cursor still advances.
func (s *Service) Confirm(ctx context.Context, editedNote string) error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	if pending == nil {
		return ErrNothingPending
	}

	pending.Payload.Note = editedNote
	err := s.ledger.SaveApproval(ctx, pending.Payload)
	if err != nil {
		s.logger.Error().Err(err).Str("id", pending.ID).Msg("confirmed approval failed to save")
	}

	s.cursor.Advance()
	// A task that failed terminally while the gate was open must stay
	// visible; only a non-error state is returned to idle.
	s.tracker.IdleUnlessError()
	return err
}

// Cancel discards the pending approval without committing anything. The
// decision submit of phase one has already happened and cannot be undone.
func (s *Service) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return ErrNothingPending
	}
	s.logger.Debug().Str("id", s.pending.ID).Msg("pending approval discarded")
	s.pending = nil
	s.tracker.IdleUnlessError()
	return nil
}

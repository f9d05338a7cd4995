package protocol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Luft21/owo-dac-laptop/model"
	"github.com/Luft21/owo-dac-laptop/service/auth"
	"github.com/Luft21/owo-dac-laptop/service/client"
	"github.com/Luft21/owo-dac-laptop/service/pending"
	"github.com/Luft21/owo-dac-laptop/service/retry"
	"github.com/Luft21/owo-dac-laptop/service/status"
	"github.com/Luft21/owo-dac-laptop/tracing"
)

// Verdict codes committed to the approval ledger.
const (
	VerdictAccept = 2
	VerdictReject = 3
)

// Config bounds the two retryable phases. The attempt counts and backoffs
// are part of the observable contract.
type Config struct {
	Submit retry.Config `json:"submit" yaml:"submit"`
	Save   retry.Config `json:"save" yaml:"save"`
}

// DefaultConfig returns the contract constants: 3 attempts each, 2 s
// backoff for submit and 1 s for save.
func DefaultConfig() Config {
	return Config{
		Submit: retry.Config{MaxAttempts: 3, Backoff: 2 * time.Second},
		Save:   retry.Config{MaxAttempts: 3, Backoff: time.Second},
	}
}

// Gate receives the approval payload when the task defers the final save to
// a human edit.
type Gate interface {
	Open(payload *client.ApprovalPayload, initialNote string) error
}

// PhaseError is a terminal protocol failure carrying the phase it halted in.
type PhaseError struct {
	Stage status.Stage
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s: %v", e.Stage, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Outcome describes how a protocol run ended short of a terminal failure.
type Outcome struct {
	// Deferred is set when the payload was handed to the human-review gate
	// instead of being saved.
	Deferred bool
	// LedgerSkipped is set when the save phase could not run because no
	// ledger session or case identifier was available.
	LedgerSkipped bool
	// Note is the derived note the verdict was computed from.
	Note string
	// Verdict is the committed (or deferred) verdict code.
	Verdict int
}

// Service executes the four-phase approval protocol for one task: submit
// the decision to the workflow engine, read back the case note,
// authenticate against the ledger and save the final verdict.
type Service struct {
	config   Config
	workflow client.Workflow
	ledger   client.Ledger
	sessions *auth.Manager
	pending  pending.Store
	gate     Gate
	logger   zerolog.Logger
}

// New creates a protocol service.
func New(config Config, workflow client.Workflow, ledger client.Ledger, sessions *auth.Manager, pendingStore pending.Store, gate Gate, logger zerolog.Logger) *Service {
	return &Service{
		config:   config,
		workflow: workflow,
		ledger:   ledger,
		sessions: sessions,
		pending:  pendingStore,
		gate:     gate,
		logger:   logger,
	}
}

// Run executes the protocol for one task. A retry whose submit committed on
// the original run resumes at the note fetch. A returned *PhaseError is
// terminal and halts the queue.
func (s *Service) Run(ctx context.Context, task *model.Task) (*Outcome, error) {
	logger := s.logger.With().Str("task", task.ID).Str("npsn", task.Item.NPSN).Logger()

	// 1. SUBMIT
	if task.IsRetry && task.SubmitCommitted {
		logger.Debug().Msg("submit already committed, resuming at note fetch")
	} else if err := s.submit(ctx, task, logger); err != nil {
		return nil, &PhaseError{Stage: status.StageSubmit, Err: err}
	}

	// 2. FETCH_NOTE (soft)
	note := s.fetchNote(ctx, task, logger)

	// 3. AUTHENTICATE_LEDGER (soft)
	session := s.ledgerSession(ctx, logger)

	// 4. SAVE_APPROVAL
	return s.saveApproval(ctx, task, note, session, logger)
}

func (s *Service) submit(ctx context.Context, task *model.Task, logger zerolog.Logger) error {
	ctx, span := tracing.StartSpan(ctx, "protocol.submit", "CLIENT")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	attempt := 0
	err = retry.Run(ctx, s.config.Submit, func(ctx context.Context) (bool, error) {
		attempt++
		resp, callErr := s.workflow.SubmitDecision(ctx, task.Payload, task.Session)
		if callErr != nil {
			logger.Warn().Err(callErr).Int("attempt", attempt).Msg("submit call failed")
			return false, callErr
		}
		if !resp.Success {
			logger.Warn().Str("message", resp.Message).Int("attempt", attempt).Msg("submit rejected")
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return err
	}

	// Decision is recorded upstream; dropping the case from the pending
	// list is best-effort.
	if removeErr := s.pending.Remove(ctx, task.Item.Key()); removeErr != nil {
		logger.Warn().Err(removeErr).Msg("pending list update failed")
	}
	return nil
}

func (s *Service) fetchNote(ctx context.Context, task *model.Task, logger zerolog.Logger) string {
	ctx, span := tracing.StartSpan(ctx, "protocol.fetchNote", "CLIENT")
	defer tracing.EndSpan(span, nil)

	resp, err := s.workflow.ViewCase(ctx, task.Item.ActionID, task.Session)
	if err != nil {
		logger.Warn().Err(err).Msg("note fetch failed, proceeding with empty note")
		return ""
	}
	if !resp.Success {
		logger.Warn().Str("message", resp.Message).Msg("note fetch rejected, proceeding with empty note")
		return ""
	}
	return ExtractCaseNote(resp.HTML)
}

func (s *Service) ledgerSession(ctx context.Context, logger zerolog.Logger) string {
	session, err := s.sessions.Session(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNoCredentials) {
			logger.Warn().Msg("no ledger session and no credentials cached")
		} else {
			logger.Warn().Err(err).Msg("ledger login failed")
		}
		return ""
	}
	return session
}

func (s *Service) saveApproval(ctx context.Context, task *model.Task, note, session string, logger zerolog.Logger) (*Outcome, error) {
	// The committed verdict derives from the note, not the operator's
	// button: any note at all means reject.
	verdict := VerdictAccept
	if note != "" {
		verdict = VerdictReject
	}

	payload := &client.ApprovalPayload{
		Status:    verdict,
		Note:      note,
		SessionID: session,
	}
	if task.Detail != nil {
		payload.ID = task.Detail.ExtractedID
		payload.NPSN = task.Detail.School.NPSN
		payload.Resi = task.Detail.Resi
		payload.BappID = task.Detail.BappID
	}

	if task.WaitForHuman {
		if err := s.gate.Open(payload, note); err != nil {
			return nil, &PhaseError{Stage: status.StageSaveApproval, Err: err}
		}
		return &Outcome{Deferred: true, Note: note, Verdict: verdict}, nil
	}

	if session == "" || payload.ID == "" {
		logger.Warn().
			Bool("hasSession", session != "").
			Bool("hasExtractedId", payload.ID != "").
			Msg("ledger save skipped: verdict not recorded in ledger")
		return &Outcome{LedgerSkipped: true, Note: note, Verdict: verdict}, nil
	}

	ctx, span := tracing.StartSpan(ctx, "protocol.saveApproval", "CLIENT")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	attempt := 0
	err = retry.Run(ctx, s.config.Save, func(ctx context.Context) (bool, error) {
		attempt++
		if callErr := s.ledger.SaveApproval(ctx, payload); callErr != nil {
			logger.Warn().Err(callErr).Int("attempt", attempt).Msg("ledger save failed")
			return false, callErr
		}
		return false, nil
	})
	if err != nil {
		return nil, &PhaseError{Stage: status.StageSaveApproval, Err: err}
	}
	return &Outcome{Note: note, Verdict: verdict}, nil
}

package dac

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Luft21/owo-dac-laptop/model"
	"github.com/Luft21/owo-dac-laptop/service/auth"
	"github.com/Luft21/owo-dac-laptop/service/client"
	"github.com/Luft21/owo-dac-laptop/service/gate"
	"github.com/Luft21/owo-dac-laptop/service/pending"
	pfs "github.com/Luft21/owo-dac-laptop/service/pending/fs"
	"github.com/Luft21/owo-dac-laptop/service/pending/memory"
	"github.com/Luft21/owo-dac-laptop/service/protocol"
	"github.com/Luft21/owo-dac-laptop/service/queue"
	"github.com/Luft21/owo-dac-laptop/service/status"
	"github.com/Luft21/owo-dac-laptop/service/worklist"
)

// ledgerSystem names the external system ledger logins are minted for.
const ledgerSystem = "verval"

// ErrNothingToRetry is returned by RetryLastFailure when the tracker holds
// no retryable failure.
var ErrNothingToRetry = errors.New("nothing to retry")

// Decision captures one operator verdict on the current case.
type Decision struct {
	// Approve is the operator's accept/reject choice. It is recorded in
	// the submitted fields; the ledger verdict is derived independently
	// from the case note.
	Approve bool

	// NoteMode defers the final ledger write to the human-review gate so
	// the operator can edit the note first.
	NoteMode bool

	// Fields is the flat form snapshot submitted to the workflow engine.
	Fields map[string]string
}

// Service is the engine façade. It owns the worklist cursor, the submission
// queue and the processing tracker, and wires the per-task protocol to the
// injected external-system clients.
type Service struct {
	config *Config
	logger zerolog.Logger

	workflow     client.Workflow
	ledger       client.Ledger
	authClient   client.Auth
	fetcher      client.DetailFetcher
	secondary    client.SecondaryLookup
	pendingStore pending.Store

	tracker  *status.Tracker
	sessions *auth.Manager
	worklist *worklist.Service
	gate     *gate.Service
	protocol *protocol.Service
	queue    *queue.Service

	mux             sync.RWMutex
	workflowSession string
}

// New creates the engine. Workflow and ledger clients are required;
// everything else has a working default.
func New(options ...Option) (*Service, error) {
	srv := &Service{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
	for _, option := range options {
		option(srv)
	}
	if srv.workflow == nil {
		return nil, fmt.Errorf("workflow client was nil")
	}
	if srv.ledger == nil {
		return nil, fmt.Errorf("ledger client was nil")
	}
	if err := srv.config.Validate(); err != nil {
		return nil, err
	}
	if srv.pendingStore == nil {
		if srv.config.PendingURL != "" {
			srv.pendingStore = pfs.New(srv.config.PendingURL)
		} else {
			srv.pendingStore = memory.New()
		}
	}

	srv.tracker = status.NewTracker()
	srv.sessions = auth.NewManager(srv.authClient, ledgerSystem, srv.logger)

	var listOptions []worklist.Option
	if srv.config.Reverse {
		listOptions = append(listOptions, worklist.WithReverse())
	}
	srv.worklist = worklist.New(srv.fetcher, srv.secondary, srv.WorkflowSession, srv.logger, listOptions...)

	srv.gate = gate.New(srv.ledger, srv.tracker, srv.worklist, srv.logger)
	srv.protocol = protocol.New(srv.config.Protocol, srv.workflow, srv.ledger, srv.sessions, srv.pendingStore, srv.gate, srv.logger)
	srv.queue = queue.New(srv.config.Queue, srv.protocol, srv.tracker, srv.logger)
	return srv, nil
}

// SetWorkflowSession installs the opaque workflow-engine credential used by
// subsequent submissions and detail fetches.
func (s *Service) SetWorkflowSession(session string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.workflowSession = session
}

// WorkflowSession returns the current workflow-engine credential.
func (s *Service) WorkflowSession() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.workflowSession
}

// SetLedgerCredentials installs the ledger login used to mint sessions
// lazily.
func (s *Service) SetLedgerCredentials(creds *auth.Credentials) {
	s.sessions.SetCredentials(creds)
}

// SetLedgerSession installs a pre-minted ledger session token.
func (s *Service) SetLedgerSession(session string) {
	s.sessions.SetSession(session)
}

// LoadCases replaces the pending store and the worklist with a fresh case
// list and starts prefetching the first case's detail.
func (s *Service) LoadCases(ctx context.Context, items []model.Item) error {
	if err := s.pendingStore.Replace(ctx, items); err != nil {
		return err
	}
	s.worklist.Load(ctx, items)
	return nil
}

// Current returns the case under the cursor.
func (s *Service) Current() (model.Item, bool) {
	return s.worklist.Current()
}

// Remaining returns how many cases the cursor has not passed yet.
func (s *Service) Remaining() int {
	return s.worklist.Remaining()
}

// Detail returns the current case's structured record, via the prefetch
// cache.
func (s *Service) Detail(ctx context.Context) (*model.Detail, error) {
	return s.worklist.Detail(ctx)
}

// RefreshDetail re-fetches the current case's record, bypassing the cache.
func (s *Service) RefreshDetail(ctx context.Context) (*model.Detail, error) {
	return s.worklist.RefreshDetail(ctx)
}

// Roster returns the staff roster for the supplied institution code.
func (s *Service) Roster(ctx context.Context, npsn string) (*model.SchoolRoster, error) {
	return s.worklist.Roster(ctx, npsn)
}

// Skip advances past the current case without deciding it.
func (s *Service) Skip() {
	s.worklist.Advance()
}

// EnqueueDecision snapshots the decision and schedules it, then advances
// the cursor so the operator can review the next case while the protocol
// runs in the background. Note-mode decisions hold the cursor until the
// gate resolves.
func (s *Service) EnqueueDecision(ctx context.Context, decision Decision) error {
	item, ok := s.worklist.Current()
	if !ok {
		return worklist.ErrNoCurrentItem
	}
	detail, err := s.worklist.Detail(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("npsn", item.NPSN).Msg("deciding without case detail")
		detail = nil
	}
	task := model.NewTask(s.WorkflowSession(), decision.Fields, item, detail)
	if _, ok := task.Payload["status"]; !ok {
		if decision.Approve {
			task.Payload["status"] = "2"
		} else {
			task.Payload["status"] = "3"
		}
	}
	task.WaitForHuman = decision.NoteMode
	if !decision.NoteMode {
		s.worklist.Advance()
	}
	s.queue.Enqueue(ctx, task)
	return nil
}

// RetryLastFailure re-schedules the last failed task. A task that failed
// past a committed submit resumes at the note fetch, even when other queued
// tasks run before it. The cursor does not move; it already advanced when
// the decision was first made.
func (s *Service) RetryLastFailure(ctx context.Context) error {
	retry := s.tracker.RetrySnapshot()
	if retry == nil {
		return ErrNothingToRetry
	}
	task := model.NewTask(s.WorkflowSession(), retry.Payload, retry.Item, retry.Detail)
	task.IsRetry = true
	task.SubmitCommitted = retry.Stage == status.StageSaveApproval
	s.queue.Enqueue(ctx, task)
	return nil
}

// PendingNote returns the gate's pending payload, if any.
func (s *Service) PendingNote() (*gate.Pending, bool) {
	return s.gate.Pending()
}

// ConfirmNote finalises a note-mode decision with the edited note and
// writes the approval to the ledger.
func (s *Service) ConfirmNote(ctx context.Context, editedNote string) error {
	return s.gate.Confirm(ctx, editedNote)
}

// CancelNote discards the gate's pending payload without a ledger write.
func (s *Service) CancelNote() error {
	return s.gate.Cancel()
}

// Status returns the current processing snapshot.
func (s *Service) Status() status.Snapshot {
	return s.tracker.Snapshot()
}

// OnStatusChange registers a callback fired on every tracker transition.
func (s *Service) OnStatusChange(fn func(status.Snapshot)) {
	s.tracker.OnChange(fn)
}

// QueueSize returns the number of tasks not yet picked up by the drainer.
func (s *Service) QueueSize() int {
	return s.queue.Size()
}

package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Luft21/owo-dac-laptop/internal/clock"
	"github.com/Luft21/owo-dac-laptop/model"
	"github.com/Luft21/owo-dac-laptop/service/protocol"
	"github.com/Luft21/owo-dac-laptop/service/status"
	"github.com/Luft21/owo-dac-laptop/tracing"
)

// Runner executes the approval protocol for one task. Satisfied by
// *protocol.Service.
type Runner interface {
	Run(ctx context.Context, task *model.Task) (*protocol.Outcome, error)
}

// Config holds queue tunables.
type Config struct {
	// IdleDelay is how long the success state lingers before decaying to
	// idle once the queue has drained completely.
	IdleDelay time.Duration `json:"idleDelay" yaml:"idleDelay"`
}

// DefaultConfig returns the contract constant: 3 s success decay.
func DefaultConfig() Config {
	return Config{IdleDelay: 3 * time.Second}
}

// Service is the FIFO submission scheduler. Exactly one drain loop runs at
// a time; tasks commit in strict enqueue order and a terminal failure stops
// the drain with the remaining tasks left untouched until the operator
// retries or enqueues again. Stalling on failure is deliberate: silently
// skipping a case whose external state may be inconsistent is worse than
// blocking later work.
type Service struct {
	mu       sync.Mutex
	tasks    []*model.Task
	draining bool

	config  Config
	runner  Runner
	tracker *status.Tracker
	logger  zerolog.Logger
}

// New creates a queue draining into the supplied runner.
func New(config Config, runner Runner, tracker *status.Tracker, logger zerolog.Logger) *Service {
	if config.IdleDelay <= 0 {
		config.IdleDelay = DefaultConfig().IdleDelay
	}
	return &Service{config: config, runner: runner, tracker: tracker, logger: logger}
}

// Enqueue appends a task and starts a drain when none is in progress. A
// queue stalled by a failure resumes on the next enqueue.
func (s *Service) Enqueue(ctx context.Context, task *model.Task) {
	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	start := !s.draining
	if start {
		s.draining = true
	}
	s.mu.Unlock()
	if start {
		go s.drain(ctx)
	}
}

// Size returns the number of tasks waiting, the running one excluded.
func (s *Service) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Draining reports whether a drain loop is active.
func (s *Service) Draining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draining
}

func (s *Service) drain(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "queue.drain", "CONSUMER")
	defer tracing.EndSpan(span, nil)

	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		task := s.tasks[0]
		s.tasks = s.tasks[1:]
		s.mu.Unlock()

		s.tracker.Begin()
		outcome, err := s.runner.Run(ctx, task)
		if err != nil {
			stage := status.StageSubmit
			var phaseErr *protocol.PhaseError
			if errors.As(err, &phaseErr) {
				stage = phaseErr.Stage
			}
			s.logger.Error().Err(err).Str("task", task.ID).Str("npsn", task.Item.NPSN).Msg("task failed, queue stalled")
			s.tracker.Fail(stage, err.Error(), &status.Retry{
				Payload: task.Payload,
				Item:    task.Item,
				Detail:  task.Detail,
			})
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
			return
		}

		if outcome.Deferred {
			// Completion now belongs to the human-review gate.
			s.tracker.Idle()
			continue
		}

		s.tracker.Succeed()
		s.logger.Debug().Str("task", task.ID).Str("npsn", task.Item.NPSN).Int("verdict", outcome.Verdict).Msg("task committed")

		s.mu.Lock()
		empty := len(s.tasks) == 0
		s.mu.Unlock()
		if empty {
			go func() {
				clock.Sleep(ctx, s.config.IdleDelay)
				s.tracker.IdleIfSuccess()
			}()
		}
	}
}

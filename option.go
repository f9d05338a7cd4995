package dac

import (
	"github.com/rs/zerolog"

	"github.com/Luft21/owo-dac-laptop/service/client"
	"github.com/Luft21/owo-dac-laptop/service/pending"
)

// Option configures the engine.
type Option func(*Service)

// WithConfig overrides the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithLogger sets the base logger. Sub-services derive their own loggers
// from it.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithWorkflow sets the workflow-engine client (required).
func WithWorkflow(workflow client.Workflow) Option {
	return func(s *Service) {
		s.workflow = workflow
	}
}

// WithLedger sets the approval-ledger client (required).
func WithLedger(ledger client.Ledger) Option {
	return func(s *Service) {
		s.ledger = ledger
	}
}

// WithAuthClient sets the login client used to mint ledger sessions. When
// absent the ledger session has to be supplied via SetLedgerSession.
func WithAuthClient(authClient client.Auth) Option {
	return func(s *Service) {
		s.authClient = authClient
	}
}

// WithDetailFetcher sets the case-detail client used by the worklist
// prefetcher and decision snapshots.
func WithDetailFetcher(fetcher client.DetailFetcher) Option {
	return func(s *Service) {
		s.fetcher = fetcher
	}
}

// WithSecondaryLookup sets the staff-roster client.
func WithSecondaryLookup(secondary client.SecondaryLookup) Option {
	return func(s *Service) {
		s.secondary = secondary
	}
}

// WithPendingStore overrides the pending-case store. Defaults to an
// in-process store, or a storage-backed one when Config.PendingURL is set.
func WithPendingStore(store pending.Store) Option {
	return func(s *Service) {
		s.pendingStore = store
	}
}

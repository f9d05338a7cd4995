// Package worklist holds the operator's ordered case list and working
// cursor. Advancing the cursor is a synchronous transition deliberately
// decoupled from protocol completion (the optimistic-advance policy);
// each advance kicks off a background prefetch of the next case's detail
// and school roster through the lookahead caches.
package worklist

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Luft21/owo-dac-laptop/model"
	"github.com/Luft21/owo-dac-laptop/service/client"
	"github.com/Luft21/owo-dac-laptop/service/lookahead"
)

var (
	// ErrNoCurrentItem is returned when the cursor has moved past the end
	// of the list.
	ErrNoCurrentItem = errors.New("no current item")
	// ErrDetailNotFound is returned when the remote side cannot locate the
	// case detail.
	ErrDetailNotFound = errors.New("case detail not found")

	errUnknownSerial  = errors.New("serial number not in worklist")
	errNoDetailClient = errors.New("no detail client configured")
	errNoRosterClient = errors.New("no roster client configured")
)

// Option customises a Service.
type Option func(*Service)

// WithReverse loads the case list back to front.
func WithReverse() Option {
	return func(s *Service) { s.reverse = true }
}

// Service owns the case list, the cursor and the prefetch caches.
type Service struct {
	mu      sync.Mutex
	items   []model.Item
	cursor  int
	reverse bool

	session func() string
	details *lookahead.Cache[*model.Detail]
	rosters *lookahead.Cache[*model.SchoolRoster]
	logger  zerolog.Logger
}

// New creates a worklist backed by the supplied collaborators. session
// resolves the current workflow-engine credential at fetch time.
func New(fetcher client.DetailFetcher, secondary client.SecondaryLookup, session func() string, logger zerolog.Logger, options ...Option) *Service {
	s := &Service{session: session, logger: logger}
	s.details = lookahead.New(func(ctx context.Context, serial string) (*model.Detail, error) {
		if fetcher == nil {
			return nil, errNoDetailClient
		}
		item, ok := s.itemBySerial(serial)
		if !ok {
			return nil, errUnknownSerial
		}
		detail, err := fetcher.FetchDetail(ctx, item, s.session())
		if err != nil {
			return nil, err
		}
		if detail == nil {
			return nil, ErrDetailNotFound
		}
		return detail, nil
	})
	s.rosters = lookahead.New(func(ctx context.Context, npsn string) (*model.SchoolRoster, error) {
		if secondary == nil {
			return nil, errNoRosterClient
		}
		return secondary.FetchSchoolData(ctx, npsn)
	})
	for _, option := range options {
		option(s)
	}
	return s
}

// Load replaces the case list and resets the cursor, then prefetches the
// item after the first one.
func (s *Service) Load(ctx context.Context, items []model.Item) {
	copied := append([]model.Item(nil), items...)
	if s.reverse {
		for i, j := 0, len(copied)-1; i < j; i, j = i+1, j-1 {
			copied[i], copied[j] = copied[j], copied[i]
		}
	}
	s.mu.Lock()
	s.items = copied
	s.cursor = 0
	s.mu.Unlock()
	s.prefetchNext(ctx)
}

// Current returns the case under the cursor.
func (s *Service) Current() (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor >= len(s.items) {
		return model.Item{}, false
	}
	return s.items[s.cursor], true
}

// Next returns the case after the cursor.
func (s *Service) Next() (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor+1 >= len(s.items) {
		return model.Item{}, false
	}
	return s.items[s.cursor+1], true
}

// Remaining returns how many cases are still ahead of the cursor,
// the current one included.
func (s *Service) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor >= len(s.items) {
		return 0
	}
	return len(s.items) - s.cursor
}

// Advance moves the cursor one case forward and prefetches the new next
// case in the background. It never blocks on the network.
func (s *Service) Advance() {
	s.mu.Lock()
	if s.cursor < len(s.items) {
		s.cursor++
	}
	s.mu.Unlock()
	s.prefetchNext(context.Background())
}

// Detail returns the current case's detail, served from the lookahead
// cache when the prefetch already completed.
func (s *Service) Detail(ctx context.Context) (*model.Detail, error) {
	item, ok := s.Current()
	if !ok {
		return nil, ErrNoCurrentItem
	}
	return s.details.Get(ctx, item.SerialNumber)
}

// RefreshDetail bypasses the cache and re-fetches the current case.
func (s *Service) RefreshDetail(ctx context.Context) (*model.Detail, error) {
	item, ok := s.Current()
	if !ok {
		return nil, ErrNoCurrentItem
	}
	return s.details.Refresh(ctx, item.SerialNumber)
}

// Roster returns the staff roster for the supplied institution code.
func (s *Service) Roster(ctx context.Context, npsn string) (*model.SchoolRoster, error) {
	return s.rosters.Get(ctx, npsn)
}

// RefreshRoster re-fetches the roster, keeping the old entry on failure.
func (s *Service) RefreshRoster(ctx context.Context, npsn string) (*model.SchoolRoster, error) {
	return s.rosters.Refresh(ctx, npsn)
}

func (s *Service) prefetchNext(ctx context.Context) {
	next, ok := s.Next()
	if !ok {
		return
	}
	go func() {
		detail, err := s.details.Get(ctx, next.SerialNumber)
		if err != nil {
			s.logger.Warn().Err(err).Str("sn", next.SerialNumber).Msg("detail prefetch failed")
			return
		}
		if npsn := detail.School.NPSN; npsn != "" {
			if _, err := s.rosters.Get(ctx, npsn); err != nil {
				s.logger.Warn().Err(err).Str("npsn", npsn).Msg("roster prefetch failed")
			}
		}
	}()
}

func (s *Service) itemBySerial(serial string) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.SerialNumber == serial {
			return item, true
		}
	}
	return model.Item{}, false
}

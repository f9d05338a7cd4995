// Package pending abstracts the externally-owned list of cases still
// awaiting a decision. The engine does not own this store; it is only told
// to drop a case once the submit phase has committed, and that update is
// best-effort.
package pending

import (
	"context"

	"github.com/Luft21/owo-dac-laptop/model"
)

// Store is the pending-case list contract.
type Store interface {
	// Replace overwrites the whole list, e.g. after a fresh intake scrape.
	Replace(ctx context.Context, items []model.Item) error

	// List returns the cases still pending.
	List(ctx context.Context) ([]model.Item, error)

	// Remove drops the case with the supplied natural key. Removing an
	// absent key is not an error.
	Remove(ctx context.Context, key model.ItemKey) error
}

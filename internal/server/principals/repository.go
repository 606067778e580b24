package principals

import (
	"context"
)

// Repository provides keyed access to principal records.
//
// Update applies the mutator under a per-record exclusion scope: two
// concurrent mutators on the same principal never interleave field writes.
// ExpireIfAlive is the compare-and-set used by the distribution engine; it
// reports whether this call performed the Alive -> Expired flip, so that two
// overlapping sweeps cannot both pass the guard for the same principal.
type Repository interface {
	GetOrCreate(ctx context.Context, id, displayName string) (*Principal, error)
	Get(ctx context.Context, id string) (*Principal, error)
	Update(ctx context.Context, id string, mutate func(*Principal) error) error
	ListWatchable(ctx context.Context) ([]*Principal, error)
	ExpireIfAlive(ctx context.Context, id string) (bool, error)
}

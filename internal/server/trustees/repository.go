package trustees

import (
	"context"
)

type Repository interface {
	// Add inserts the link, returning common.ErrorAlreadyBound when the pair
	// already exists.
	Add(ctx context.Context, link *Link) error
	// Remove deletes the link, returning common.ErrorNotFound when absent.
	Remove(ctx context.Context, principalID, trusteeID string) error
	ListByOwner(ctx context.Context, principalID string) ([]*Link, error)
	ListByTrustee(ctx context.Context, trusteeID string) ([]*Link, error)
}

package vault

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, entry *Entry) (*Entry, error)
	// Get returns the entry only when it belongs to ownerID;
	// common.ErrorNotFound otherwise.
	Get(ctx context.Context, id int64, ownerID string) (*Entry, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Entry, error)
	UpdateRecipients(ctx context.Context, id int64, ownerID string, recipientIDs []string) error
	Delete(ctx context.Context, id int64, ownerID string) error
}

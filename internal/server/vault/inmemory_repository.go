package vault

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lifesignal/lifesignal/internal/common"
)

type InMemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	entries map[int64]*Entry
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{entries: make(map[int64]*Entry)}
}

func (r *InMemoryRepository) Create(ctx context.Context, entry *Entry) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	stored := cloneEntry(entry)
	r.entries[entry.ID] = stored
	return cloneEntry(stored), nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id int64, ownerID string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok || entry.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	return cloneEntry(entry), nil
}

func (r *InMemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entry
	for _, entry := range r.entries {
		if entry.OwnerID == ownerID {
			out = append(out, cloneEntry(entry))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) UpdateRecipients(ctx context.Context, id int64, ownerID string, recipientIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok || entry.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	entry.RecipientIDs = append([]string(nil), recipientIDs...)
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id int64, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok || entry.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	delete(r.entries, id)
	return nil
}

func cloneEntry(e *Entry) *Entry {
	out := *e
	out.Ciphertext = append([]byte(nil), e.Ciphertext...)
	out.Nonce = append([]byte(nil), e.Nonce...)
	out.RecipientIDs = append([]string(nil), e.RecipientIDs...)
	return &out
}

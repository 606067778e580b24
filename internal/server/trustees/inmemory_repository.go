package trustees

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lifesignal/lifesignal/internal/common"
)

type InMemoryRepository struct {
	mu    sync.RWMutex
	links map[string]map[string]*Link // principalID -> trusteeID -> link
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{links: make(map[string]map[string]*Link)}
}

func (r *InMemoryRepository) Add(ctx context.Context, link *Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byTrustee, ok := r.links[link.PrincipalID]
	if !ok {
		byTrustee = make(map[string]*Link)
		r.links[link.PrincipalID] = byTrustee
	}
	if _, exists := byTrustee[link.TrusteeID]; exists {
		return common.ErrorAlreadyBound
	}

	stored := *link
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	byTrustee[link.TrusteeID] = &stored
	return nil
}

func (r *InMemoryRepository) Remove(ctx context.Context, principalID, trusteeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byTrustee, ok := r.links[principalID]
	if !ok {
		return common.ErrorNotFound
	}
	if _, exists := byTrustee[trusteeID]; !exists {
		return common.ErrorNotFound
	}
	delete(byTrustee, trusteeID)
	return nil
}

func (r *InMemoryRepository) ListByOwner(ctx context.Context, principalID string) ([]*Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Link
	for _, l := range r.links[principalID] {
		copied := *l
		out = append(out, &copied)
	}
	sortLinks(out)
	return out, nil
}

func (r *InMemoryRepository) ListByTrustee(ctx context.Context, trusteeID string) ([]*Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Link
	for _, byTrustee := range r.links {
		if l, ok := byTrustee[trusteeID]; ok {
			copied := *l
			out = append(out, &copied)
		}
	}
	sortLinks(out)
	return out, nil
}

func sortLinks(links []*Link) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].TrusteeID < links[j].TrusteeID
		}
		return links[i].CreatedAt.Before(links[j].CreatedAt)
	})
}

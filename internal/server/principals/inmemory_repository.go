package principals

import (
	"context"
	"sync"
	"time"

	"github.com/lifesignal/lifesignal/internal/common"
)

// InMemoryRepository keeps principal records in process memory, guarding each
// record with its own mutex so mutators on different principals never block
// each other. Used by tests and by deployments without a DSN.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*memRecord
}

type memRecord struct {
	mu sync.Mutex
	p  Principal
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[string]*memRecord)}
}

func (r *InMemoryRepository) record(id, displayName string, create bool) *memRecord {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if ok || !create {
		return rec
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok = r.records[id]; ok {
		return rec
	}
	rec = &memRecord{p: Principal{
		ID:             id,
		DisplayName:    displayName,
		LockState:      LockStateActive,
		ThresholdHours: common.DefaultThresholdHours,
		LastHeartbeat:  time.Now().UTC(),
		LivenessStatus: LivenessAlive,
		CreatedAt:      time.Now().UTC(),
	}}
	r.records[id] = rec
	return rec
}

func (r *InMemoryRepository) GetOrCreate(ctx context.Context, id, displayName string) (*Principal, error) {
	rec := r.record(id, displayName, true)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if displayName != "" {
		rec.p.DisplayName = displayName
	}
	p := clonePrincipal(rec.p)
	return &p, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Principal, error) {
	rec := r.record(id, "", false)
	if rec == nil {
		return nil, common.ErrorNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	p := clonePrincipal(rec.p)
	return &p, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id string, mutate func(*Principal) error) error {
	rec := r.record(id, "", false)
	if rec == nil {
		return common.ErrorNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	candidate := clonePrincipal(rec.p)
	if err := mutate(&candidate); err != nil {
		return err
	}
	rec.p = clonePrincipal(candidate)
	return nil
}

func (r *InMemoryRepository) ListWatchable(ctx context.Context) ([]*Principal, error) {
	r.mu.RLock()
	recs := make([]*memRecord, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	var out []*Principal
	for _, rec := range recs {
		rec.mu.Lock()
		if rec.p.LockState == LockStateActive && rec.p.LivenessStatus == LivenessAlive {
			p := clonePrincipal(rec.p)
			out = append(out, &p)
		}
		rec.mu.Unlock()
	}
	return out, nil
}

func (r *InMemoryRepository) ExpireIfAlive(ctx context.Context, id string) (bool, error) {
	rec := r.record(id, "", false)
	if rec == nil {
		return false, common.ErrorNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.p.LivenessStatus != LivenessAlive {
		return false, nil
	}
	rec.p.LivenessStatus = LivenessExpired
	return true, nil
}

// clonePrincipal deep-copies the byte slices so a caller holding a returned
// snapshot can never alias the stored record.
func clonePrincipal(p Principal) Principal {
	out := p
	if p.CredentialHash != nil {
		out.CredentialHash = append([]byte(nil), p.CredentialHash...)
	}
	if p.CredentialSalt != nil {
		out.CredentialSalt = append([]byte(nil), p.CredentialSalt...)
	}
	return out
}

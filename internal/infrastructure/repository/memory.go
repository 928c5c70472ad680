package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/opentender/sealed-tender-backend/internal/domain/errors"
	"github.com/opentender/sealed-tender-backend/internal/domain/tender"
)

// MemoryTenderRepository keeps tenders in process memory with one mutex
// per tender, giving the same per-tender serializability contract as the
// Postgres implementation. Used by tests and the dev storage mode.
type MemoryTenderRepository struct {
	mu      sync.RWMutex
	tenders map[uuid.UUID]*memoryEntry
}

type memoryEntry struct {
	mu sync.Mutex
	t  *tender.Tender
}

// NewMemoryTenderRepository creates an empty in-memory repository
func NewMemoryTenderRepository() *MemoryTenderRepository {
	return &MemoryTenderRepository{
		tenders: make(map[uuid.UUID]*memoryEntry),
	}
}

// Create stores a new tender
func (r *MemoryTenderRepository) Create(ctx context.Context, t *tender.Tender) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tenders[t.ID]; exists {
		return errors.NewConflictError("DUPLICATE_TENDER", "tender already exists")
	}
	r.tenders[t.ID] = &memoryEntry{t: t.Clone()}
	return nil
}

// GetByID returns a consistent snapshot of one tender
func (r *MemoryTenderRepository) GetByID(ctx context.Context, id uuid.UUID) (*tender.Tender, error) {
	r.mu.RLock()
	entry, exists := r.tenders[id]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.ErrTenderNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.t.Clone(), nil
}

// List returns snapshots of all tenders ordered by creation time
func (r *MemoryTenderRepository) List(ctx context.Context) ([]*tender.Tender, error) {
	r.mu.RLock()
	entries := make([]*memoryEntry, 0, len(r.tenders))
	for _, entry := range r.tenders {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	tenders := make([]*tender.Tender, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		tenders = append(tenders, entry.t.Clone())
		entry.mu.Unlock()
	}
	sort.Slice(tenders, func(i, j int) bool {
		if !tenders[i].CreatedAt.Equal(tenders[j].CreatedAt) {
			return tenders[i].CreatedAt.Before(tenders[j].CreatedAt)
		}
		return tenders[i].ID.String() < tenders[j].ID.String()
	})
	return tenders, nil
}

// Mutate runs fn on the aggregate under its per-tender mutex. fn sees
// the live aggregate; because aggregate methods validate before writing,
// a failed fn leaves no partial state behind.
func (r *MemoryTenderRepository) Mutate(ctx context.Context, id uuid.UUID, fn func(*tender.Tender) error) (*tender.Tender, error) {
	r.mu.RLock()
	entry, exists := r.tenders[id]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.ErrTenderNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := fn(entry.t); err != nil {
		return nil, err
	}
	return entry.t.Clone(), nil
}

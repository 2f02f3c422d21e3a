package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"wxsend/internal/model"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu         sync.Mutex
	deliveries map[uuid.UUID]*model.Delivery
}

// NewMemoryRepository creates a repository that keeps history in process memory
func NewMemoryRepository() DeliveryRepository {
	return &memoryRepository{
		deliveries: make(map[uuid.UUID]*model.Delivery),
	}
}

func (r *memoryRepository) Create(ctx context.Context, d *model.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deliveries[d.ID]; ok {
		return fmt.Errorf("delivery %s already exists", d.ID)
	}
	dCopy := *d
	r.deliveries[d.ID] = &dCopy
	return nil
}

func (r *memoryRepository) UpdateResult(ctx context.Context, d *model.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.deliveries[d.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Status = d.Status
	existing.LocalPath = d.LocalPath
	existing.ErrorMessage = d.ErrorMessage
	existing.DurationMs = d.DurationMs
	existing.FinishedAt = d.FinishedAt
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return nil, ErrNotFound
	}
	// Return a copy to avoid race conditions
	dCopy := *d
	return &dCopy, nil
}

func (r *memoryRepository) List(ctx context.Context, limit, offset int) ([]model.Delivery, error) {
	r.mu.Lock()
	all := make([]model.Delivery, 0, len(r.deliveries))
	for _, d := range r.deliveries {
		all = append(all, *d)
	}
	r.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []model.Delivery{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memoryRepository) Close() error {
	return nil
}

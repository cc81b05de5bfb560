package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/assetdesk/ledger-service/internal/model"
	"github.com/assetdesk/ledger-service/internal/request"
	"github.com/assetdesk/ledger-service/internal/request/dto"
)

// MemoryRepository is an in-memory acquisition request store for tests and
// local development. CompareAndSwap is atomic under the repository mutex.
type MemoryRepository struct {
	mu       sync.RWMutex
	requests map[string]model.AcquisitionRequest
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{requests: make(map[string]model.AcquisitionRequest)}
}

// Verify interface compliance
var _ request.Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Create(ctx context.Context, req *model.AcquisitionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[req.ID] = *req
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*model.AcquisitionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (r *MemoryRepository) FindAll(ctx context.Context, f *dto.RequestFilters) ([]model.AcquisitionRequest, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.AcquisitionRequest
	for _, req := range r.requests {
		if f.State != "" && req.State != f.State {
			continue
		}
		if f.RequestedBy != "" && req.RequestedBy != f.RequestedBy {
			continue
		}
		items = append(items, req)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, len(items), nil
}

func (r *MemoryRepository) CompareAndSwap(ctx context.Context, req *model.AcquisitionRequest, expect model.RequestState) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.requests[req.ID]
	if !ok || stored.State != expect {
		return false, nil
	}
	r.requests[req.ID] = *req
	return true, nil
}

func (r *MemoryRepository) ListPendingDue(ctx context.Context, now time.Time) ([]model.AcquisitionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.AcquisitionRequest
	for _, req := range r.requests {
		if req.State == model.RequestStatePending && !req.Deadline.After(now) {
			items = append(items, req)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Deadline.Before(items[j].Deadline)
	})
	return items, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, id)
	return nil
}

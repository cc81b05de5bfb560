package repository

import (
	"context"
	"sync"

	"github.com/assetdesk/ledger-service/internal/ledger"
	"github.com/assetdesk/ledger-service/internal/ledger/dto"
	"github.com/assetdesk/ledger-service/internal/model"
)

// MemoryRepository is an in-memory persistence adapter used in tests and
// local development. It stores copies, so callers never share memory with
// the stored records.
type MemoryRepository struct {
	mu        sync.RWMutex
	assets    map[string]model.Asset
	claims    map[string]model.Claim
	movements []model.StockMovement
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		assets: make(map[string]model.Asset),
		claims: make(map[string]model.Claim),
	}
}

// Verify interface compliance
var _ ledger.Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, ok := r.assets[id]
	if !ok {
		return nil, nil
	}
	return &asset, nil
}

func (r *MemoryRepository) CreateOrUpdateAsset(ctx context.Context, asset *model.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[asset.ID] = *asset
	return nil
}

func (r *MemoryRepository) FindAssets(ctx context.Context, f *dto.AssetFilters) ([]model.Asset, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.Asset
	for _, asset := range r.assets {
		if f.Kind != "" && asset.Kind != f.Kind {
			continue
		}
		items = append(items, asset)
	}
	return items, len(items), nil
}

func (r *MemoryRepository) GetClaim(ctx context.Context, id string) (*model.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	claim, ok := r.claims[id]
	if !ok {
		return nil, nil
	}
	return &claim, nil
}

func (r *MemoryRepository) ListOpenClaims(ctx context.Context) ([]model.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var claims []model.Claim
	for _, claim := range r.claims {
		if claim.State == model.ClaimStateOpen {
			claims = append(claims, claim)
		}
	}
	return claims, nil
}

func (r *MemoryRepository) LogMovement(ctx context.Context, m *model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *MemoryRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []model.StockMovement
	for _, m := range r.movements {
		if f.AssetID != "" && m.AssetID != f.AssetID {
			continue
		}
		if f.MovementType != "" && m.MovementType != f.MovementType {
			continue
		}
		if f.ClaimID != "" && (m.ClaimID == nil || *m.ClaimID != f.ClaimID) {
			continue
		}
		items = append(items, m)
	}
	return items, len(items), nil
}

func (r *MemoryRepository) ApplyClaimChange(ctx context.Context, asset *model.Asset, claim *model.Claim, movement *model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.assets[asset.ID] = *asset
	r.claims[claim.ID] = *claim
	r.movements = append(r.movements, *movement)
	return nil
}

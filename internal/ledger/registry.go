package ledger

import (
	"sync"

	"github.com/assetdesk/ledger-service/internal/model"
)

// Registry is a non-owning in-memory index of open claims, keyed by asset
// and by external reference. It holds copies; the repository stays the
// source of truth and the index is rebuilt from it on startup.
type Registry struct {
	mu          sync.RWMutex
	byID        map[string]model.Claim
	byAsset     map[string]map[string]struct{}
	byReference map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		byID:        make(map[string]model.Claim),
		byAsset:     make(map[string]map[string]struct{}),
		byReference: make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Add(claim model.Claim) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[claim.ID] = claim

	if r.byAsset[claim.AssetID] == nil {
		r.byAsset[claim.AssetID] = make(map[string]struct{})
	}
	r.byAsset[claim.AssetID][claim.ID] = struct{}{}

	if claim.Reference != nil && *claim.Reference != "" {
		ref := *claim.Reference
		if r.byReference[ref] == nil {
			r.byReference[ref] = make(map[string]struct{})
		}
		r.byReference[ref][claim.ID] = struct{}{}
	}
}

// Update replaces the indexed copy of an open claim (quantity edits).
func (r *Registry) Update(claim model.Claim) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[claim.ID]; ok {
		r.byID[claim.ID] = claim
	}
}

func (r *Registry) Remove(claimID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	claim, ok := r.byID[claimID]
	if !ok {
		return
	}
	delete(r.byID, claimID)

	if ids := r.byAsset[claim.AssetID]; ids != nil {
		delete(ids, claimID)
		if len(ids) == 0 {
			delete(r.byAsset, claim.AssetID)
		}
	}
	if claim.Reference != nil && *claim.Reference != "" {
		if ids := r.byReference[*claim.Reference]; ids != nil {
			delete(ids, claimID)
			if len(ids) == 0 {
				delete(r.byReference, *claim.Reference)
			}
		}
	}
}

func (r *Registry) OpenFor(assetID string) []model.Claim {
	r.mu.RLock()
	defer r.mu.RUnlock()

	claims := make([]model.Claim, 0, len(r.byAsset[assetID]))
	for id := range r.byAsset[assetID] {
		claims = append(claims, r.byID[id])
	}
	return claims
}

func (r *Registry) OpenByReference(reference string) []model.Claim {
	r.mu.RLock()
	defer r.mu.RUnlock()

	claims := make([]model.Claim, 0, len(r.byReference[reference]))
	for id := range r.byReference[reference] {
		claims = append(claims, r.byID[id])
	}
	return claims
}

// HasOpenKind reports whether the asset already has an open claim of the
// given kind. Used to reject a second exclusive claim.
func (r *Registry) HasOpenKind(assetID string, kind model.ClaimKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id := range r.byAsset[assetID] {
		if r.byID[id].Kind == kind {
			return true
		}
	}
	return false
}

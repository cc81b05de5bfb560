package ledger

import (
	"testing"
	"time"

	"github.com/assetdesk/ledger-service/internal/model"
)

func openClaim(id, assetID string, kind model.ClaimKind, qty int, reference string) model.Claim {
	claim := model.Claim{
		ID:       id,
		AssetID:  assetID,
		Kind:     kind,
		Quantity: qty,
		State:    model.ClaimStateOpen,
		OpenedAt: time.Now(),
	}
	if reference != "" {
		claim.Reference = &reference
	}
	return claim
}

func TestRegistry_IndexesByAssetAndReference(t *testing.T) {
	r := NewRegistry()

	r.Add(openClaim("c1", "a1", model.ClaimKindRepair, 2, "issue-1"))
	r.Add(openClaim("c2", "a1", model.ClaimKindBorrow, 1, ""))
	r.Add(openClaim("c3", "a2", model.ClaimKindEventAllocation, 5, "event-1"))

	if got := len(r.OpenFor("a1")); got != 2 {
		t.Errorf("OpenFor(a1) = %d claims, want 2", got)
	}
	if got := len(r.OpenFor("a2")); got != 1 {
		t.Errorf("OpenFor(a2) = %d claims, want 1", got)
	}
	if got := len(r.OpenFor("a3")); got != 0 {
		t.Errorf("OpenFor(a3) = %d claims, want 0", got)
	}

	byRef := r.OpenByReference("issue-1")
	if len(byRef) != 1 || byRef[0].ID != "c1" {
		t.Errorf("OpenByReference(issue-1) = %+v, want c1", byRef)
	}

	if !r.HasOpenKind("a1", model.ClaimKindRepair) {
		t.Error("HasOpenKind(a1, repair) = false, want true")
	}
	if r.HasOpenKind("a1", model.ClaimKindMaintenance) {
		t.Error("HasOpenKind(a1, maintenance) = true, want false")
	}
}

func TestRegistry_RemoveCleansAllIndexes(t *testing.T) {
	r := NewRegistry()
	r.Add(openClaim("c1", "a1", model.ClaimKindRepair, 2, "issue-1"))

	r.Remove("c1")
	if got := len(r.OpenFor("a1")); got != 0 {
		t.Errorf("OpenFor after remove = %d, want 0", got)
	}
	if got := len(r.OpenByReference("issue-1")); got != 0 {
		t.Errorf("OpenByReference after remove = %d, want 0", got)
	}
	if r.HasOpenKind("a1", model.ClaimKindRepair) {
		t.Error("HasOpenKind after remove = true, want false")
	}

	// Removing twice is harmless.
	r.Remove("c1")
}

func TestRegistry_UpdateReplacesCopy(t *testing.T) {
	r := NewRegistry()
	r.Add(openClaim("c1", "a1", model.ClaimKindMaintenance, 2, ""))

	updated := openClaim("c1", "a1", model.ClaimKindMaintenance, 4, "")
	r.Update(updated)

	claims := r.OpenFor("a1")
	if len(claims) != 1 || claims[0].Quantity != 4 {
		t.Errorf("after update: %+v, want quantity 4", claims)
	}

	// Update of an unindexed claim is a no-op.
	r.Update(openClaim("c9", "a9", model.ClaimKindRepair, 1, ""))
	if got := len(r.OpenFor("a9")); got != 0 {
		t.Errorf("update inserted unknown claim: %d", got)
	}
}

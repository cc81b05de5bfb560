package ledger

import (
	"context"

	"github.com/assetdesk/ledger-service/internal/ledger/dto"
	"github.com/assetdesk/ledger-service/internal/model"
)

// UseCase is the quantity ledger: the single owner of every asset's
// available counter. All claim/release/adjust traffic for one asset is
// serialized inside the implementation; different assets do not block
// each other.
type UseCase interface {
	// Warmup rebuilds the open-claim index from storage on startup.
	Warmup(ctx context.Context) error

	CreateAsset(ctx context.Context, input *dto.CreateAssetInput) (*model.Asset, error)
	GetAsset(ctx context.Context, assetID string) (*model.Asset, error)
	ListAssets(ctx context.Context, filters *dto.AssetFilters) ([]model.Asset, int, error)

	Claim(ctx context.Context, input *dto.ClaimInput) (*model.Claim, error)
	Release(ctx context.Context, claimID string) (*model.Claim, error)
	Cancel(ctx context.Context, claimID string) (*model.Claim, error)
	AdjustQuantityChange(ctx context.Context, claimID string, newQuantity int) (*model.Claim, error)

	OpenClaimsFor(ctx context.Context, assetID string) ([]model.Claim, error)
	OpenClaimsByReference(ctx context.Context, reference string) ([]model.Claim, error)

	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
}

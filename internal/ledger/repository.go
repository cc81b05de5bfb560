package ledger

import (
	"context"

	"github.com/assetdesk/ledger-service/internal/ledger/dto"
	"github.com/assetdesk/ledger-service/internal/model"
)

// Repository is the persistence adapter for assets, claims and movements.
// Each call is atomic at the single-record level; ApplyClaimChange commits
// the asset counter, the claim row and the movement row in one transaction.
// Cross-call atomicity (check-and-decrement) is the usecase's job, not the
// repository's.
type Repository interface {
	// Assets
	GetAsset(ctx context.Context, id string) (*model.Asset, error)
	CreateOrUpdateAsset(ctx context.Context, asset *model.Asset) error
	FindAssets(ctx context.Context, filters *dto.AssetFilters) ([]model.Asset, int, error)

	// Claims
	GetClaim(ctx context.Context, id string) (*model.Claim, error)
	ListOpenClaims(ctx context.Context) ([]model.Claim, error)

	// Movements / Audit
	LogMovement(ctx context.Context, movement *model.StockMovement) error
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)

	// Transaction support
	ApplyClaimChange(ctx context.Context, asset *model.Asset, claim *model.Claim, movement *model.StockMovement) error
}

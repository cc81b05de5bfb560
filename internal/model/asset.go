package model

import "time"

type AssetKind string

const (
	AssetKindConsumable    AssetKind = "consumable"
	AssetKindNonConsumable AssetKind = "non_consumable"
)

type Asset struct {
	ID               string    `db:"id"`
	Name             string    `db:"name"`
	Kind             AssetKind `db:"kind"`
	TotalQuantity    int       `db:"total_quantity"`
	Available        int       `db:"available"`
	BorrowingEnabled bool      `db:"borrowing_enabled"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// StockMovement is the audit row written alongside every ledger mutation.
type StockMovement struct {
	ID             string    `db:"id"`
	AssetID        string    `db:"asset_id"`
	ClaimID        *string   `db:"claim_id"`
	MovementType   string    `db:"movement_type"` // 'claim', 'release', 'cancel', 'adjust', 'consume'
	QuantityChange int       `db:"quantity_change"`
	QuantityBefore int       `db:"quantity_before"`
	QuantityAfter  int       `db:"quantity_after"`
	Notes          string    `db:"notes"`
	CreatedBy      *string   `db:"created_by"`
	CreatedAt      time.Time `db:"created_at"`
}

package dto

import "github.com/assetdesk/ledger-service/internal/model"

type CreateAssetInput struct {
	Name             string
	Kind             model.AssetKind
	TotalQuantity    int
	BorrowingEnabled bool
}

type ClaimInput struct {
	AssetID   string
	Kind      model.ClaimKind
	Quantity  int
	Reference string // issue id, event id, borrower id; optional
	Notes     string
	UserID    string
}

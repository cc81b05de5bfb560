package dto

import (
	"time"

	"github.com/assetdesk/ledger-service/internal/model"
)

type AssetFilters struct {
	Kind     model.AssetKind
	Name     string
	Page     int
	PageSize int
}

type MovementFilters struct {
	AssetID      string
	ClaimID      string
	MovementType string
	StartDate    *time.Time
	EndDate      *time.Time
	Page         int
	PageSize     int
}

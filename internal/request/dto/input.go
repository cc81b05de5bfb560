package dto

import "github.com/assetdesk/ledger-service/internal/model"

type CreateRequestInput struct {
	AssetName   string
	Quantity    int
	RequestedBy string
}

type RequestFilters struct {
	State       model.RequestState
	RequestedBy string
	Page        int
	PageSize    int
}

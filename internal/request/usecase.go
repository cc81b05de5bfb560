package request

import (
	"context"

	"github.com/assetdesk/ledger-service/internal/model"
	"github.com/assetdesk/ledger-service/internal/request/dto"
)

// UseCase is the acquisition request workflow. Requests ask for new stock,
// so they never touch the quantity ledger; approval is a manual follow-on
// that may later create stock.
type UseCase interface {
	Create(ctx context.Context, input *dto.CreateRequestInput) (*model.AcquisitionRequest, error)
	Get(ctx context.Context, id string) (*model.AcquisitionRequest, error)
	List(ctx context.Context, filters *dto.RequestFilters) ([]model.AcquisitionRequest, int, error)

	Approve(ctx context.Context, id string) (*model.AcquisitionRequest, error)
	Decline(ctx context.Context, id string) (*model.AcquisitionRequest, error)

	Archive(ctx context.Context, id string) (*model.AcquisitionRequest, error)
	Restore(ctx context.Context, id string) (*model.AcquisitionRequest, error)
	Delete(ctx context.Context, id string) error

	// ExpireDue auto-declines every pending request past its deadline.
	// Returns how many requests this call resolved; race losers are skipped.
	ExpireDue(ctx context.Context) (int, error)
}

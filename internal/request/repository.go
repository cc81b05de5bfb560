package request

import (
	"context"
	"time"

	"github.com/assetdesk/ledger-service/internal/model"
	"github.com/assetdesk/ledger-service/internal/request/dto"
)

// Repository is the persistence adapter for acquisition requests.
// CompareAndSwap is the one primitive every state transition goes through:
// it writes the record only if the stored state still equals expect, which is
// what lets a manual decision and the expiry scheduler race safely.
type Repository interface {
	Create(ctx context.Context, request *model.AcquisitionRequest) error
	Get(ctx context.Context, id string) (*model.AcquisitionRequest, error)
	FindAll(ctx context.Context, filters *dto.RequestFilters) ([]model.AcquisitionRequest, int, error)

	// CompareAndSwap persists request iff its stored state equals expect.
	// Returns false (and no error) when another caller transitioned first.
	CompareAndSwap(ctx context.Context, request *model.AcquisitionRequest, expect model.RequestState) (bool, error)

	// ListPendingDue returns pending requests whose deadline is at or before now.
	ListPendingDue(ctx context.Context, now time.Time) ([]model.AcquisitionRequest, error)

	Delete(ctx context.Context, id string) error
}

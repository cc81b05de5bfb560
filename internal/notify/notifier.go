package notify

import (
	"context"

	"github.com/assetdesk/ledger-service/internal/model"
)

// Notifier is the sink for state-change events. Delivery is at-least-once;
// consumers must tolerate duplicates. Failures are reported to the caller,
// which logs and moves on rather than rolling back the transition.
type Notifier interface {
	ClaimStateChanged(ctx context.Context, claim *model.Claim) error
	RequestStateChanged(ctx context.Context, request *model.AcquisitionRequest) error
}

type NopNotifier struct{}

func (NopNotifier) ClaimStateChanged(ctx context.Context, claim *model.Claim) error { return nil }
func (NopNotifier) RequestStateChanged(ctx context.Context, request *model.AcquisitionRequest) error {
	return nil
}

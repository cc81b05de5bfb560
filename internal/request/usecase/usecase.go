package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assetdesk/ledger-service/internal/model"
	"github.com/assetdesk/ledger-service/internal/notify"
	"github.com/assetdesk/ledger-service/internal/request"
	"github.com/assetdesk/ledger-service/internal/request/dto"
	"github.com/assetdesk/ledger-service/pkg/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type requestUseCase struct {
	repo     request.Repository
	notifier notify.Notifier
	clock    clock.Clock
	ttl      time.Duration
	logger   *zap.Logger
}

func NewRequestUseCase(repo request.Repository, notifier notify.Notifier, clk clock.Clock, ttl time.Duration, log *zap.Logger) request.UseCase {
	return &requestUseCase{
		repo:     repo,
		notifier: notifier,
		clock:    clk,
		ttl:      ttl,
		logger:   log,
	}
}

func (uc *requestUseCase) Create(ctx context.Context, input *dto.CreateRequestInput) (*model.AcquisitionRequest, error) {
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("%w: got %d, must be positive", request.ErrInvalidQuantity, input.Quantity)
	}

	now := uc.clock.Now()
	req := &model.AcquisitionRequest{
		ID:          uuid.New().String(),
		AssetName:   input.AssetName,
		Quantity:    input.Quantity,
		RequestedBy: input.RequestedBy,
		State:       model.RequestStatePending,
		CreatedAt:   now,
		Deadline:    now.Add(uc.ttl),
	}

	if err := uc.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	uc.notifyRequest(ctx, req)
	return req, nil
}

func (uc *requestUseCase) Get(ctx context.Context, id string) (*model.AcquisitionRequest, error) {
	req, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, request.ErrRequestNotFound
	}
	return req, nil
}

func (uc *requestUseCase) List(ctx context.Context, filters *dto.RequestFilters) ([]model.AcquisitionRequest, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *requestUseCase) Approve(ctx context.Context, id string) (*model.AcquisitionRequest, error) {
	return uc.resolve(ctx, id, model.RequestStateApproved, false)
}

func (uc *requestUseCase) Decline(ctx context.Context, id string) (*model.AcquisitionRequest, error) {
	return uc.resolve(ctx, id, model.RequestStateDeclined, false)
}

// resolve performs the single Pending → terminal transition. Whoever swaps
// the state first wins; everyone else gets ErrAlreadyResolved and must treat
// it as a no-op. Exactly one notification is emitted per request.
func (uc *requestUseCase) resolve(ctx context.Context, id string, to model.RequestState, auto bool) (*model.AcquisitionRequest, error) {
	req, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, request.ErrRequestNotFound
	}
	if req.State != model.RequestStatePending {
		return nil, request.ErrAlreadyResolved
	}

	now := uc.clock.Now()
	updated := *req
	updated.State = to
	updated.AutoDeclined = auto
	updated.ResolvedAt = &now

	ok, err := uc.repo.CompareAndSwap(ctx, &updated, model.RequestStatePending)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, request.ErrAlreadyResolved
	}

	uc.notifyRequest(ctx, &updated)
	return &updated, nil
}

func (uc *requestUseCase) Archive(ctx context.Context, id string) (*model.AcquisitionRequest, error) {
	req, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, request.ErrRequestNotFound
	}
	if !req.State.CanTransitionTo(model.RequestStateArchived) {
		return nil, fmt.Errorf("%w: cannot archive from %s", request.ErrInvalidState, req.State)
	}

	prior := req.State
	updated := *req
	updated.State = model.RequestStateArchived
	updated.PriorState = &prior

	ok, err := uc.repo.CompareAndSwap(ctx, &updated, prior)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: request %s changed concurrently", request.ErrInvalidState, id)
	}

	uc.notifyRequest(ctx, &updated)
	return &updated, nil
}

func (uc *requestUseCase) Restore(ctx context.Context, id string) (*model.AcquisitionRequest, error) {
	req, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, request.ErrRequestNotFound
	}
	if req.State != model.RequestStateArchived || req.PriorState == nil {
		return nil, fmt.Errorf("%w: cannot restore from %s", request.ErrInvalidState, req.State)
	}

	updated := *req
	updated.State = *req.PriorState
	updated.PriorState = nil

	ok, err := uc.repo.CompareAndSwap(ctx, &updated, model.RequestStateArchived)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: request %s changed concurrently", request.ErrInvalidState, id)
	}

	uc.notifyRequest(ctx, &updated)
	return &updated, nil
}

func (uc *requestUseCase) Delete(ctx context.Context, id string) error {
	req, err := uc.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return request.ErrRequestNotFound
	}
	if req.State != model.RequestStateArchived {
		return fmt.Errorf("%w: can only delete archived requests, got %s", request.ErrInvalidState, req.State)
	}
	return uc.repo.Delete(ctx, id)
}

func (uc *requestUseCase) ExpireDue(ctx context.Context) (int, error) {
	now := uc.clock.Now()
	due, err := uc.repo.ListPendingDue(ctx, now)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for i := range due {
		req, err := uc.resolve(ctx, due[i].ID, model.RequestStateDeclined, true)
		if err != nil {
			// A manual decision beat us to it. Fine either way.
			if errors.Is(err, request.ErrAlreadyResolved) {
				uc.logger.Debug("request resolved before expiry sweep", zap.String("request_id", due[i].ID))
				continue
			}
			return resolved, err
		}
		resolved++
		uc.logger.Info("auto-declined expired request",
			zap.String("request_id", req.ID),
			zap.String("asset_name", req.AssetName),
			zap.Time("deadline", req.Deadline),
		)
	}
	return resolved, nil
}

func (uc *requestUseCase) notifyRequest(ctx context.Context, req *model.AcquisitionRequest) {
	if err := uc.notifier.RequestStateChanged(ctx, req); err != nil {
		uc.logger.Error("failed to notify request state change",
			zap.String("request_id", req.ID),
			zap.String("state", string(req.State)),
			zap.Error(err),
		)
	}
}

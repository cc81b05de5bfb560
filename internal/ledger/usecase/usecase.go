package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/assetdesk/ledger-service/internal/ledger"
	"github.com/assetdesk/ledger-service/internal/ledger/dto"
	"github.com/assetdesk/ledger-service/internal/model"
	"github.com/assetdesk/ledger-service/internal/notify"
	"github.com/assetdesk/ledger-service/pkg/cache"
	"github.com/assetdesk/ledger-service/pkg/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ledgerUseCase serializes every mutation per asset: a keyed mutex guards the
// read-modify-write window, so check-and-decrement is one atomic unit.
// Different assets proceed independently. When a redis client is supplied the
// same window is additionally guarded by a distributed lock, for deployments
// running more than one replica.
type ledgerUseCase struct {
	repo     ledger.Repository
	registry *ledger.Registry
	notifier notify.Notifier
	dist     *cache.RedisClient
	clock    clock.Clock
	logger   *zap.Logger

	mu     sync.Mutex
	assets map[string]*sync.Mutex
}

func NewLedgerUseCase(repo ledger.Repository, registry *ledger.Registry, notifier notify.Notifier, dist *cache.RedisClient, clk clock.Clock, log *zap.Logger) ledger.UseCase {
	return &ledgerUseCase{
		repo:     repo,
		registry: registry,
		notifier: notifier,
		dist:     dist,
		clock:    clk,
		logger:   log,
		assets:   make(map[string]*sync.Mutex),
	}
}

// Warmup rebuilds the open-claim index from storage. Call once on startup
// before serving traffic.
func (uc *ledgerUseCase) Warmup(ctx context.Context) error {
	claims, err := uc.repo.ListOpenClaims(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open claims: %w", err)
	}
	for _, claim := range claims {
		uc.registry.Add(claim)
	}
	uc.logger.Info("claim registry warmed up", zap.Int("open_claims", len(claims)))
	return nil
}

func (uc *ledgerUseCase) CreateAsset(ctx context.Context, input *dto.CreateAssetInput) (*model.Asset, error) {
	if input.TotalQuantity < 0 {
		return nil, fmt.Errorf("%w: total quantity %d", ledger.ErrInvalidQuantity, input.TotalQuantity)
	}

	now := uc.clock.Now()
	asset := &model.Asset{
		ID:               uuid.New().String(),
		Name:             input.Name,
		Kind:             input.Kind,
		TotalQuantity:    input.TotalQuantity,
		Available:        input.TotalQuantity,
		BorrowingEnabled: input.BorrowingEnabled,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.repo.CreateOrUpdateAsset(ctx, asset); err != nil {
		return nil, err
	}

	movement := &model.StockMovement{
		ID:             uuid.New().String(),
		AssetID:        asset.ID,
		MovementType:   "stock_in",
		QuantityChange: asset.TotalQuantity,
		QuantityBefore: 0,
		QuantityAfter:  asset.Available,
		Notes:          "initial stock",
		CreatedAt:      now,
	}
	if err := uc.repo.LogMovement(ctx, movement); err != nil {
		uc.logger.Error("failed to log initial stock movement", zap.String("asset_id", asset.ID), zap.Error(err))
	}

	return asset, nil
}

func (uc *ledgerUseCase) GetAsset(ctx context.Context, assetID string) (*model.Asset, error) {
	asset, err := uc.repo.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, ledger.ErrAssetNotFound
	}
	return asset, nil
}

func (uc *ledgerUseCase) ListAssets(ctx context.Context, filters *dto.AssetFilters) ([]model.Asset, int, error) {
	return uc.repo.FindAssets(ctx, filters)
}

func (uc *ledgerUseCase) Claim(ctx context.Context, input *dto.ClaimInput) (*model.Claim, error) {
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("%w: got %d, must be positive", ledger.ErrInvalidQuantity, input.Quantity)
	}
	if !input.Kind.Valid() {
		return nil, fmt.Errorf("unknown claim kind %q", input.Kind)
	}

	unlock, err := uc.lockAsset(ctx, input.AssetID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	asset, err := uc.repo.GetAsset(ctx, input.AssetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, ledger.ErrAssetNotFound
	}

	if input.Kind == model.ClaimKindConsumption && asset.Kind != model.AssetKindConsumable {
		return nil, ledger.ErrNotConsumable
	}
	if input.Kind == model.ClaimKindBorrow && !asset.BorrowingEnabled {
		return nil, ledger.ErrBorrowingDisabled
	}

	if input.Kind.Exclusive() && uc.registry.HasOpenKind(input.AssetID, input.Kind) {
		return nil, fmt.Errorf("%w: %s claim already open for asset %s",
			ledger.ErrConflictingClaim, input.Kind, input.AssetID)
	}

	if input.Quantity > asset.Available {
		return nil, fmt.Errorf("%w: only %d units available, %d requested",
			ledger.ErrInsufficientQuantity, asset.Available, input.Quantity)
	}

	now := uc.clock.Now()
	claim := &model.Claim{
		ID:       uuid.New().String(),
		AssetID:  input.AssetID,
		Kind:     input.Kind,
		Quantity: input.Quantity,
		State:    model.ClaimStateOpen,
		OpenedAt: now,
	}
	if input.Reference != "" {
		ref := input.Reference
		claim.Reference = &ref
	}

	before := asset.Available
	asset.Available -= input.Quantity
	asset.UpdatedAt = now

	movementType := "claim"
	if input.Kind.Destructive() {
		// Consumption removes units for good: the claim is born Completed
		// and the owned total shrinks with it.
		asset.TotalQuantity -= input.Quantity
		claim.State = model.ClaimStateCompleted
		closed := now
		claim.ClosedAt = &closed
		movementType = "consume"
	}

	movement := uc.newMovement(asset, claim, movementType, -input.Quantity, before, input.Notes, input.UserID)
	if err := uc.repo.ApplyClaimChange(ctx, asset, claim, movement); err != nil {
		return nil, fmt.Errorf("failed to apply claim: %w", err)
	}

	if claim.State == model.ClaimStateOpen {
		uc.registry.Add(*claim)
	}
	uc.notifyClaim(ctx, claim)

	return claim, nil
}

func (uc *ledgerUseCase) Release(ctx context.Context, claimID string) (*model.Claim, error) {
	return uc.closeClaim(ctx, claimID, model.ClaimStateCompleted)
}

func (uc *ledgerUseCase) Cancel(ctx context.Context, claimID string) (*model.Claim, error) {
	return uc.closeClaim(ctx, claimID, model.ClaimStateCancelled)
}

func (uc *ledgerUseCase) closeClaim(ctx context.Context, claimID string, to model.ClaimState) (*model.Claim, error) {
	claim, err := uc.repo.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, ledger.ErrClaimNotFound
	}
	if to == model.ClaimStateCancelled && claim.Kind.Destructive() {
		return nil, ledger.ErrNotCancellable
	}

	unlock, err := uc.lockAsset(ctx, claim.AssetID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Re-read under the lock; a concurrent close may have won the race.
	claim, err = uc.repo.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, ledger.ErrClaimNotFound
	}
	if claim.Closed() {
		return nil, ledger.ErrClaimAlreadyClosed
	}

	asset, err := uc.repo.GetAsset(ctx, claim.AssetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, ledger.ErrAssetNotFound
	}

	now := uc.clock.Now()
	before := asset.Available
	asset.Available += claim.Quantity
	asset.UpdatedAt = now
	claim.State = to
	claim.ClosedAt = &now

	movementType := "release"
	if to == model.ClaimStateCancelled {
		movementType = "cancel"
	}

	movement := uc.newMovement(asset, claim, movementType, claim.Quantity, before, "", "")
	if err := uc.repo.ApplyClaimChange(ctx, asset, claim, movement); err != nil {
		return nil, fmt.Errorf("failed to close claim: %w", err)
	}

	uc.registry.Remove(claim.ID)
	uc.notifyClaim(ctx, claim)

	return claim, nil
}

func (uc *ledgerUseCase) AdjustQuantityChange(ctx context.Context, claimID string, newQuantity int) (*model.Claim, error) {
	if newQuantity <= 0 {
		return nil, fmt.Errorf("%w: got %d, must be positive", ledger.ErrInvalidQuantity, newQuantity)
	}

	claim, err := uc.repo.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, ledger.ErrClaimNotFound
	}

	unlock, err := uc.lockAsset(ctx, claim.AssetID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	claim, err = uc.repo.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, ledger.ErrClaimNotFound
	}
	if claim.Closed() {
		return nil, ledger.ErrClaimAlreadyClosed
	}

	asset, err := uc.repo.GetAsset(ctx, claim.AssetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, ledger.ErrAssetNotFound
	}

	delta := newQuantity - claim.Quantity
	if delta == 0 {
		return claim, nil
	}
	if delta > asset.Available {
		return nil, fmt.Errorf("%w: only %d units available, %d more requested",
			ledger.ErrExceedsAvailable, asset.Available, delta)
	}

	now := uc.clock.Now()
	before := asset.Available
	asset.Available -= delta
	asset.UpdatedAt = now
	claim.Quantity = newQuantity

	movement := uc.newMovement(asset, claim, "adjust", -delta, before, "", "")
	if err := uc.repo.ApplyClaimChange(ctx, asset, claim, movement); err != nil {
		return nil, fmt.Errorf("failed to adjust claim: %w", err)
	}

	uc.registry.Update(*claim)
	uc.notifyClaim(ctx, claim)

	return claim, nil
}

func (uc *ledgerUseCase) OpenClaimsFor(ctx context.Context, assetID string) ([]model.Claim, error) {
	return uc.registry.OpenFor(assetID), nil
}

func (uc *ledgerUseCase) OpenClaimsByReference(ctx context.Context, reference string) ([]model.Claim, error) {
	return uc.registry.OpenByReference(reference), nil
}

func (uc *ledgerUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error) {
	return uc.repo.ListMovements(ctx, filters)
}

// lockAsset serializes mutations for one asset. The in-process mutex is the
// primary guard; the distributed lock only matters across replicas.
func (uc *ledgerUseCase) lockAsset(ctx context.Context, assetID string) (func(), error) {
	uc.mu.Lock()
	m, ok := uc.assets[assetID]
	if !ok {
		m = &sync.Mutex{}
		uc.assets[assetID] = m
	}
	uc.mu.Unlock()

	m.Lock()

	if uc.dist == nil {
		return m.Unlock, nil
	}

	lockKey := "lock:asset:" + assetID
	lockValue := uuid.New().String()

	acquired := false
	for i := 0; i < 3; i++ {
		ok, err := uc.dist.AcquireLock(ctx, lockKey, lockValue, 5*time.Second)
		if err != nil {
			uc.logger.Error("failed to acquire asset lock redis error", zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !acquired {
		m.Unlock()
		return nil, errors.New("asset busy, please try again later (lock)")
	}

	return func() {
		if err := uc.dist.ReleaseLock(ctx, lockKey, lockValue); err != nil {
			uc.logger.Error("failed to release asset lock", zap.String("asset_id", assetID), zap.Error(err))
		}
		m.Unlock()
	}, nil
}

func (uc *ledgerUseCase) newMovement(asset *model.Asset, claim *model.Claim, movementType string, change, before int, notes, userID string) *model.StockMovement {
	movement := &model.StockMovement{
		ID:             uuid.New().String(),
		AssetID:        asset.ID,
		MovementType:   movementType,
		QuantityChange: change,
		QuantityBefore: before,
		QuantityAfter:  asset.Available,
		Notes:          notes,
		CreatedAt:      uc.clock.Now(),
	}
	claimID := claim.ID
	movement.ClaimID = &claimID
	if userID != "" && userID != "unknown" {
		movement.CreatedBy = &userID
	}
	return movement
}

func (uc *ledgerUseCase) notifyClaim(ctx context.Context, claim *model.Claim) {
	if err := uc.notifier.ClaimStateChanged(ctx, claim); err != nil {
		uc.logger.Error("failed to notify claim state change",
			zap.String("claim_id", claim.ID),
			zap.String("state", string(claim.State)),
			zap.Error(err),
		)
	}
}

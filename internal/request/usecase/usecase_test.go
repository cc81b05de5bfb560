package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/assetdesk/ledger-service/internal/model"
	"github.com/assetdesk/ledger-service/internal/request"
	"github.com/assetdesk/ledger-service/internal/request/dto"
	"github.com/assetdesk/ledger-service/internal/request/repository"
	"github.com/assetdesk/ledger-service/pkg/clock"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu       sync.Mutex
	requests []model.AcquisitionRequest
}

func (n *recordingNotifier) ClaimStateChanged(ctx context.Context, claim *model.Claim) error {
	return nil
}

func (n *recordingNotifier) RequestStateChanged(ctx context.Context, req *model.AcquisitionRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, *req)
	return nil
}

func (n *recordingNotifier) requestEvents() []model.AcquisitionRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.AcquisitionRequest, len(n.requests))
	copy(out, n.requests)
	return out
}

type testEnv struct {
	uc       request.UseCase
	repo     *repository.MemoryRepository
	notifier *recordingNotifier
	clock    *clock.Fake
}

func newTestEnv(t *testing.T, ttl time.Duration) *testEnv {
	t.Helper()
	repo := repository.NewMemoryRepository()
	notifier := &recordingNotifier{}
	clk := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	uc := NewRequestUseCase(repo, notifier, clk, ttl, zap.NewNop())
	return &testEnv{uc: uc, repo: repo, notifier: notifier, clock: clk}
}

func (e *testEnv) create(t *testing.T) *model.AcquisitionRequest {
	t.Helper()
	req, err := e.uc.Create(context.Background(), &dto.CreateRequestInput{
		AssetName:   "folding chairs",
		Quantity:    20,
		RequestedBy: "alex",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return req
}

func TestCreate_SetsDeadlineFromTTL(t *testing.T) {
	env := newTestEnv(t, 7*24*time.Hour)
	req := env.create(t)

	if req.State != model.RequestStatePending {
		t.Errorf("state = %s, want pending", req.State)
	}
	wantDeadline := env.clock.Now().Add(7 * 24 * time.Hour)
	if !req.Deadline.Equal(wantDeadline) {
		t.Errorf("deadline = %v, want %v", req.Deadline, wantDeadline)
	}

	if _, err := env.uc.Create(context.Background(), &dto.CreateRequestInput{
		AssetName: "x", Quantity: 0, RequestedBy: "alex",
	}); !errors.Is(err, request.ErrInvalidQuantity) {
		t.Errorf("zero quantity: err = %v, want ErrInvalidQuantity", err)
	}
}

func TestApproveDecline_TerminalFromPendingOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("approve", func(t *testing.T) {
		env := newTestEnv(t, time.Hour)
		req := env.create(t)

		approved, err := env.uc.Approve(ctx, req.ID)
		if err != nil {
			t.Fatalf("Approve failed: %v", err)
		}
		if approved.State != model.RequestStateApproved || approved.AutoDeclined {
			t.Errorf("approved = %+v, want approved/manual", approved)
		}
		if approved.ResolvedAt == nil {
			t.Error("no resolved_at on approval")
		}

		if _, err := env.uc.Decline(ctx, req.ID); !errors.Is(err, request.ErrAlreadyResolved) {
			t.Errorf("decline after approve: err = %v, want ErrAlreadyResolved", err)
		}
	})

	t.Run("decline", func(t *testing.T) {
		env := newTestEnv(t, time.Hour)
		req := env.create(t)

		declined, err := env.uc.Decline(ctx, req.ID)
		if err != nil {
			t.Fatalf("Decline failed: %v", err)
		}
		if declined.State != model.RequestStateDeclined || declined.AutoDeclined {
			t.Errorf("declined = %+v, want declined/manual", declined)
		}

		if _, err := env.uc.Approve(ctx, req.ID); !errors.Is(err, request.ErrAlreadyResolved) {
			t.Errorf("approve after decline: err = %v, want ErrAlreadyResolved", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		env := newTestEnv(t, time.Hour)
		if _, err := env.uc.Approve(ctx, "missing"); !errors.Is(err, request.ErrRequestNotFound) {
			t.Errorf("approve missing: err = %v, want ErrRequestNotFound", err)
		}
	})
}

func TestArchiveRestoreDelete(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	ctx := context.Background()
	req := env.create(t)

	// Archiving a pending request is illegal.
	if _, err := env.uc.Archive(ctx, req.ID); !errors.Is(err, request.ErrInvalidState) {
		t.Fatalf("archive pending: err = %v, want ErrInvalidState", err)
	}
	if err := env.uc.Delete(ctx, req.ID); !errors.Is(err, request.ErrInvalidState) {
		t.Fatalf("delete pending: err = %v, want ErrInvalidState", err)
	}

	if _, err := env.uc.Approve(ctx, req.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	archived, err := env.uc.Archive(ctx, req.ID)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if archived.State != model.RequestStateArchived {
		t.Errorf("state = %s, want archived", archived.State)
	}
	if archived.PriorState == nil || *archived.PriorState != model.RequestStateApproved {
		t.Errorf("prior state = %v, want approved", archived.PriorState)
	}

	// Restore goes back to the prior terminal state.
	restored, err := env.uc.Restore(ctx, req.ID)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.State != model.RequestStateApproved || restored.PriorState != nil {
		t.Errorf("restored = %+v, want approved with no prior state", restored)
	}

	// Restore is only valid from archived.
	if _, err := env.uc.Restore(ctx, req.ID); !errors.Is(err, request.ErrInvalidState) {
		t.Errorf("restore non-archived: err = %v, want ErrInvalidState", err)
	}

	// Delete only removes archived records.
	if err := env.uc.Delete(ctx, req.ID); !errors.Is(err, request.ErrInvalidState) {
		t.Errorf("delete approved: err = %v, want ErrInvalidState", err)
	}
	if _, err := env.uc.Archive(ctx, req.ID); err != nil {
		t.Fatalf("re-archive failed: %v", err)
	}
	if err := env.uc.Delete(ctx, req.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := env.uc.Get(ctx, req.ID); !errors.Is(err, request.ErrRequestNotFound) {
		t.Errorf("get after delete: err = %v, want ErrRequestNotFound", err)
	}
}

func TestExpireDue_AutoDeclinesPastDeadline(t *testing.T) {
	// Scenario C: ttl=30s, nobody acts, sweep at t+31s declines with
	// autoDeclined=true; a late manual approve is a no-op.
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()
	req := env.create(t)

	// Before the deadline nothing happens.
	resolved, err := env.uc.ExpireDue(ctx)
	if err != nil {
		t.Fatalf("ExpireDue failed: %v", err)
	}
	if resolved != 0 {
		t.Fatalf("resolved = %d before deadline, want 0", resolved)
	}

	env.clock.Advance(31 * time.Second)
	resolved, err = env.uc.ExpireDue(ctx)
	if err != nil {
		t.Fatalf("ExpireDue failed: %v", err)
	}
	if resolved != 1 {
		t.Fatalf("resolved = %d, want 1", resolved)
	}

	got, err := env.uc.Get(ctx, req.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != model.RequestStateDeclined || !got.AutoDeclined {
		t.Fatalf("after expiry: %+v, want declined/auto", got)
	}

	// The late manual decision loses quietly.
	if _, err := env.uc.Approve(ctx, req.ID); !errors.Is(err, request.ErrAlreadyResolved) {
		t.Fatalf("late approve: err = %v, want ErrAlreadyResolved", err)
	}
	got, _ = env.uc.Get(ctx, req.ID)
	if got.State != model.RequestStateDeclined || !got.AutoDeclined {
		t.Fatalf("late approve changed state: %+v", got)
	}

	// A second sweep finds nothing pending.
	resolved, _ = env.uc.ExpireDue(ctx)
	if resolved != 0 {
		t.Fatalf("second sweep resolved = %d, want 0", resolved)
	}
}

func TestExpireDue_ManualDecisionWins(t *testing.T) {
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()
	req := env.create(t)

	env.clock.Advance(time.Minute)
	if _, err := env.uc.Approve(ctx, req.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	resolved, err := env.uc.ExpireDue(ctx)
	if err != nil {
		t.Fatalf("ExpireDue failed: %v", err)
	}
	if resolved != 0 {
		t.Fatalf("sweep resolved = %d after manual approve, want 0", resolved)
	}

	got, _ := env.uc.Get(ctx, req.ID)
	if got.State != model.RequestStateApproved || got.AutoDeclined {
		t.Fatalf("manual approval overwritten: %+v", got)
	}
}

func TestResolve_ConcurrentExactlyOnce(t *testing.T) {
	// Manual approve and the expiry sweep race on the same pending request:
	// exactly one terminal transition, exactly one notification.
	env := newTestEnv(t, 30*time.Second)
	ctx := context.Background()
	req := env.create(t)
	env.clock.Advance(time.Minute)

	var wg sync.WaitGroup
	var approveErr error
	var sweepResolved int

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = env.uc.Approve(ctx, req.ID)
	}()
	go func() {
		defer wg.Done()
		sweepResolved, _ = env.uc.ExpireDue(ctx)
	}()
	wg.Wait()

	got, err := env.uc.Get(ctx, req.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	approveWon := approveErr == nil
	sweepWon := sweepResolved == 1

	if approveWon == sweepWon {
		t.Fatalf("want exactly one winner: approveErr=%v sweepResolved=%d", approveErr, sweepResolved)
	}
	if approveWon {
		if got.State != model.RequestStateApproved || got.AutoDeclined {
			t.Errorf("approve won but state = %+v", got)
		}
	} else {
		if !errors.Is(approveErr, request.ErrAlreadyResolved) {
			t.Errorf("approve loser err = %v, want ErrAlreadyResolved", approveErr)
		}
		if got.State != model.RequestStateDeclined || !got.AutoDeclined {
			t.Errorf("sweep won but state = %+v", got)
		}
	}

	// One create event plus exactly one resolution event.
	events := env.notifier.requestEvents()
	resolutions := 0
	for _, e := range events {
		if e.State != model.RequestStatePending {
			resolutions++
		}
	}
	if resolutions != 1 {
		t.Errorf("resolution notifications = %d, want exactly 1", resolutions)
	}
}

func TestList_FiltersByState(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	ctx := context.Background()

	a := env.create(t)
	env.create(t)
	if _, err := env.uc.Approve(ctx, a.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	pending, total, err := env.uc.List(ctx, &dto.RequestFilters{State: model.RequestStatePending})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(pending) != 1 {
		t.Fatalf("pending list = %d/%d, want 1/1", len(pending), total)
	}
}

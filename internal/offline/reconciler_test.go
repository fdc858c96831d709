package offline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/internal/complaints/service"
	"complaints_portal_backend/platform/apperr"
	"complaints_portal_backend/platform/logger"
)

type fakeSubmitter struct {
	mu        sync.Mutex
	order     []string
	failOn    map[string]error
	duplicate map[string]bool
}

func (f *fakeSubmitter) Submit(ctx context.Context, p service.SubmitParams) (service.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, p.LocalID)
	if err, ok := f.failOn[p.LocalID]; ok {
		return service.SubmitResult{}, err
	}
	return service.SubmitResult{
		Complaint: domain.Complaint{ID: uuid.New()},
		Duplicate: f.duplicate[p.LocalID],
	}, nil
}

func draftAt(localID string, offset time.Duration) Draft {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	return Draft{
		LocalID:        localID,
		CreatedAtLocal: base.Add(offset),
		Payload: DraftPayload{
			Type:         domain.TypePothole,
			Confidence:   0.9,
			Latitude:     52.37,
			Longitude:    4.89,
			Address:      "Dam Square 1",
			WithinBounds: true,
		},
	}
}

func TestReconcile_ReplaysInLocalCreationOrder(t *testing.T) {
	sub := &fakeSubmitter{}
	r := NewReconciler(sub, logger.New("development"))

	drafts := []Draft{
		draftAt("c", 3*time.Minute),
		draftAt("a", 1*time.Minute),
		draftAt("b", 2*time.Minute),
	}

	outcomes, err := r.Reconcile(context.Background(), drafts)
	if err != nil {
		t.Fatalf("expected pass to complete, got %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}

	want := []string{"a", "b", "c"}
	for i, localID := range want {
		if sub.order[i] != localID {
			t.Fatalf("expected replay order %v, got %v", want, sub.order)
		}
		if outcomes[i].LocalID != localID {
			t.Fatalf("expected outcome order %v, got %+v", want, outcomes)
		}
		if outcomes[i].SyncState != SyncStateSynced {
			t.Fatalf("expected %s synced, got %s", localID, outcomes[i].SyncState)
		}
	}
}

func TestReconcile_FailedDraftDoesNotStopThePass(t *testing.T) {
	sub := &fakeSubmitter{failOn: map[string]error{
		"b": apperr.OutOfBoundary("outside municipal boundaries"),
	}}
	r := NewReconciler(sub, logger.New("development"))

	outcomes, err := r.Reconcile(context.Background(), []Draft{
		draftAt("a", time.Minute),
		draftAt("b", 2*time.Minute),
		draftAt("c", 3*time.Minute),
	})
	if err != nil {
		t.Fatalf("expected pass to complete, got %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}

	failed := outcomes[1]
	if failed.SyncState != SyncStateFailed {
		t.Fatalf("expected b to fail, got %s", failed.SyncState)
	}
	if failed.ErrorCode != apperr.CodeOutOfBoundary {
		t.Fatalf("expected OutOfBoundary code, got %q", failed.ErrorCode)
	}
	if outcomes[2].SyncState != SyncStateSynced {
		t.Fatalf("expected c to still sync, got %s", outcomes[2].SyncState)
	}
	if len(sub.order) != 3 {
		t.Fatalf("expected all drafts replayed, got %d", len(sub.order))
	}
}

func TestReconcile_DuplicateReplayReported(t *testing.T) {
	sub := &fakeSubmitter{duplicate: map[string]bool{"a": true}}
	r := NewReconciler(sub, logger.New("development"))

	outcomes, err := r.Reconcile(context.Background(), []Draft{draftAt("a", 0)})
	if err != nil {
		t.Fatalf("expected pass to complete, got %v", err)
	}
	if outcomes[0].SyncState != SyncStateSynced || !outcomes[0].Duplicate {
		t.Fatalf("expected synced duplicate outcome, got %+v", outcomes[0])
	}
}

func TestReconcile_MissingLocalIDFails(t *testing.T) {
	sub := &fakeSubmitter{}
	r := NewReconciler(sub, logger.New("development"))

	outcomes, err := r.Reconcile(context.Background(), []Draft{{CreatedAtLocal: time.Now()}})
	if err != nil {
		t.Fatalf("expected pass to complete, got %v", err)
	}
	if outcomes[0].SyncState != SyncStateFailed {
		t.Fatalf("expected failed outcome, got %+v", outcomes[0])
	}
	if len(sub.order) != 0 {
		t.Fatal("expected no submission for a draft without localId")
	}
}

func TestReconcile_CancelledContextStopsPass(t *testing.T) {
	sub := &fakeSubmitter{}
	r := NewReconciler(sub, logger.New("development"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := r.Reconcile(ctx, []Draft{draftAt("a", 0), draftAt("b", time.Minute)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes after cancellation, got %d", len(outcomes))
	}
}

package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/internal/complaints/repository"
	"complaints_portal_backend/platform/apperr"
	"complaints_portal_backend/platform/logger"
)

// fakeRepo keeps complaints in memory and honors the guarded-update contract
// of ApplyTransition.
type fakeRepo struct {
	mu         sync.Mutex
	complaints map[uuid.UUID]*domain.Complaint
	conflictOn domain.Status // force ErrStatusConflict when transitioning to this status
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{complaints: make(map[uuid.UUID]*domain.Complaint)}
}

func (f *fakeRepo) add(status domain.Status) uuid.UUID {
	id := uuid.New()
	now := time.Now().UTC()
	f.complaints[id] = &domain.Complaint{
		ID:            id,
		Type:          domain.TypePothole,
		Status:        status,
		StatusHistory: []domain.HistoryEntry{{Status: status, At: now}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return id
}

func (f *fakeRepo) Create(ctx context.Context, p repository.CreateParams) (domain.Complaint, bool, error) {
	panic("not used")
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.complaints[id]
	if !ok {
		return domain.Complaint{}, apperr.NotFound("complaint not found")
	}
	return *c, nil
}

func (f *fakeRepo) List(ctx context.Context, filter repository.Filter) ([]domain.Complaint, error) {
	return nil, nil
}

func (f *fakeRepo) ApplyTransition(ctx context.Context, p repository.TransitionParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.complaints[p.ComplaintID]
	if !ok {
		return apperr.NotFound("complaint not found")
	}
	if f.conflictOn != "" && p.To == f.conflictOn {
		return repository.ErrStatusConflict
	}
	if c.Status != p.From {
		return repository.ErrStatusConflict
	}
	c.Status = p.To
	c.UpdatedAt = p.At
	if p.To == domain.StatusResolved {
		at := p.At
		c.ResolvedAt = &at
	}
	c.StatusHistory = append(c.StatusHistory, domain.HistoryEntry{
		Status:   p.To,
		At:       p.At,
		Metadata: p.Metadata,
	})
	return nil
}

func (f *fakeRepo) SetRouting(ctx context.Context, id uuid.UUID, r domain.Routing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.complaints[id]
	if !ok {
		return apperr.NotFound("complaint not found")
	}
	c.Routing = &r
	return nil
}

func (f *fakeRepo) ReplaceClassification(ctx context.Context, id uuid.UUID, cl domain.Classification) error {
	return nil
}

func (f *fakeRepo) RecordRoutingAttempt(ctx context.Context, rec repository.RoutingAttemptRecord) error {
	return nil
}

func (f *fakeRepo) CountRoutingAttempts(ctx context.Context, complaintID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeRepo) ClearExpiredClientRefs(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func TestTransition_AppendsHistoryEntry(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add(domain.StatusSubmitted)
	m := NewMachine(repo, logger.New("development"))

	updated, err := m.Transition(context.Background(), id, domain.StatusAssigned, map[string]string{
		domain.MetaDepartmentID: "dep-1",
	})
	if err != nil {
		t.Fatalf("expected transition to succeed, got %v", err)
	}
	if updated.Status != domain.StatusAssigned {
		t.Fatalf("expected status Assigned, got %s", updated.Status)
	}
	if len(updated.StatusHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(updated.StatusHistory))
	}
	last := updated.StatusHistory[1]
	if last.Status != domain.StatusAssigned {
		t.Fatalf("expected history entry Assigned, got %s", last.Status)
	}
	if last.Metadata[domain.MetaDepartmentID] != "dep-1" {
		t.Fatalf("expected metadata recorded on history entry, got %v", last.Metadata)
	}
}

func TestTransition_InvalidLeavesComplaintUnchanged(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add(domain.StatusSubmitted)
	m := NewMachine(repo, logger.New("development"))

	_, err := m.Transition(context.Background(), id, domain.StatusResolved, nil)
	if err == nil {
		t.Fatal("expected Submitted -> Resolved to be rejected")
	}
	if apperr.GetCode(err) != apperr.CodeInvalidTransition {
		t.Fatalf("expected InvalidTransition code, got %q", apperr.GetCode(err))
	}

	c, _ := repo.GetByID(context.Background(), id)
	if c.Status != domain.StatusSubmitted {
		t.Fatalf("expected status unchanged, got %s", c.Status)
	}
	if len(c.StatusHistory) != 1 {
		t.Fatalf("expected no history appended, got %d entries", len(c.StatusHistory))
	}
}

func TestTransition_TerminalStateRejected(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add(domain.StatusResolved)
	m := NewMachine(repo, logger.New("development"))

	_, err := m.Transition(context.Background(), id, domain.StatusAssigned, nil)
	if err == nil {
		t.Fatal("expected transition out of terminal state to fail")
	}
	if apperr.GetCode(err) != apperr.CodeInvalidTransition {
		t.Fatalf("expected InvalidTransition code, got %q", apperr.GetCode(err))
	}
}

func TestTransition_StoredConflictSurfacesAsInvalidTransition(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add(domain.StatusSubmitted)
	repo.conflictOn = domain.StatusAssigned
	m := NewMachine(repo, logger.New("development"))

	_, err := m.Transition(context.Background(), id, domain.StatusAssigned, nil)
	if err == nil {
		t.Fatal("expected conflict to surface")
	}
	if apperr.GetCode(err) != apperr.CodeInvalidTransition {
		t.Fatalf("expected InvalidTransition code, got %q", apperr.GetCode(err))
	}
}

func TestTransition_ResolvedStampsResolvedAt(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add(domain.StatusInProgress)
	m := NewMachine(repo, logger.New("development"))

	updated, err := m.Transition(context.Background(), id, domain.StatusResolved, nil)
	if err != nil {
		t.Fatalf("expected transition to succeed, got %v", err)
	}
	if updated.ResolvedAt == nil {
		t.Fatal("expected resolved_at to be stamped")
	}
}

func TestTransition_ConcurrentRequestsSerialize(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add(domain.StatusSubmitted)
	m := NewMachine(repo, logger.New("development"))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Transition(context.Background(), id, domain.StatusAssigned, nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if apperr.GetCode(err) != apperr.CodeInvalidTransition {
			t.Fatalf("expected loser to fail InvalidTransition, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one transition to win, got %d", succeeded)
	}

	c, _ := repo.GetByID(context.Background(), id)
	if len(c.StatusHistory) != 2 {
		t.Fatalf("expected exactly one history append, got %d entries", len(c.StatusHistory))
	}
}

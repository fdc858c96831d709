package routing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/internal/complaints/lifecycle"
	"complaints_portal_backend/internal/complaints/repository"
	"complaints_portal_backend/internal/departments"
	"complaints_portal_backend/internal/events"
	"complaints_portal_backend/platform/apperr"
	"complaints_portal_backend/platform/logger"
)

// fakeRepo is an in-memory ComplaintsRepository honoring the guarded update.
type fakeRepo struct {
	mu         sync.Mutex
	complaints map[uuid.UUID]*domain.Complaint
	attempts   []repository.RoutingAttemptRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{complaints: make(map[uuid.UUID]*domain.Complaint)}
}

func (f *fakeRepo) add(typ domain.Type, status domain.Status) uuid.UUID {
	id := uuid.New()
	now := time.Now().UTC()
	f.complaints[id] = &domain.Complaint{
		ID:            id,
		Type:          typ,
		Status:        status,
		StatusHistory: []domain.HistoryEntry{{Status: status, At: now}},
		Contact:       "citizen@example.test",
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
	if c.Status != p.From {
		return repository.ErrStatusConflict
	}
	c.Status = p.To
	c.StatusHistory = append(c.StatusHistory, domain.HistoryEntry{Status: p.To, At: p.At, Metadata: p.Metadata})
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
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, rec)
	return nil
}

func (f *fakeRepo) CountRoutingAttempts(ctx context.Context, complaintID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rec := range f.attempts {
		if rec.ComplaintID == complaintID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ClearExpiredClientRefs(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeStore struct {
	departments []departments.Department
}

func (f *fakeStore) ListAll(ctx context.Context) ([]departments.Department, error) {
	return f.departments, nil
}

func (f *fakeStore) Upsert(ctx context.Context, d departments.Department) (departments.Department, error) {
	f.departments = append(f.departments, d)
	return d, nil
}

// fakeWorkOrders fails the first failures calls, then succeeds.
type fakeWorkOrders struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *fakeWorkOrders) CreateWorkOrder(ctx context.Context, dept departments.Department, c domain.Complaint) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("department endpoint unavailable")
	}
	return "WO-" + c.ID.String()[:8], nil
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []time.Duration
	err       error
}

func (f *fakeScheduler) ScheduleRoutingAttempt(ctx context.Context, complaintID uuid.UUID, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.scheduled = append(f.scheduled, delay)
	return nil
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(eventName string, handler events.Handler) {}

func (b *recordingBus) byName(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type engineFixture struct {
	engine     *Engine
	repo       *fakeRepo
	workOrders *fakeWorkOrders
	scheduler  *fakeScheduler
	bus        *recordingBus
}

func newEngineFixture(t *testing.T, depts []departments.Department, workOrders *fakeWorkOrders) *engineFixture {
	t.Helper()
	log := logger.New("development")
	repo := newFakeRepo()
	machine := lifecycle.NewMachine(repo, log)

	registry, err := departments.NewRegistry(context.Background(), &fakeStore{departments: depts}, log)
	if err != nil {
		t.Fatalf("expected registry to load, got %v", err)
	}

	sched := &fakeScheduler{}
	bus := &recordingBus{}
	engine := NewEngine(registry, repo, machine, workOrders, sched, bus, time.Second, log)

	return &engineFixture{engine: engine, repo: repo, workOrders: workOrders, scheduler: sched, bus: bus}
}

func roadsDept() departments.Department {
	return departments.Department{
		ID:          uuid.New(),
		Type:        domain.TypePothole,
		Name:        "roads",
		EndpointURL: "http://roads.example.test",
		IsPrimary:   true,
		Priority:    10,
	}
}

func TestRoute_NoMappingEscalates(t *testing.T) {
	fx := newEngineFixture(t, nil, &fakeWorkOrders{})
	id := fx.repo.add(domain.TypeGraffiti, domain.StatusSubmitted)

	result, err := fx.engine.Route(context.Background(), id)
	if err != nil {
		t.Fatalf("expected route to complete, got %v", err)
	}
	if result.Status != ResultFailed || result.Reason != ReasonNoMapping {
		t.Fatalf("expected NoMapping failure, got %+v", result)
	}

	c, _ := fx.repo.GetByID(context.Background(), id)
	if c.Status != domain.StatusPendingManualRouting {
		t.Fatalf("expected PendingManualRouting, got %s", c.Status)
	}
	if alerts := fx.bus.byName("complaints.admin_routing_alert"); len(alerts) != 1 {
		t.Fatalf("expected exactly one admin alert, got %d", len(alerts))
	}
}

func TestRoute_InlineSuccessAssigns(t *testing.T) {
	fx := newEngineFixture(t, []departments.Department{roadsDept()}, &fakeWorkOrders{})
	id := fx.repo.add(domain.TypePothole, domain.StatusSubmitted)

	result, err := fx.engine.Route(context.Background(), id)
	if err != nil {
		t.Fatalf("expected route to succeed, got %v", err)
	}
	if result.Status != ResultRouted {
		t.Fatalf("expected routed, got %+v", result)
	}
	if result.WorkOrderID == "" {
		t.Fatal("expected a work order id")
	}

	c, _ := fx.repo.GetByID(context.Background(), id)
	if c.Status != domain.StatusAssigned {
		t.Fatalf("expected Assigned, got %s", c.Status)
	}
	if !c.HasRoute() {
		t.Fatal("expected routing block to be populated")
	}
	if got := fx.bus.byName("complaints.assigned"); len(got) != 1 {
		t.Fatalf("expected one assigned event, got %d", len(got))
	}
	if len(fx.repo.attempts) != 1 || fx.repo.attempts[0].Outcome != "success" {
		t.Fatalf("expected one successful attempt recorded, got %v", fx.repo.attempts)
	}
}

func TestRoute_InlineFailureQueuesRetryChain(t *testing.T) {
	fx := newEngineFixture(t, []departments.Department{roadsDept()}, &fakeWorkOrders{failures: 10})
	id := fx.repo.add(domain.TypePothole, domain.StatusSubmitted)

	result, err := fx.engine.Route(context.Background(), id)
	if err != nil {
		t.Fatalf("expected route to complete, got %v", err)
	}
	if result.Status != ResultQueued {
		t.Fatalf("expected queued, got %+v", result)
	}

	if len(fx.scheduler.scheduled) != 1 {
		t.Fatalf("expected one scheduled retry, got %d", len(fx.scheduler.scheduled))
	}
	if fx.scheduler.scheduled[0] != 5*time.Minute {
		t.Fatalf("expected 5m retry delay, got %v", fx.scheduler.scheduled[0])
	}

	c, _ := fx.repo.GetByID(context.Background(), id)
	if c.Status != domain.StatusSubmitted {
		t.Fatalf("expected complaint to stay Submitted while queued, got %s", c.Status)
	}
	if len(fx.repo.attempts) != 1 || fx.repo.attempts[0].Outcome != "failure" {
		t.Fatalf("expected one failed attempt recorded, got %v", fx.repo.attempts)
	}
}

func TestRoute_SchedulerUnavailableEscalates(t *testing.T) {
	fx := newEngineFixture(t, []departments.Department{roadsDept()}, &fakeWorkOrders{failures: 10})
	fx.scheduler.err = errors.New("redis down")
	id := fx.repo.add(domain.TypePothole, domain.StatusSubmitted)

	result, err := fx.engine.Route(context.Background(), id)
	if err != nil {
		t.Fatalf("expected route to complete, got %v", err)
	}
	if result.Status != ResultFailed || result.Reason != ReasonRoutingExhausted {
		t.Fatalf("expected exhausted failure, got %+v", result)
	}

	c, _ := fx.repo.GetByID(context.Background(), id)
	if c.Status != domain.StatusPendingManualRouting {
		t.Fatalf("expected PendingManualRouting, got %s", c.Status)
	}
}

func TestRunScheduledAttempt_SuccessAssigns(t *testing.T) {
	fx := newEngineFixture(t, []departments.Department{roadsDept()}, &fakeWorkOrders{})
	id := fx.repo.add(domain.TypePothole, domain.StatusSubmitted)

	if err := fx.engine.RunScheduledAttempt(context.Background(), id, 2, false); err != nil {
		t.Fatalf("expected attempt to succeed, got %v", err)
	}

	c, _ := fx.repo.GetByID(context.Background(), id)
	if c.Status != domain.StatusAssigned {
		t.Fatalf("expected Assigned, got %s", c.Status)
	}
}

func TestRunScheduledAttempt_NonFinalFailureReturnsError(t *testing.T) {
	fx := newEngineFixture(t, []departments.Department{roadsDept()}, &fakeWorkOrders{failures: 10})
	id := fx.repo.add(domain.TypePothole, domain.StatusSubmitted)

	err := fx.engine.RunScheduledAttempt(context.Background(), id, 2, false)
	if err == nil {
		t.Fatal("expected non-final failure to return the error for retry")
	}

	c, _ := fx.repo.GetByID(context.Background(), id)
	if c.Status != domain.StatusSubmitted {
		t.Fatalf("expected complaint untouched, got %s", c.Status)
	}
	if alerts := fx.bus.byName("complaints.admin_routing_alert"); len(alerts) != 0 {
		t.Fatalf("expected no alert before exhaustion, got %d", len(alerts))
	}
}

func TestRunScheduledAttempt_FinalFailureEscalatesOnce(t *testing.T) {
	fx := newEngineFixture(t, []departments.Department{roadsDept()}, &fakeWorkOrders{failures: 10})
	id := fx.repo.add(domain.TypePothole, domain.StatusSubmitted)

	if err := fx.engine.RunScheduledAttempt(context.Background(), id, 3, true); err != nil {
		t.Fatalf("expected final failure to be absorbed by escalation, got %v", err)
	}

	c, _ := fx.repo.GetByID(context.Background(), id)
	if c.Status != domain.StatusPendingManualRouting {
		t.Fatalf("expected PendingManualRouting, got %s", c.Status)
	}
	alerts := fx.bus.byName("complaints.admin_routing_alert")
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one admin alert, got %d", len(alerts))
	}
	alert := alerts[0].(events.AdminRoutingAlert)
	if !strings.Contains(alert.Detail, "1 recorded attempts") {
		t.Fatalf("expected audited attempt count in alert detail, got %q", alert.Detail)
	}
	if pending := fx.bus.byName("complaints.pending_manual_routing"); len(pending) != 1 {
		t.Fatalf("expected exactly one pending event, got %d", len(pending))
	}
}

func TestRunScheduledAttempt_SkipsNonRoutableComplaint(t *testing.T) {
	workOrders := &fakeWorkOrders{}
	fx := newEngineFixture(t, []departments.Department{roadsDept()}, workOrders)
	id := fx.repo.add(domain.TypePothole, domain.StatusResolved)

	if err := fx.engine.RunScheduledAttempt(context.Background(), id, 2, true); err != nil {
		t.Fatalf("expected skip to succeed, got %v", err)
	}
	if workOrders.calls != 0 {
		t.Fatalf("expected no work-order attempt for resolved complaint, got %d", workOrders.calls)
	}
}

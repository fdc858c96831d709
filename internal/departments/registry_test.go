package departments

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/platform/logger"
)

type fakeStore struct {
	departments []Department
}

func (f *fakeStore) ListAll(ctx context.Context) ([]Department, error) {
	out := make([]Department, len(f.departments))
	copy(out, f.departments)
	return out, nil
}

func (f *fakeStore) Upsert(ctx context.Context, d Department) (Department, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	for i, existing := range f.departments {
		if existing.Type == d.Type && existing.Name == d.Name {
			d.ID = existing.ID
			f.departments[i] = d
			return d, nil
		}
	}
	f.departments = append(f.departments, d)
	return d, nil
}

func dept(t domain.Type, name string, primary bool, priority int) Department {
	return Department{
		ID:          uuid.New(),
		Type:        t,
		Name:        name,
		EndpointURL: "http://example.test/" + name,
		IsPrimary:   primary,
		Priority:    priority,
	}
}

func newTestRegistry(t *testing.T, store *fakeStore) *Registry {
	t.Helper()
	r, err := NewRegistry(context.Background(), store, logger.New("development"))
	if err != nil {
		t.Fatalf("expected registry to load, got %v", err)
	}
	return r
}

func TestResolve_PrimaryFirstThenPriority(t *testing.T) {
	store := &fakeStore{departments: []Department{
		dept(domain.TypePothole, "roads-backup", false, 10),
		dept(domain.TypePothole, "roads", true, 20),
		dept(domain.TypePothole, "roads-overflow", false, 30),
	}}
	r := newTestRegistry(t, store)

	got := r.Resolve(domain.TypePothole)
	if len(got) != 3 {
		t.Fatalf("expected 3 departments, got %d", len(got))
	}
	if got[0].Name != "roads" {
		t.Fatalf("expected primary first, got %q", got[0].Name)
	}
	if got[1].Name != "roads-backup" || got[2].Name != "roads-overflow" {
		t.Fatalf("expected remaining order by priority, got %q, %q", got[1].Name, got[2].Name)
	}
}

func TestResolve_MultiplePrimariesPicksLowestPriority(t *testing.T) {
	store := &fakeStore{departments: []Department{
		dept(domain.TypeGarbage, "sanitation-b", true, 20),
		dept(domain.TypeGarbage, "sanitation-a", true, 10),
	}}
	r := newTestRegistry(t, store)

	got := r.Resolve(domain.TypeGarbage)
	if len(got) != 2 {
		t.Fatalf("expected 2 departments, got %d", len(got))
	}
	if got[0].Name != "sanitation-a" {
		t.Fatalf("expected lowest-priority primary to win, got %q", got[0].Name)
	}
}

func TestResolve_UnmappedTypeYieldsEmptyList(t *testing.T) {
	store := &fakeStore{departments: []Department{
		dept(domain.TypePothole, "roads", true, 10),
	}}
	r := newTestRegistry(t, store)

	if got := r.Resolve(domain.TypeGraffiti); len(got) != 0 {
		t.Fatalf("expected empty list for unmapped type, got %d entries", len(got))
	}
}

func TestUpsert_InstallsFreshSnapshot(t *testing.T) {
	store := &fakeStore{departments: []Department{
		dept(domain.TypePothole, "roads", true, 10),
	}}
	r := newTestRegistry(t, store)
	before := r.Version()

	stored, err := r.Upsert(context.Background(), Department{
		Type:        domain.TypeGraffiti,
		Name:        "cleaning",
		EndpointURL: "http://example.test/cleaning",
		IsPrimary:   true,
		Priority:    10,
	})
	if err != nil {
		t.Fatalf("expected upsert to succeed, got %v", err)
	}
	if stored.ID == uuid.Nil {
		t.Fatal("expected stored department to receive an id")
	}

	if r.Version() <= before {
		t.Fatalf("expected snapshot version to advance past %d, got %d", before, r.Version())
	}
	if got := r.Resolve(domain.TypeGraffiti); len(got) != 1 || got[0].Name != "cleaning" {
		t.Fatalf("expected new mapping to resolve, got %v", got)
	}
}

func TestGet_ResolvesFromSnapshot(t *testing.T) {
	d := dept(domain.TypePothole, "roads", true, 10)
	store := &fakeStore{departments: []Department{d}}
	r := newTestRegistry(t, store)

	got, ok := r.Get(d.ID)
	if !ok {
		t.Fatal("expected department lookup to succeed")
	}
	if got.Name != "roads" {
		t.Fatalf("expected roads, got %q", got.Name)
	}

	if _, ok := r.Get(uuid.New()); ok {
		t.Fatal("expected unknown id to miss")
	}
}

func TestResolve_ReturnsCopy(t *testing.T) {
	store := &fakeStore{departments: []Department{
		dept(domain.TypePothole, "roads", true, 10),
	}}
	r := newTestRegistry(t, store)

	first := r.Resolve(domain.TypePothole)
	first[0].Name = "mutated"

	second := r.Resolve(domain.TypePothole)
	if second[0].Name != "roads" {
		t.Fatalf("expected snapshot isolation, got %q", second[0].Name)
	}
}

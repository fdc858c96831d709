// Package departments provides the department registry: the mapping from
// complaint type to the departments that can handle it.
package departments

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/platform/logger"
)

// Department is a work-order target owned by the registry. Routing results
// reference departments by ID only; the registry resolves them at read time.
type Department struct {
	ID          uuid.UUID   `json:"id"`
	Type        domain.Type `json:"type"`
	Name        string      `json:"name"`
	EndpointURL string      `json:"endpointUrl"`
	IsPrimary   bool        `json:"isPrimary"`
	Priority    int         `json:"priority"`
}

// snapshot is one immutable registry generation. Readers always see a whole
// generation, never a partially applied update.
type snapshot struct {
	version  uint64
	byType   map[domain.Type][]Department
	byID     map[uuid.UUID]Department
	allOrder []Department
}

// Registry serves read-mostly department lookups from an atomically swapped
// snapshot rebuilt from the store on every write.
type Registry struct {
	store   DepartmentStore
	log     *logger.Logger
	current atomic.Pointer[snapshot]
	version atomic.Uint64
}

// DepartmentStore is the persistence contract backing the registry.
type DepartmentStore interface {
	ListAll(ctx context.Context) ([]Department, error)
	Upsert(ctx context.Context, d Department) (Department, error)
}

// NewRegistry creates the registry and loads the initial snapshot.
func NewRegistry(ctx context.Context, store DepartmentStore, log *logger.Logger) (*Registry, error) {
	r := &Registry{store: store, log: log}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload rebuilds the snapshot from the store and swaps it in atomically.
func (r *Registry) Reload(ctx context.Context) error {
	all, err := r.store.ListAll(ctx)
	if err != nil {
		return err
	}
	r.install(all)
	return nil
}

func (r *Registry) install(all []Department) {
	snap := &snapshot{
		version:  r.version.Add(1),
		byType:   make(map[domain.Type][]Department),
		byID:     make(map[uuid.UUID]Department, len(all)),
		allOrder: all,
	}

	for _, d := range all {
		snap.byType[d.Type] = append(snap.byType[d.Type], d)
		snap.byID[d.ID] = d
	}

	for t, list := range snap.byType {
		snap.byType[t] = r.orderForType(t, list)
	}

	r.current.Store(snap)
}

// orderForType produces the resolution order: priority ascending with the
// effective primary first. Multiple primaries are a configuration error
// resolved deterministically to the lowest priority value; the lookup never
// fails because of it.
func (r *Registry) orderForType(t domain.Type, list []Department) []Department {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Priority < list[j].Priority
	})

	primaryIdx := -1
	primaryCount := 0
	for i, d := range list {
		if d.IsPrimary {
			primaryCount++
			if primaryIdx == -1 {
				primaryIdx = i // lowest priority value, list already sorted
			}
		}
	}

	if primaryCount > 1 {
		r.log.Warn("multiple primary departments configured",
			"type", string(t),
			"primaries", primaryCount,
			"effective", list[primaryIdx].Name)
	}

	if primaryIdx > 0 {
		primary := list[primaryIdx]
		rest := append([]Department{}, list[:primaryIdx]...)
		rest = append(rest, list[primaryIdx+1:]...)
		list = append([]Department{primary}, rest...)
	}

	return list
}

// Resolve returns the departments for a complaint type in routing order.
// An unmapped type yields an empty list, distinct from a transient failure.
func (r *Registry) Resolve(t domain.Type) []Department {
	snap := r.current.Load()
	list := snap.byType[t]
	out := make([]Department, len(list))
	copy(out, list)
	return out
}

// Get resolves a department by ID from the current snapshot.
func (r *Registry) Get(id uuid.UUID) (Department, bool) {
	snap := r.current.Load()
	d, ok := snap.byID[id]
	return d, ok
}

// ListAll returns every configured department from the current snapshot.
func (r *Registry) ListAll() []Department {
	snap := r.current.Load()
	out := make([]Department, len(snap.allOrder))
	copy(out, snap.allOrder)
	return out
}

// Version returns the current snapshot generation, for diagnostics.
func (r *Registry) Version() uint64 {
	return r.current.Load().version
}

// Upsert writes the mapping through the store and installs a fresh snapshot.
func (r *Registry) Upsert(ctx context.Context, d Department) (Department, error) {
	stored, err := r.store.Upsert(ctx, d)
	if err != nil {
		return Department{}, err
	}
	if err := r.Reload(ctx); err != nil {
		return Department{}, err
	}
	return stored, nil
}

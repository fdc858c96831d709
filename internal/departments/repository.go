package departments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"complaints_portal_backend/internal/complaints/domain"
)

// Repo implements DepartmentStore with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo creates a new departments repository.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements DepartmentStore.
var _ DepartmentStore = (*Repo)(nil)

// ListAll retrieves every configured department ordered by type and priority.
func (r *Repo) ListAll(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, type, name, endpoint_url, is_primary, priority
		 FROM departments
		 ORDER BY type ASC, priority ASC`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var (
			d       Department
			typeStr string
		)
		if err := rows.Scan(&d.ID, &typeStr, &d.Name, &d.EndpointURL, &d.IsPrimary, &d.Priority); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		d.Type = domain.Type(typeStr)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Upsert inserts or updates a department keyed by (type, name).
func (r *Repo) Upsert(ctx context.Context, d Department) (Department, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO departments (id, type, name, endpoint_url, is_primary, priority)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (type, name) DO UPDATE
		 SET endpoint_url = EXCLUDED.endpoint_url,
		     is_primary = EXCLUDED.is_primary,
		     priority = EXCLUDED.priority,
		     updated_at = now()
		 RETURNING id`,
		d.ID, string(d.Type), d.Name, d.EndpointURL, d.IsPrimary, d.Priority,
	).Scan(&d.ID)
	if err != nil {
		return Department{}, fmt.Errorf("upsert department: %w", err)
	}
	return d, nil
}

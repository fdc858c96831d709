package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/platform/apperr"
)

const complaintNotFoundMessage = "complaint not found"

// Repo implements ComplaintsRepository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new complaints repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements ComplaintsRepository.
var _ ComplaintsRepository = (*Repo)(nil)

const complaintColumns = `id, COALESCE(client_ref, ''), type, classification, location, status, routing, photo_ref, contact, created_at, updated_at, resolved_at`

// Create inserts the complaint and its initial Submitted history entry in one
// transaction. A conflicting client_ref returns the stored complaint instead.
func (r *Repo) Create(ctx context.Context, p CreateParams) (domain.Complaint, bool, error) {
	classJSON, err := json.Marshal(p.Classification)
	if err != nil {
		return domain.Complaint{}, false, fmt.Errorf("marshal classification: %w", err)
	}
	locJSON, err := json.Marshal(p.Location)
	if err != nil {
		return domain.Complaint{}, false, fmt.Errorf("marshal location: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Complaint{}, false, fmt.Errorf("begin create complaint: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var clientRef *string
	if p.ClientRef != "" {
		clientRef = &p.ClientRef
	}

	id := uuid.New()
	now := time.Now().UTC()

	tag, err := tx.Exec(ctx,
		`INSERT INTO complaints (id, client_ref, type, classification, location, status, photo_ref, contact, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		 ON CONFLICT (client_ref) WHERE client_ref IS NOT NULL DO NOTHING`,
		id, clientRef, string(p.Type), classJSON, locJSON, string(domain.StatusSubmitted), p.PhotoRef, p.Contact, now,
	)
	if err != nil {
		return domain.Complaint{}, false, fmt.Errorf("insert complaint: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Duplicate localId: hand back the original submission.
		existing, err := r.findByClientRefTx(ctx, tx, p.ClientRef)
		if err != nil {
			return domain.Complaint{}, false, err
		}
		if err := tx.Commit(ctx); err != nil {
			return domain.Complaint{}, false, fmt.Errorf("commit duplicate lookup: %w", err)
		}
		// Re-read through GetByID so the duplicate carries its status history
		// like any other returned aggregate.
		full, err := r.GetByID(ctx, existing.ID)
		if err != nil {
			return domain.Complaint{}, false, err
		}
		return full, false, nil
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO complaint_status_history (complaint_id, status, at) VALUES ($1, $2, $3)`,
		id, string(domain.StatusSubmitted), now,
	)
	if err != nil {
		return domain.Complaint{}, false, fmt.Errorf("insert initial history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Complaint{}, false, fmt.Errorf("commit create complaint: %w", err)
	}

	return domain.Complaint{
		ID:             id,
		ClientRef:      p.ClientRef,
		Type:           p.Type,
		Classification: p.Classification,
		Location:       p.Location,
		Status:         domain.StatusSubmitted,
		StatusHistory:  []domain.HistoryEntry{{Status: domain.StatusSubmitted, At: now}},
		PhotoRef:       p.PhotoRef,
		Contact:        p.Contact,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, true, nil
}

// GetByID retrieves a complaint with its full status history.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Complaint, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, id)

	c, err := scanComplaint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Complaint{}, apperr.NotFound(complaintNotFoundMessage)
		}
		return domain.Complaint{}, fmt.Errorf("get complaint by id: %w", err)
	}

	history, err := r.loadHistory(ctx, id)
	if err != nil {
		return domain.Complaint{}, err
	}
	c.StatusHistory = history
	return c, nil
}

func (r *Repo) findByClientRefTx(ctx context.Context, tx pgx.Tx, clientRef string) (domain.Complaint, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE client_ref = $1`, clientRef)

	c, err := scanComplaint(row)
	if err != nil {
		return domain.Complaint{}, fmt.Errorf("find complaint by client ref: %w", err)
	}
	return c, nil
}

// List applies the conjunctive dashboard filters. Results are ordered by
// creation time descending; pagination is a presentation concern.
func (r *Repo) List(ctx context.Context, f Filter) ([]domain.Complaint, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <= $%d", f.To)
	}
	if f.DepartmentID != uuid.Nil {
		add("routing->>'departmentId' = $%d", f.DepartmentID.String())
	}

	query := `SELECT ` + complaintColumns + ` FROM complaints`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	var out []domain.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ApplyTransition performs the guarded status update and history append.
func (r *Repo) ApplyTransition(ctx context.Context, p TransitionParams) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var tag pgconnCommandTag
	if p.To == domain.StatusResolved {
		tag, err = tx.Exec(ctx,
			`UPDATE complaints SET status = $1, resolved_at = $2, updated_at = $2 WHERE id = $3 AND status = $4`,
			string(p.To), p.At, p.ComplaintID, string(p.From))
	} else {
		tag, err = tx.Exec(ctx,
			`UPDATE complaints SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
			string(p.To), p.At, p.ComplaintID, string(p.From))
	}
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}

	var metaJSON []byte
	if len(p.Metadata) > 0 {
		metaJSON, err = json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("marshal history metadata: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO complaint_status_history (complaint_id, status, at, metadata) VALUES ($1, $2, $3, $4)`,
		p.ComplaintID, string(p.To), p.At, metaJSON)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	return tx.Commit(ctx)
}

// SetRouting populates or re-populates the routing block.
func (r *Repo) SetRouting(ctx context.Context, id uuid.UUID, routing domain.Routing) error {
	routingJSON, err := json.Marshal(routing)
	if err != nil {
		return fmt.Errorf("marshal routing: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE complaints SET routing = $1, updated_at = $2 WHERE id = $3`,
		routingJSON, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set routing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(complaintNotFoundMessage)
	}
	return nil
}

// ReplaceClassification swaps the classification and denormalized type.
func (r *Repo) ReplaceClassification(ctx context.Context, id uuid.UUID, c domain.Classification) error {
	classJSON, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal classification: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE complaints SET classification = $1, type = $2, updated_at = $3 WHERE id = $4`,
		classJSON, string(c.Type), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("replace classification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(complaintNotFoundMessage)
	}
	return nil
}

// RecordRoutingAttempt appends one audit row for a work-order attempt.
func (r *Repo) RecordRoutingAttempt(ctx context.Context, rec RoutingAttemptRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO routing_attempts (complaint_id, department_id, attempt, scheduled_at, outcome, detail)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ComplaintID, rec.DepartmentID, rec.Attempt, rec.ScheduledAt, rec.Outcome, rec.Detail)
	if err != nil {
		return fmt.Errorf("record routing attempt: %w", err)
	}
	return nil
}

// CountRoutingAttempts returns the number of recorded attempts for a complaint.
func (r *Repo) CountRoutingAttempts(ctx context.Context, complaintID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM routing_attempts WHERE complaint_id = $1`, complaintID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count routing attempts: %w", err)
	}
	return n, nil
}

// ClearExpiredClientRefs releases idempotency keys past the retention window.
func (r *Repo) ClearExpiredClientRefs(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE complaints SET client_ref = NULL WHERE client_ref IS NOT NULL AND created_at < $1`,
		before)
	if err != nil {
		return 0, fmt.Errorf("clear expired client refs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repo) loadHistory(ctx context.Context, id uuid.UUID) ([]domain.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, at, metadata FROM complaint_status_history WHERE complaint_id = $1 ORDER BY at ASC, id ASC`,
		id)
	if err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	defer rows.Close()

	var history []domain.HistoryEntry
	for rows.Next() {
		var (
			entry    domain.HistoryEntry
			status   string
			metaJSON []byte
		)
		if err := rows.Scan(&status, &entry.At, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.Status = domain.Status(status)
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal history metadata: %w", err)
			}
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

// pgconnCommandTag narrows pgconn.CommandTag to what this file needs.
type pgconnCommandTag interface {
	RowsAffected() int64
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComplaint(row rowScanner) (domain.Complaint, error) {
	var (
		c           domain.Complaint
		typeStr     string
		statusStr   string
		classJSON   []byte
		locJSON     []byte
		routingJSON []byte
	)

	err := row.Scan(&c.ID, &c.ClientRef, &typeStr, &classJSON, &locJSON, &statusStr,
		&routingJSON, &c.PhotoRef, &c.Contact, &c.CreatedAt, &c.UpdatedAt, &c.ResolvedAt)
	if err != nil {
		return domain.Complaint{}, err
	}

	c.Type = domain.Type(typeStr)
	c.Status = domain.Status(statusStr)

	if err := json.Unmarshal(classJSON, &c.Classification); err != nil {
		return domain.Complaint{}, fmt.Errorf("unmarshal classification: %w", err)
	}
	if err := json.Unmarshal(locJSON, &c.Location); err != nil {
		return domain.Complaint{}, fmt.Errorf("unmarshal location: %w", err)
	}
	if len(routingJSON) > 0 {
		var routing domain.Routing
		if err := json.Unmarshal(routingJSON, &routing); err != nil {
			return domain.Complaint{}, fmt.Errorf("unmarshal routing: %w", err)
		}
		c.Routing = &routing
	}

	return c, nil
}

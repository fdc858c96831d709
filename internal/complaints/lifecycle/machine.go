// Package lifecycle owns complaint status and status history. It is the only
// writer of both; routing, reclassification, and administrative actions all
// go through Machine.Transition.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/internal/complaints/repository"
	"complaints_portal_backend/platform/apperr"
	"complaints_portal_backend/platform/logger"
	"complaints_portal_backend/platform/metrics"
)

// Machine serializes status transitions per complaint. Concurrent requests
// for the same complaint apply one at a time; the later request either
// applies cleanly atop the now-current state or fails InvalidTransition.
// The lock covers only the in-memory validation and the guarded update, never
// external collaborator calls.
type Machine struct {
	repo repository.ComplaintsRepository
	log  *logger.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewMachine creates the lifecycle machine.
func NewMachine(repo repository.ComplaintsRepository, log *logger.Logger) *Machine {
	return &Machine{
		repo:  repo,
		log:   log,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (m *Machine) lockFor(id uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

// releaseIfIdle drops the per-complaint lock entry once the complaint is
// terminal so the map does not grow without bound.
func (m *Machine) releaseIfTerminal(id uuid.UUID, status domain.Status) {
	if !domain.IsTerminal(status) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, id)
}

// Transition moves the complaint to target, appending exactly one history
// entry with a server-assigned timestamp. Metadata is recorded verbatim on
// the history entry. Transitions out of terminal states and transitions not
// in the lifecycle table fail with InvalidTransition and leave the complaint
// unchanged.
func (m *Machine) Transition(ctx context.Context, id uuid.UUID, target domain.Status, metadata map[string]string) (domain.Complaint, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	current, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Complaint{}, err
	}

	if err := domain.ValidateTransition(current.Status, target); err != nil {
		return domain.Complaint{}, err
	}

	now := time.Now().UTC()
	err = m.repo.ApplyTransition(ctx, repository.TransitionParams{
		ComplaintID: id,
		From:        current.Status,
		To:          target,
		At:          now,
		Metadata:    metadata,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Stored state moved underneath us despite the keyed lock
			// (e.g. another process). Surface as InvalidTransition.
			return domain.Complaint{}, apperr.InvalidTransition(
				fmt.Sprintf("complaint %s changed concurrently", id))
		}
		return domain.Complaint{}, err
	}

	m.log.StatusTransition(id.String(), string(current.Status), string(target))
	metrics.StatusTransition(string(current.Status), string(target))
	m.releaseIfTerminal(id, target)

	updated, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Complaint{}, err
	}
	return updated, nil
}

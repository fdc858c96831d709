package domain

import (
	"fmt"

	"complaints_portal_backend/platform/apperr"
)

// Status is the closed set of lifecycle states.
type Status string

const (
	StatusSubmitted            Status = "Submitted"
	StatusAssigned             Status = "Assigned"
	StatusInProgress           Status = "InProgress"
	StatusResolved             Status = "Resolved"
	StatusRejected             Status = "Rejected"
	StatusPendingManualRouting Status = "PendingManualRouting"
)

// transitions is the full lifecycle graph. Terminal states have no entry.
var transitions = map[Status][]Status{
	StatusSubmitted:            {StatusAssigned, StatusPendingManualRouting, StatusRejected},
	StatusAssigned:             {StatusInProgress, StatusPendingManualRouting},
	StatusInProgress:           {StatusResolved, StatusPendingManualRouting},
	StatusPendingManualRouting: {StatusAssigned, StatusRejected},
}

// IsKnownStatus reports whether s is a member of the closed status set.
func IsKnownStatus(s Status) bool {
	switch s {
	case StatusSubmitted, StatusAssigned, StatusInProgress,
		StatusResolved, StatusRejected, StatusPendingManualRouting:
		return true
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s Status) bool {
	return s == StatusResolved || s == StatusRejected
}

// AllowedTargets returns the transition targets for s, empty for terminal states.
func AllowedTargets(s Status) []Status {
	targets := transitions[s]
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether from → to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an InvalidTransition error when from → to is not
// allowed. The error distinguishes terminal-state rejections in its message.
func ValidateTransition(from, to Status) error {
	if !IsKnownStatus(to) {
		return apperr.InvalidTransition(fmt.Sprintf("unknown status %q", to))
	}
	if IsTerminal(from) {
		return apperr.InvalidTransition(fmt.Sprintf("status %s is terminal", from))
	}
	if !CanTransition(from, to) {
		return apperr.InvalidTransition(fmt.Sprintf("transition %s -> %s is not allowed", from, to))
	}
	return nil
}

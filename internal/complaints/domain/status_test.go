package domain

import (
	"testing"

	"complaints_portal_backend/platform/apperr"
)

func TestCanTransition_LifecycleGraph(t *testing.T) {
	allowed := []struct {
		from, to Status
	}{
		{StatusSubmitted, StatusAssigned},
		{StatusSubmitted, StatusPendingManualRouting},
		{StatusSubmitted, StatusRejected},
		{StatusAssigned, StatusInProgress},
		{StatusAssigned, StatusPendingManualRouting},
		{StatusInProgress, StatusResolved},
		{StatusInProgress, StatusPendingManualRouting},
		{StatusPendingManualRouting, StatusAssigned},
		{StatusPendingManualRouting, StatusRejected},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from, to Status
	}{
		{StatusSubmitted, StatusResolved},
		{StatusSubmitted, StatusInProgress},
		{StatusAssigned, StatusRejected},
		{StatusAssigned, StatusSubmitted},
		{StatusInProgress, StatusRejected},
		{StatusPendingManualRouting, StatusResolved},
		{StatusResolved, StatusSubmitted},
		{StatusRejected, StatusAssigned},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(StatusResolved) || !IsTerminal(StatusRejected) {
		t.Fatal("expected Resolved and Rejected to be terminal")
	}
	for _, s := range []Status{StatusSubmitted, StatusAssigned, StatusInProgress, StatusPendingManualRouting} {
		if IsTerminal(s) {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestValidateTransition_TerminalState(t *testing.T) {
	err := ValidateTransition(StatusResolved, StatusAssigned)
	if err == nil {
		t.Fatal("expected error for transition out of terminal state")
	}
	if apperr.GetCode(err) != apperr.CodeInvalidTransition {
		t.Fatalf("expected InvalidTransition code, got %q", apperr.GetCode(err))
	}
}

func TestValidateTransition_UnknownTarget(t *testing.T) {
	err := ValidateTransition(StatusSubmitted, Status("Escalated"))
	if err == nil {
		t.Fatal("expected error for unknown target status")
	}
	if apperr.GetCode(err) != apperr.CodeInvalidTransition {
		t.Fatalf("expected InvalidTransition code, got %q", apperr.GetCode(err))
	}
}

func TestValidateTransition_Allowed(t *testing.T) {
	if err := ValidateTransition(StatusSubmitted, StatusAssigned); err != nil {
		t.Fatalf("expected Submitted -> Assigned to validate, got %v", err)
	}
}

func TestDeriveManualReview_Threshold(t *testing.T) {
	if !DeriveManualReview(0.69) {
		t.Error("expected confidence 0.69 to require manual review")
	}
	if DeriveManualReview(0.70) {
		t.Error("expected confidence 0.70 to not require manual review")
	}
	if DeriveManualReview(0.95) {
		t.Error("expected confidence 0.95 to not require manual review")
	}
}

func TestIsKnownType(t *testing.T) {
	for _, typ := range AllTypes() {
		if !IsKnownType(typ) {
			t.Errorf("expected %s to be known", typ)
		}
	}
	if IsKnownType(Type("noise")) {
		t.Error("expected unknown type to be rejected")
	}
}

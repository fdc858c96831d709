package notification

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/events"
	"complaints_portal_backend/internal/notification/outbox"
	"complaints_portal_backend/platform/logger"
)

type testEmailConfig struct{}

func (testEmailConfig) GetEmailEnabled() bool       { return true }
func (testEmailConfig) GetSMTPHost() string         { return "smtp.example.test" }
func (testEmailConfig) GetSMTPPort() int            { return 587 }
func (testEmailConfig) GetSMTPUsername() string     { return "" }
func (testEmailConfig) GetSMTPPassword() string     { return "" }
func (testEmailConfig) GetEmailFromName() string    { return "Complaint Portal" }
func (testEmailConfig) GetEmailFromAddress() string { return "portal@example.test" }
func (testEmailConfig) GetAdminAlertEmail() string  { return "admin@example.test" }

type testSender struct {
	receivedCalls int
	assignedCalls int
	resolvedCalls int
	rejectedCalls int
	inReviewCalls int
	alertCalls    int
}

func (s *testSender) SendComplaintReceivedEmail(context.Context, string, string, string) error {
	s.receivedCalls++
	return nil
}

func (s *testSender) SendComplaintAssignedEmail(context.Context, string, string, string) error {
	s.assignedCalls++
	return nil
}

func (s *testSender) SendComplaintResolvedEmail(context.Context, string, string) error {
	s.resolvedCalls++
	return nil
}

func (s *testSender) SendComplaintRejectedEmail(context.Context, string, string, string) error {
	s.rejectedCalls++
	return nil
}

func (s *testSender) SendComplaintInReviewEmail(context.Context, string, string) error {
	s.inReviewCalls++
	return nil
}

func (s *testSender) SendManualRoutingAlertEmail(context.Context, string, string, string, string) error {
	s.alertCalls++
	return nil
}

func mustPayload(t *testing.T, p emailOutboxPayload) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("expected payload to marshal, got %v", err)
	}
	return raw
}

func TestHandlePendingManualRoutingWithoutContactIsDropped(t *testing.T) {
	sender := &testSender{}
	m := New(sender, nil, testEmailConfig{}, logger.New("development"))

	err := m.Handle(context.Background(), events.ComplaintPendingManualRouting{
		BaseEvent:   events.NewBaseEvent(),
		ComplaintID: uuid.New(),
		Reason:      "NoMapping",
	})
	if err != nil {
		t.Fatalf("expected contactless event to be dropped, got %v", err)
	}
	if sender.inReviewCalls != 0 {
		t.Fatalf("expected no direct delivery, got %d calls", sender.inReviewCalls)
	}
}

func TestDeliverDispatchesInReviewTemplate(t *testing.T) {
	sender := &testSender{}
	m := New(sender, nil, testEmailConfig{}, logger.New("development"))

	err := m.deliver(context.Background(), outbox.Record{
		ID:       uuid.New(),
		Kind:     kindEmail,
		Template: templateComplaintInReview,
		Payload: mustPayload(t, emailOutboxPayload{
			ToEmail:      "citizen@example.test",
			ComplaintRef: uuid.New().String(),
		}),
	})
	if err != nil {
		t.Fatalf("expected delivery to succeed, got %v", err)
	}
	if sender.inReviewCalls != 1 {
		t.Fatalf("expected one in-review email, got %d", sender.inReviewCalls)
	}
}

func TestDeliverRejectsUnknownTemplate(t *testing.T) {
	sender := &testSender{}
	m := New(sender, nil, testEmailConfig{}, logger.New("development"))

	err := m.deliver(context.Background(), outbox.Record{
		ID:       uuid.New(),
		Kind:     kindEmail,
		Template: "no_such_template",
		Payload:  mustPayload(t, emailOutboxPayload{ToEmail: "citizen@example.test"}),
	})
	if err == nil {
		t.Fatal("expected unknown template to fail delivery")
	}
}

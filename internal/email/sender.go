// Package email renders and delivers the citizen and administrator emails of
// the complaint lifecycle.
package email

import "context"

// Sender delivers the lifecycle emails. Implementations render the embedded
// HTML templates and deliver over SMTP.
type Sender interface {
	SendComplaintReceivedEmail(ctx context.Context, toEmail, complaintRef, complaintType string) error
	SendComplaintAssignedEmail(ctx context.Context, toEmail, complaintRef, departmentName string) error
	SendComplaintResolvedEmail(ctx context.Context, toEmail, complaintRef string) error
	SendComplaintRejectedEmail(ctx context.Context, toEmail, complaintRef, reason string) error
	SendComplaintInReviewEmail(ctx context.Context, toEmail, complaintRef string) error
	SendManualRoutingAlertEmail(ctx context.Context, toEmail, complaintRef, reason, detail string) error
}

// NoopSender drops every email. Used in development when SMTP is not
// configured.
type NoopSender struct{}

func (NoopSender) SendComplaintReceivedEmail(ctx context.Context, toEmail, complaintRef, complaintType string) error {
	return nil
}

func (NoopSender) SendComplaintAssignedEmail(ctx context.Context, toEmail, complaintRef, departmentName string) error {
	return nil
}

func (NoopSender) SendComplaintResolvedEmail(ctx context.Context, toEmail, complaintRef string) error {
	return nil
}

func (NoopSender) SendComplaintRejectedEmail(ctx context.Context, toEmail, complaintRef, reason string) error {
	return nil
}

func (NoopSender) SendComplaintInReviewEmail(ctx context.Context, toEmail, complaintRef string) error {
	return nil
}

func (NoopSender) SendManualRoutingAlertEmail(ctx context.Context, toEmail, complaintRef, reason, detail string) error {
	return nil
}

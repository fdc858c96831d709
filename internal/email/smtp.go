package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers lifecycle emails over a direct SMTP connection via
// go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates an SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

var _ Sender = (*SMTPSender)(nil)

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendComplaintReceivedEmail(ctx context.Context, toEmail, complaintRef, complaintType string) error {
	content, err := renderEmailTemplate("complaint_received.html", complaintReceivedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Complaint received",
			Heading: "We received your complaint",
		},
		ComplaintRef:  complaintRef,
		ComplaintType: complaintType,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectComplaintReceivedFmt, complaintRef), content)
}

func (s *SMTPSender) SendComplaintAssignedEmail(ctx context.Context, toEmail, complaintRef, departmentName string) error {
	content, err := renderEmailTemplate("complaint_assigned.html", complaintAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Complaint assigned",
			Heading: "Your complaint has been assigned",
		},
		ComplaintRef:   complaintRef,
		DepartmentName: departmentName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectComplaintAssignedFmt, complaintRef), content)
}

func (s *SMTPSender) SendComplaintResolvedEmail(ctx context.Context, toEmail, complaintRef string) error {
	content, err := renderEmailTemplate("complaint_resolved.html", complaintResolvedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Complaint resolved",
			Heading: "Your complaint has been resolved",
		},
		ComplaintRef: complaintRef,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectComplaintResolvedFmt, complaintRef), content)
}

func (s *SMTPSender) SendComplaintRejectedEmail(ctx context.Context, toEmail, complaintRef, reason string) error {
	content, err := renderEmailTemplate("complaint_rejected.html", complaintRejectedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Complaint update",
			Heading: "Your complaint could not be processed",
		},
		ComplaintRef: complaintRef,
		Reason:       reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectComplaintRejectedFmt, complaintRef), content)
}

func (s *SMTPSender) SendComplaintInReviewEmail(ctx context.Context, toEmail, complaintRef string) error {
	content, err := renderEmailTemplate("complaint_in_review.html", complaintInReviewEmailData{
		baseEmailData: baseEmailData{
			Title:   "Complaint update",
			Heading: "Your complaint is being reviewed",
		},
		ComplaintRef: complaintRef,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectComplaintInReviewFmt, complaintRef), content)
}

func (s *SMTPSender) SendManualRoutingAlertEmail(ctx context.Context, toEmail, complaintRef, reason, detail string) error {
	content, err := renderEmailTemplate("manual_routing_alert.html", manualRoutingAlertEmailData{
		baseEmailData: baseEmailData{
			Title:   "Manual routing required",
			Heading: "A complaint needs manual routing",
		},
		ComplaintRef: complaintRef,
		Reason:       reason,
		Detail:       detail,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectManualRoutingAlertFmt, complaintRef), content)
}

package email

import (
	"strings"
	"testing"
)

func TestRenderComplaintReceivedTemplate(t *testing.T) {
	html, err := renderEmailTemplate("complaint_received.html", complaintReceivedEmailData{
		baseEmailData: baseEmailData{Title: "Complaint received", Heading: "We received your complaint"},
		ComplaintRef:  "a1b2c3d4",
		ComplaintType: "pothole",
	})
	if err != nil {
		t.Fatalf("expected template to render, got %v", err)
	}
	if !strings.Contains(html, "a1b2c3d4") {
		t.Fatal("expected complaint reference in rendered email")
	}
	if !strings.Contains(html, "pothole") {
		t.Fatal("expected complaint type in rendered email")
	}
}

func TestRenderAllLifecycleTemplates(t *testing.T) {
	cases := []struct {
		name string
		data any
	}{
		{"complaint_received.html", complaintReceivedEmailData{ComplaintRef: "ref", ComplaintType: "garbage"}},
		{"complaint_assigned.html", complaintAssignedEmailData{ComplaintRef: "ref", DepartmentName: "Sanitation"}},
		{"complaint_resolved.html", complaintResolvedEmailData{ComplaintRef: "ref"}},
		{"complaint_rejected.html", complaintRejectedEmailData{ComplaintRef: "ref", Reason: "not municipal"}},
		{"complaint_in_review.html", complaintInReviewEmailData{ComplaintRef: "ref"}},
		{"manual_routing_alert.html", manualRoutingAlertEmailData{ComplaintRef: "ref", Reason: "NoMapping", Detail: "no department"}},
	}

	for _, tc := range cases {
		html, err := renderEmailTemplate(tc.name, tc.data)
		if err != nil {
			t.Fatalf("template %s failed to render: %v", tc.name, err)
		}
		if !strings.Contains(html, "ref") {
			t.Fatalf("template %s missing complaint reference", tc.name)
		}
	}
}

func TestRenderTemplateEscapesHTML(t *testing.T) {
	html, err := renderEmailTemplate("complaint_rejected.html", complaintRejectedEmailData{
		ComplaintRef: "ref",
		Reason:       "<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("expected template to render, got %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("expected reason to be HTML-escaped")
	}
}

package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title   string
	Heading string
}

type complaintReceivedEmailData struct {
	baseEmailData
	ComplaintRef  string
	ComplaintType string
}

type complaintAssignedEmailData struct {
	baseEmailData
	ComplaintRef   string
	DepartmentName string
}

type complaintResolvedEmailData struct {
	baseEmailData
	ComplaintRef string
}

type complaintInReviewEmailData struct {
	baseEmailData
	ComplaintRef string
}

type complaintRejectedEmailData struct {
	baseEmailData
	ComplaintRef string
	Reason       string
}

type manualRoutingAlertEmailData struct {
	baseEmailData
	ComplaintRef string
	Reason       string
	Detail       string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

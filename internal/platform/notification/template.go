package notification

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
)

const (
	TemplateOTP           = "otp"
	TemplateAccountStatus = "account-status"
)

type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine renders {{key}} placeholders. Values are HTML-escaped in the
// body; keys missing from data are left as-is.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	e.RegisterTemplate(Template{
		ID:      TemplateOTP,
		Subject: "Your {{clinic}} login code",
		Body: "<p>Hello {{name}},</p>" +
			"<p>Your one-time login code is <strong>{{code}}</strong>. It expires in {{minutes}} minutes.</p>" +
			"<p>If you did not request this code you can ignore this email.</p>",
	})
	e.RegisterTemplate(Template{
		ID:      TemplateAccountStatus,
		Subject: "Your {{clinic}} account is now {{status}}",
		Body: "<p>Hello {{name}},</p>" +
			"<p>Your account <strong>{{account_id}}</strong> has been marked <strong>{{status}}</strong>.</p>" +
			"<p>Contact the clinic administrator if you have questions.</p>",
	})
	return e
}

func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = t
}

func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject, body = t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, html.EscapeString(v))
	}
	return subject, body, nil
}

// Mailer renders a template and hands the result to an EmailSender.
type Mailer struct {
	sender    EmailSender
	templates *TemplateEngine
	clinic    string
}

// NewMailer returns a Mailer; clinicName fills the {{clinic}} placeholder.
func NewMailer(sender EmailSender, templates *TemplateEngine, clinicName string) *Mailer {
	if templates == nil {
		templates = NewTemplateEngine()
	}
	return &Mailer{sender: sender, templates: templates, clinic: clinicName}
}

func (m *Mailer) Send(ctx context.Context, templateID, to string, data map[string]string) error {
	merged := map[string]string{"clinic": m.clinic}
	for k, v := range data {
		merged[k] = v
	}
	subject, body, err := m.templates.Render(templateID, merged)
	if err != nil {
		return err
	}
	return m.sender.SendEmail(ctx, to, subject, body)
}

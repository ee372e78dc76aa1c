package notification

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTemplateEngine_RenderOTP(t *testing.T) {
	e := NewTemplateEngine()
	subject, body, err := e.Render(TemplateOTP, map[string]string{
		"clinic": "Smile Dental", "name": "Dr. Rao", "code": "482913", "minutes": "10",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if subject != "Your Smile Dental login code" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(body, "<strong>482913</strong>") || !strings.Contains(body, "10 minutes") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestTemplateEngine_EscapesBodyValues(t *testing.T) {
	e := NewTemplateEngine()
	_, body, err := e.Render(TemplateAccountStatus, map[string]string{"name": "<script>x</script>"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Errorf("expected escaped name, got %q", body)
	}
	if !strings.Contains(body, "{{status}}") {
		t.Error("missing keys must be left as-is")
	}
}

func TestTemplateEngine_Unknown(t *testing.T) {
	if _, _, err := NewTemplateEngine().Render("nope", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestMailer_Send(t *testing.T) {
	mock := &MockEmailSender{}
	m := NewMailer(mock, nil, "Smile Dental")

	err := m.Send(context.Background(), TemplateAccountStatus, "rao@example.com", map[string]string{
		"name": "Dr. Rao", "account_id": "DCA00003", "status": "active",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].To != "rao@example.com" || calls[0].Subject != "Your Smile Dental account is now active" {
		t.Errorf("unexpected call %+v", calls[0])
	}
}

func TestMailer_PropagatesSenderError(t *testing.T) {
	m := NewMailer(&MockEmailSender{ShouldFail: true, FailError: "relay down"}, nil, "x")
	err := m.Send(context.Background(), TemplateOTP, "a@b.c", nil)
	if err == nil || err.Error() != "relay down" {
		t.Errorf("expected relay down, got %v", err)
	}
}

func TestSMTPSender_SendEmail(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Username: "u", Password: "p", From: "clinic@example.com"})
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		if a == nil {
			t.Error("expected auth when username is set")
		}
		return nil
	}

	if err := s.SendEmail(context.Background(), "pt@example.com", "Hello", "<p>hi</p>"); err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if len(gotTo) != 1 || gotTo[0] != "pt@example.com" {
		t.Errorf("to = %v", gotTo)
	}
	msg := string(gotMsg)
	for _, want := range []string{"From: clinic@example.com\r\n", "To: pt@example.com\r\n", "Content-Type: text/html", "\r\n\r\n<p>hi</p>"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestSMTPSender_Errors(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "c@example.com"})
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("550 rejected") }

	if err := s.SendEmail(context.Background(), "x@example.com", "s", "b"); err == nil || !strings.Contains(err.Error(), "550") {
		t.Errorf("expected relay error, got %v", err)
	}
	if err := s.SendEmail(context.Background(), "x@example.com\r\nBcc: y@z", "s", "b"); err == nil {
		t.Error("expected header injection to be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.SendEmail(ctx, "x@example.com", "s", "b"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := LogSender{Logger: zerolog.New(&buf)}
	if err := s.SendEmail(context.Background(), "a@b.c", "Subject", "<p>x</p>"); err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
	if !strings.Contains(buf.String(), `"to":"a@b.c"`) {
		t.Errorf("expected log entry, got %s", buf.String())
	}
}

package email

import (
	"context"
	"strings"
	"testing"
)

func TestRenderNotificationTemplate(t *testing.T) {
	out, err := renderEmailTemplate("notification.html", notificationEmailData{
		baseEmailData: baseEmailData{
			Title:    "SLA uyarısı",
			Heading:  "İlk arama süresi aşıldı",
			CTALabel: CTAOpenRecord,
			CTAURL:   "https://crm.example.com/leads/1",
		},
		Body: "Lead <b>Ayşe</b> 30 dakika içinde aranmadı.",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "İlk arama süresi aşıldı") || !strings.Contains(out, "https://crm.example.com/leads/1") {
		t.Fatalf("missing heading or link: %s", out)
	}
	if strings.Contains(out, "<b>Ayşe</b>") {
		t.Fatal("body must be HTML-escaped")
	}
}

type emailConfig struct{ enabled bool }

func (c emailConfig) GetEmailEnabled() bool       { return c.enabled }
func (emailConfig) GetSMTPHost() string           { return "smtp.example.com" }
func (emailConfig) GetSMTPPort() int              { return 587 }
func (emailConfig) GetSMTPUsername() string       { return "" }
func (emailConfig) GetSMTPPassword() string       { return "" }
func (emailConfig) GetEmailFromName() string      { return "CRM" }
func (emailConfig) GetEmailFromAddress() string   { return "crm@example.com" }

func TestNewSenderDisabledIsNoop(t *testing.T) {
	sender := NewSender(emailConfig{})
	if _, ok := sender.(NoopSender); !ok {
		t.Fatalf("expected NoopSender, got %T", sender)
	}
	if err := sender.Send(context.Background(), Message{To: "x@example.com"}); err != nil {
		t.Fatalf("noop send: %v", err)
	}
	if _, ok := NewSender(emailConfig{enabled: true}).(*SMTPSender); !ok {
		t.Fatal("expected SMTP sender when enabled")
	}
}

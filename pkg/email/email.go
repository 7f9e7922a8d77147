package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"coursehub/pkg/config"
	"coursehub/pkg/kfka"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	TemplateCode       = "code.html"
	TemplateExamResult = "exam_result.html"
	TemplatePurchase   = "purchase.html"
)

type CodeData struct {
	Code     string
	ValidFor time.Duration
}

// Render executes one of the embedded templates.
func Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg  config.Mail
	send sendFunc
}

func NewMailer(cfg config.Mail) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// Send delivers an HTML message. net/smtp takes no context, so ctx is only
// checked before dialing.
func (m *Mailer) Send(ctx context.Context, to []string, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)
	headers := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";"
	message := "Subject: " + subject + "\n" + headers + "\n\n" + html
	if err := m.send(m.cfg.Addr, auth, m.cfg.From, to, []byte(message)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

type Sender interface {
	Send(ctx context.Context, to []string, subject, html string) error
}

func SendTemplate(ctx context.Context, s Sender, to, subject, name string, data any) error {
	body, err := Render(name, data)
	if err != nil {
		return err
	}
	return s.Send(ctx, []string{to}, subject, body)
}

// ExamResultNotifier mails the learner their score.
func ExamResultNotifier(s Sender) kfka.Handler[kfka.ExamResultEvent] {
	return func(ctx context.Context, e kfka.ExamResultEvent) error {
		return SendTemplate(ctx, s, e.Email, "Exam result: "+e.UnitTitle, TemplateExamResult, e)
	}
}

func PurchaseNotifier(s Sender) kfka.Handler[kfka.PurchaseEvent] {
	return func(ctx context.Context, e kfka.PurchaseEvent) error {
		subject := "Your purchase: " + e.CourseTitle
		if e.Kind == kfka.PurchasePro {
			subject = "Your Pro membership"
		}
		return SendTemplate(ctx, s, e.Email, subject, TemplatePurchase, e)
	}
}

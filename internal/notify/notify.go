// Package notify sends the portal's transactional email.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/garnizeh/clientportal/internal/config"
)

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, toEmail, toName, token string) error
}

// New returns a SendGrid mailer when an API key is configured and a logging
// mailer otherwise.
func New(cfg config.MailConfig, logger *slog.Logger) Mailer {
	if cfg.SendGridAPIKey == "" {
		return &LogMailer{logger: logger, resetURL: cfg.ResetURL}
	}
	return &SendGridMailer{cfg: cfg}
}

// resetLink appends the token to base as the "token" query parameter.
func resetLink(base, token string) string {
	if base == "" {
		return token
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// SendGridMailer sends mail through the SendGrid v3 API.
type SendGridMailer struct {
	cfg config.MailConfig
}

func (m *SendGridMailer) SendPasswordReset(ctx context.Context, toEmail, toName, token string) error {
	link := resetLink(m.cfg.ResetURL, token)

	msg := sgmail.NewV3Mail()
	msg.SetFrom(sgmail.NewEmail(m.cfg.FromName, m.cfg.FromEmail))
	msg.Subject = "Reset your client portal password"

	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail(toName, toEmail))
	msg.AddPersonalizations(p)
	msg.AddContent(
		sgmail.NewContent("text/plain", "Use this link to choose a new password:\n\n"+link+"\n\nIf you did not ask for a reset you can ignore this email."),
		sgmail.NewContent("text/html", `<p>Use this link to choose a new password:</p><p><a href="`+link+`">Reset password</a></p><p>If you did not ask for a reset you can ignore this email.</p>`),
	)
	msg.AddCategories("password_reset")

	host := strings.TrimRight(m.cfg.SendGridHost, "/")
	if host == "" {
		host = "https://api.sendgrid.com"
	}
	req := sendgrid.GetRequest(m.cfg.SendGridAPIKey, "/v3/mail/send", host)
	req.Method = "POST"
	req.Body = sgmail.GetRequestBody(msg)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d", resp.StatusCode)
	}
	return nil
}

// LogMailer logs instead of sending. For development only: the log line
// carries the reset link.
type LogMailer struct {
	logger   *slog.Logger
	resetURL string
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, toEmail, toName, token string) error {
	if m.logger != nil {
		m.logger.Info("password reset mail (not sent)",
			slog.String("to", toEmail),
			slog.String("link", resetLink(m.resetURL, token)))
	}
	return nil
}

package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/harmonix/backend/internal/config"
	"github.com/harmonix/backend/pkg/logger"
	"gopkg.in/gomail.v2"
)

const siteName = "Harmonix"

// EmailMessage is one rendered email ready for a Sender.
type EmailMessage struct {
	Kind     string
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers a rendered email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, msg *EmailMessage) error
	Name() string
}

// NewSender picks the transport configured under email.transport.
func NewSender(cfg *config.EmailConfig) Sender {
	switch strings.ToLower(cfg.Transport) {
	case "smtp":
		return NewSMTPSender(cfg)
	default:
		return &LogSender{}
	}
}

// SMTPSender sends through an SMTP relay. When an API key is configured it is
// used as the password with the relay's "apikey" user.
type SMTPSender struct {
	cfg    *config.EmailConfig
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg *config.EmailConfig) *SMTPSender {
	username, password := cfg.Username, cfg.Password
	if cfg.APIKey != "" {
		username, password = "apikey", cfg.APIKey
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, username, password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	if cfg.Port == 465 {
		d.SSL = true
	}
	return &SMTPSender{cfg: cfg, dialer: d}
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, msg *EmailMessage) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Auto-Submitted", "auto-generated")
	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	// DialAndSend has no context support; bound it from the outside
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSender only logs outgoing mail. Used in development and tests.
type LogSender struct{}

func (LogSender) Name() string { return "log" }

func (LogSender) Send(ctx context.Context, msg *EmailMessage) error {
	logger.Info().
		Str("kind", msg.Kind).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("[Email] message logged instead of sent")
	logger.Debug().Msg(msg.TextBody)
	return nil
}

var passwordResetHTML = htmltemplate.Must(htmltemplate.New("password_reset_html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>Reset your {{.SiteName}} password</h2>
  <p>Hi {{.Username}},</p>
  <p>We received a request to reset the password for your {{.SiteName}} account.
     Click the button below to choose a new one.</p>
  <p><a href="{{.ResetURL}}" style="display: inline-block; padding: 10px 18px; background: #7c3aed; color: #ffffff; border-radius: 6px; text-decoration: none;">Reset password</a></p>
  <p>Or paste this link into your browser:<br><a href="{{.ResetURL}}">{{.ResetURL}}</a></p>
  <p>This link expires in {{.ValidFor}}. If you did not ask for a reset you can ignore this email.</p>
  <hr>
  <p style="color: #6b7280; font-size: 12px;">The {{.SiteName}} team</p>
</body>
</html>
`))

var passwordResetText = texttemplate.Must(texttemplate.New("password_reset_text").Parse(`Hi {{.Username}},

We received a request to reset the password for your {{.SiteName}} account.
Open the link below to choose a new one:

{{.ResetURL}}

This link expires in {{.ValidFor}}. If you did not ask for a reset you can ignore this email.

The {{.SiteName}} team
`))

type passwordResetData struct {
	SiteName string
	Username string
	ResetURL string
	ValidFor string
}

// RenderPasswordReset builds the reset email for one recipient.
func RenderPasswordReset(to, username, resetURL string, validFor time.Duration) (*EmailMessage, error) {
	data := passwordResetData{
		SiteName: siteName,
		Username: username,
		ResetURL: resetURL,
		ValidFor: humanDuration(validFor),
	}

	var html, text bytes.Buffer
	if err := passwordResetHTML.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	if err := passwordResetText.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("render text: %w", err)
	}

	return &EmailMessage{
		Kind:     EmailKindPasswordReset,
		To:       to,
		Subject:  "Reset Your " + siteName + " Password",
		HTMLBody: html.String(),
		TextBody: text.String(),
	}, nil
}

func humanDuration(d time.Duration) string {
	hours := int(d / time.Hour)
	switch {
	case hours >= 24 && hours%24 == 0:
		if hours == 24 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", hours/24)
	case hours == 1:
		return "1 hour"
	default:
		return fmt.Sprintf("%d hours", hours)
	}
}

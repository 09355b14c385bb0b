package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	gomail "github.com/wneessen/go-mail"
)

const resetSubject = "CaseTrack password reset"

var resetBody = template.Must(template.New("reset").Parse(
	`Hello {{.Username}},

A password reset was requested for your CaseTrack account. Follow the link
below to choose a new password. The link is valid once, for a short time.

{{.Link}}

If you did not request a reset, you can ignore this message.
`))

// SMTPConfig carries the mail transport settings, constructed once at
// process start and passed in explicitly.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// ResetLinkBase is the frontend URL the token is appended to,
	// e.g. https://cases.example.org/reset-password.
	ResetLinkBase string
}

// SMTPMailer dispatches templated mail over SMTP. It satisfies
// auth.ResetMailer.
type SMTPMailer struct {
	client *gomail.Client
	cfg    SMTPConfig
}

// NewSMTPMailer validates the config and prepares the SMTP client.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("mail: smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("mail: from address is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	opts := []gomail.Option{gomail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: build smtp client: %w", err)
	}
	return &SMTPMailer{client: client, cfg: cfg}, nil
}

// SendPasswordReset mails the single-use reset link to the user.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, username, token string) error {
	body, err := RenderResetBody(username, ResetLink(m.cfg.ResetLinkBase, token))
	if err != nil {
		return err
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("mail: from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail: to address: %w", err)
	}
	msg.Subject(resetSubject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	return nil
}

// ResetLink builds the link embedded in the reset email.
func ResetLink(base, token string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return token
	}
	return base + "?token=" + token
}

// RenderResetBody fills the reset email template.
func RenderResetBody(username, link string) (string, error) {
	var buf bytes.Buffer
	err := resetBody.Execute(&buf, struct {
		Username string
		Link     string
	}{Username: username, Link: link})
	if err != nil {
		return "", fmt.Errorf("mail: render body: %w", err)
	}
	return buf.String(), nil
}

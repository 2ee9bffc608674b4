// Package mailer sends HTML mail over SMTP using the settings stored in
// the database, so admin edits take effect without a restart.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"webhook-digest-service/internal/models"
)

// ErrNotConfigured is returned while host or from address are unset.
var ErrNotConfigured = errors.New("smtp not configured")

// SettingsSource provides the stored SMTP configuration.
type SettingsSource interface {
	GetSmtpSettings(ctx context.Context) (models.SmtpSettings, error)
}

type Mailer struct {
	settings SettingsSource
}

func New(settings SettingsSource) *Mailer {
	return &Mailer{settings: settings}
}

// Send delivers one HTML mail. to may be a single address or a
// comma-separated list.
func (m *Mailer) Send(to, subject, html string) error {
	s, err := m.settings.GetSmtpSettings(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load smtp settings: %w", err)
	}
	if s.Host == "" || s.FromEmail == "" {
		return ErrNotConfigured
	}

	recipients := splitRecipients(to)
	if len(recipients) == 0 {
		return fmt.Errorf("invalid recipient list: %q", to)
	}

	msg := buildMessage(s, to, subject, html)
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	if s.Secure {
		err = sendImplicitTLS(addr, s.Host, auth, s.FromEmail, recipients, msg)
	} else {
		err = smtp.SendMail(addr, auth, s.FromEmail, recipients, msg)
	}
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// SendTest delivers a short test mail so the admin can verify the stored
// SMTP settings.
func (m *Mailer) SendTest(to string) error {
	body := fmt.Sprintf(`<h2>Test Email</h2>
<p>This is a test email from your Planka Webhook Receiver.</p>
<p>If you received this, your SMTP settings are configured correctly!</p>
<p><small>Sent at: %s</small></p>`, time.Now().Format(time.RFC3339))
	return m.Send(to, "Planka Webhook Receiver - Test Email", body)
}

func splitRecipients(to string) []string {
	var out []string
	for _, part := range strings.Split(to, ",") {
		addr := strings.TrimSpace(part)
		if strings.Contains(addr, "@") {
			out = append(out, addr)
		}
	}
	return out
}

func buildMessage(s models.SmtpSettings, to, subject, html string) []byte {
	from := s.FromEmail
	if s.FromName != "" {
		from = fmt.Sprintf("%q <%s>", s.FromName, s.FromEmail)
	}
	headers := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + html + "\r\n")
}

// sendImplicitTLS covers SMTPS endpoints (typically port 465), which
// smtp.SendMail's opportunistic STARTTLS does not handle.
func sendImplicitTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/cybersectk/cstk/internal/config"
)

// EmailChannel sends notifications via SMTP.
type EmailChannel struct {
	cfg config.EmailNotifyConfig
}

// NewEmail creates an EmailChannel from cfg.
func NewEmail(cfg config.EmailNotifyConfig) *EmailChannel { return &EmailChannel{cfg: cfg} }

func (e *EmailChannel) Name() string { return "email" }
func (e *EmailChannel) IsConfigured() bool {
	return e.cfg.SMTPHost != "" && e.cfg.To != "" && e.cfg.From != ""
}

// recipients splits the configured To list on commas.
func (e *EmailChannel) recipients() []string {
	parts := strings.Split(e.cfg.To, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// emailMessage renders the full message, CRLF line endings included. The
// subject carries a [cstk] prefix so inbox filters have a stable anchor.
func emailMessage(from string, to []string, evt Event) []byte {
	var sb strings.Builder
	write := func(line string) { sb.WriteString(line + "\r\n") }
	write("From: " + from)
	write("To: " + strings.Join(to, ", "))
	write("Subject: [cstk] " + evt.Title)
	write("MIME-Version: 1.0")
	write("Content-Type: text/plain; charset=utf-8")
	write("")
	if ctxLine := strings.TrimSpace(evt.Kind + " " + evt.JobID); ctxLine != "" {
		write(ctxLine)
		write("")
	}
	for _, line := range strings.Split(evt.Body, "\n") {
		write(line)
	}
	if evt.URL != "" {
		write("")
		write(evt.URL)
	}
	return []byte(sb.String())
}

func (e *EmailChannel) Send(_ context.Context, evt Event) error {
	port := e.cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPHost, port)
	to := e.recipients()
	msg := emailMessage(e.cfg.From, to, evt)

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.SMTPHost)
	}

	if !e.cfg.UseTLS {
		return smtp.SendMail(addr, auth, e.cfg.From, to, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: e.cfg.SMTPHost}) // #nosec G402 -- TLS config uses system defaults; ServerName is set for SNI
	if err != nil {
		return fmt.Errorf("email: TLS dial: %w", err)
	}
	defer conn.Close()
	client, err := smtp.NewClient(conn, e.cfg.SMTPHost)
	if err != nil {
		return err
	}
	defer client.Close()
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(e.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}

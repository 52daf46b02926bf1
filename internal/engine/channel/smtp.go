// internal/engine/channel/smtp.go
package channel

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	stderrors "school-notify/internal/common/errors"
	"school-notify/internal/common/logger"
)

// SMTPConfig carries the connection settings for the SMTP email adapter.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	From     string
}

// SMTPEmailAdapter delivers email over plain SMTP, for deployments that do
// not route mail through SES.
type SMTPEmailAdapter struct {
	config SMTPConfig
	logger logger.Logger
}

func NewSMTPEmailAdapter(cfg SMTPConfig, log logger.Logger) *SMTPEmailAdapter {
	return &SMTPEmailAdapter{
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"adapter": "smtp-email"}),
	}
}

func (a *SMTPEmailAdapter) Send(ctx context.Context, msg Message) error {
	if !isValidEmail(msg.To) {
		return stderrors.NewInvalidInputError(fmt.Sprintf("invalid destination email address: %s", msg.To))
	}
	if err := ctx.Err(); err != nil {
		return stderrors.NewTransportFailureError("email", fmt.Errorf("context cancelled before sending email: %w", err))
	}

	message := a.buildEmailMessage(msg)
	if err := a.sendSMTP(msg.To, message); err != nil {
		return stderrors.NewTransportFailureError("email", err)
	}

	a.logger.Debug("email accepted by SMTP relay", map[string]interface{}{"to": msg.To})
	return nil
}

func isValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	if len(parts[0]) == 0 || len(parts[1]) == 0 {
		return false
	}
	if !strings.Contains(parts[1], ".") {
		return false
	}
	return true
}

func (a *SMTPEmailAdapter) buildEmailMessage(msg Message) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("From: %s\r\n", a.config.From))
	builder.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(msg.Body)

	return builder.String()
}

func (a *SMTPEmailAdapter) sendSMTP(to, message string) error {
	addr := fmt.Sprintf("%s:%d", a.config.Host, a.config.Port)

	var auth smtp.Auth
	if a.config.Username != "" && a.config.Password != "" {
		auth = smtp.PlainAuth("", a.config.Username, a.config.Password, a.config.Host)
	}

	if a.config.UseTLS {
		return a.sendWithTLS(addr, auth, a.config.From, []string{to}, []byte(message))
	}

	return smtp.SendMail(addr, auth, a.config.From, []string{to}, []byte(message))
}

func (a *SMTPEmailAdapter) sendWithTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{
		ServerName:         a.config.Host,
		InsecureSkipVerify: false,
	}

	if err = client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, rcpt := range to {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}

	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

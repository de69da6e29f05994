package providers

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"

	"weathertogether.app/config"
	"weathertogether.app/errors"
)

// SMTPEmailProvider implements EmailProvider using SMTP
type SMTPEmailProvider struct {
	smtpHost     string
	smtpPort     int
	smtpUsername string
	smtpPassword string
	fromName     string
	fromAddress  string
}

// NewSMTPEmailProvider creates a new SMTP email provider
func NewSMTPEmailProvider(config *config.EmailConfig) *SMTPEmailProvider {
	return &SMTPEmailProvider{
		smtpHost:     config.SMTPHost,
		smtpPort:     config.SMTPPort,
		smtpUsername: config.SMTPUsername,
		smtpPassword: config.SMTPPassword,
		fromName:     config.FromName,
		fromAddress:  config.FromAddress,
	}
}

// validateSendEmailParams validates the input parameters for sending an email
func (p *SMTPEmailProvider) validateSendEmailParams(to, subject string) error {
	if to == "" {
		return errors.NewValidationError("recipient email cannot be empty")
	}
	if subject == "" {
		return errors.NewValidationError("email subject cannot be empty")
	}
	return nil
}

// SendEmail sends a plain-text email over SMTP, with an optional file
// attachment encoded as a MIME multipart message. The context deadline
// bounds the dial and every read and write on the session, so a peer that
// accepts the connection and goes silent surfaces as a delivery failure
// instead of blocking the caller.
func (p *SMTPEmailProvider) SendEmail(ctx context.Context, to, subject, body, attachmentPath string) error {
	if err := p.validateSendEmailParams(to, subject); err != nil {
		return err
	}

	// Remove line breaks from subject to prevent header injection
	subject = strings.ReplaceAll(strings.ReplaceAll(subject, "\r\n", ""), "\n", "")

	message, err := p.buildMessage(to, subject, body, attachmentPath)
	if err != nil {
		return err
	}

	smtpAddr := fmt.Sprintf("%s:%d", p.smtpHost, p.smtpPort)
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", smtpAddr)
	if err != nil {
		return errors.NewEmailError("failed to connect to mail server", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return errors.NewEmailError("failed to set session deadline", err)
		}
	}

	client, err := smtp.NewClient(conn, p.smtpHost)
	if err != nil {
		return errors.NewEmailError("failed to open mail session", err)
	}

	return p.transmit(client, to, message)
}

func (p *SMTPEmailProvider) transmit(client *smtp.Client, to string, message []byte) error {
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: p.smtpHost}); err != nil {
			return errors.NewEmailError("failed to negotiate TLS", err)
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", p.smtpUsername, p.smtpPassword, p.smtpHost)
		if err := client.Auth(auth); err != nil {
			return errors.NewEmailError("failed to authenticate with mail server", err)
		}
	}

	if err := client.Mail(p.fromAddress); err != nil {
		return errors.NewEmailError("failed to send email", err)
	}
	if err := client.Rcpt(to); err != nil {
		return errors.NewEmailError("failed to send email", err)
	}

	w, err := client.Data()
	if err != nil {
		return errors.NewEmailError("failed to send email", err)
	}
	if _, err := w.Write(message); err != nil {
		return errors.NewEmailError("failed to send email", err)
	}
	if err := w.Close(); err != nil {
		return errors.NewEmailError("failed to send email", err)
	}

	if err := client.Quit(); err != nil {
		return errors.NewEmailError("failed to send email", err)
	}
	return nil
}

func (p *SMTPEmailProvider) buildMessage(to, subject, body, attachmentPath string) ([]byte, error) {
	from := fmt.Sprintf("%s <%s>", p.fromName, p.fromAddress)

	if attachmentPath == "" {
		headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n"+
			"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n",
			from, to, subject)
		return []byte(headers + body), nil
	}

	attachment, err := os.ReadFile(attachmentPath)
	if err != nil {
		return nil, errors.NewEmailError("failed to read attachment", err)
	}

	const boundary = "weathertogether-boundary"
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, to, subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: application/octet-stream\r\n")
	msg.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&msg, "Content-Disposition: attachment; filename=%q\r\n\r\n", filepath.Base(attachmentPath))

	encoded := base64.StdEncoding.EncodeToString(attachment)
	// Wrap base64 at 76 characters per RFC 2045.
	for len(encoded) > 76 {
		msg.WriteString(encoded[:76])
		msg.WriteString("\r\n")
		encoded = encoded[76:]
	}
	msg.WriteString(encoded)
	fmt.Fprintf(&msg, "\r\n--%s--\r\n", boundary)

	return []byte(msg.String()), nil
}

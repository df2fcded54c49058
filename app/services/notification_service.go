package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// NotificationService sends user and operator emails
type NotificationService interface {
	SendEmail(ctx context.Context, email, subject, message string) error
	NotifyAdmin(ctx context.Context, subject, message string) error
}

// EmailProvider delivers one plain-text message
type EmailProvider interface {
	SendEmail(ctx context.Context, email, subject, message string) error
}

type NotificationServiceImpl struct {
	emailProvider EmailProvider
	adminEmail    string
}

func NewNotificationService(emailProvider EmailProvider, adminEmail string) NotificationService {
	return &NotificationServiceImpl{
		emailProvider: emailProvider,
		adminEmail:    adminEmail,
	}
}

var ErrEmailNotConfigured = errors.New("email provider not configured")

func (s *NotificationServiceImpl) SendEmail(ctx context.Context, email, subject, message string) error {
	if s.emailProvider == nil {
		return ErrEmailNotConfigured
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address %q: %w", email, err)
	}
	return s.emailProvider.SendEmail(ctx, email, subject, message)
}

func (s *NotificationServiceImpl) NotifyAdmin(ctx context.Context, subject, message string) error {
	if s.adminEmail == "" {
		return nil
	}
	return s.SendEmail(ctx, s.adminEmail, subject, message)
}

// LogEmailProvider writes messages to the log instead of sending them
type LogEmailProvider struct {
	logger *zap.Logger
}

func NewLogEmailProvider(logger *zap.Logger) EmailProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmailProvider{logger: logger}
}

func (p *LogEmailProvider) SendEmail(_ context.Context, email, subject, message string) error {
	p.logger.Info("email", zap.String("to", email), zap.String("subject", subject), zap.String("body", message))
	return nil
}

type SMTPEmailProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	timeout   time.Duration
}

func NewSMTPEmailProvider(host string, port int, username, password, fromEmail string) EmailProvider {
	return &SMTPEmailProvider{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
		timeout:   10 * time.Second,
	}
}

func (p *SMTPEmailProvider) SendEmail(ctx context.Context, email, subject, message string) error {
	addr := net.JoinHostPort(p.host, strconv.Itoa(p.port))
	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(p.timeout))
	}

	c, err := smtp.NewClient(conn, p.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(tlsConfig(p.host)); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if p.username != "" {
		if err := c.Auth(smtp.PlainAuth("", p.username, p.password, p.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(p.fromEmail); err != nil {
		return err
	}
	if err := c.Rcpt(email); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMessage(p.fromEmail, email, subject, message)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

func tlsConfig(host string) *tls.Config {
	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}

package email

import (
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/catalyst-codex/codex/shared/config"
	"github.com/catalyst-codex/codex/shared/logger"
)

// Sender delivers plain text mail.
type Sender interface {
	Send(recipient, subject, body string) error
}

// New returns an SMTP sender, or a LogSender when no SMTP server is configured.
func New(cfg config.Email) Sender {
	if cfg.SMTPServer == "" {
		logger.Log.Warn("smtp server not configured, outgoing mail is only logged")
		return LogSender{}
	}
	return &SMTP{
		config: cfg,
		auth:   smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPServer),
	}
}

type SMTP struct {
	config config.Email
	auth   smtp.Auth
}

func (e *SMTP) Send(recipient, subject, body string) error {
	msg := e.buildMessage(recipient, subject, body)
	address := fmt.Sprintf("%s:%d", e.config.SMTPServer, e.config.SMTPPort)

	// Port 465 = implicit TLS, otherwise STARTTLS
	if e.config.SMTPPort == 465 {
		return e.sendImplicitTLS(address, recipient, msg)
	}
	return e.sendSTARTTLS(address, recipient, msg)
}

func (e *SMTP) timeout() time.Duration {
	timeout := time.Duration(e.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return timeout
}

func (e *SMTP) sender() string {
	if e.config.SenderEmail != "" {
		return e.config.SenderEmail
	}
	return e.config.Username
}

func (e *SMTP) sendImplicitTLS(address, recipient string, msg []byte) error {
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: e.timeout()}, "tcp", address, &tls.Config{ServerName: e.config.SMTPServer})
	if err != nil {
		return fmt.Errorf("connect to smtp server %s: %w", address, err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.config.SMTPServer)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer client.Close()
	return e.sendViaClient(client, recipient, msg)
}

func (e *SMTP) sendSTARTTLS(address, recipient string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", address, e.timeout())
	if err != nil {
		return fmt.Errorf("connect to smtp server %s: %w", address, err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.config.SMTPServer)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer client.Close()

	if err = client.StartTLS(&tls.Config{ServerName: e.config.SMTPServer}); err != nil {
		return fmt.Errorf("start tls: %w", err)
	}
	return e.sendViaClient(client, recipient, msg)
}

func (e *SMTP) sendViaClient(client *smtp.Client, recipient string, msg []byte) error {
	if err := client.Auth(e.auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(e.sender()); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close data writer: %w", err)
	}
	return client.Quit()
}

func (e *SMTP) buildMessage(recipient, subject, body string) []byte {
	return buildMessage(e.sender(), e.config.SenderName, recipient, subject, body, time.Now())
}

func buildMessage(from, fromName, recipient, subject, body string, now time.Time) []byte {
	host := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		host = from[at+1:]
	}

	return fmt.Appendf(nil,
		"Message-ID: %s\r\n"+
			"Date: %s\r\n"+
			"To: %s\r\n"+
			"From: %s <%s>\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/plain; charset=\"utf-8\"\r\n"+
			"\r\n"+
			"%s",
		messageID(host, now), now.Format(time.RFC1123Z), recipient,
		mime.QEncoding.Encode("utf-8", fromName), from,
		mime.QEncoding.Encode("utf-8", subject), body,
	)
}

func messageID(host string, now time.Time) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("<%d.%s@%s>", now.UnixNano(), hex.EncodeToString(b), host)
}

// LogSender writes mail to the log instead of sending it (local development).
type LogSender struct{}

func (LogSender) Send(recipient, subject, body string) error {
	logger.Log.Info("outgoing mail", "to", recipient, "subject", subject, "body", body)
	return nil
}

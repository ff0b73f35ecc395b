package notify

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/interview-manager/internal/config"
	"github.com/jonathan/interview-manager/internal/logging"
	"go.uber.org/zap"
)

// SMTPSender delivers invitations as plain-text email
type SMTPSender struct {
	cfg     config.SMTPConfig
	baseURL string
	// send is smtp.SendMail, swapped in tests
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg config.SMTPConfig, baseURL string) *SMTPSender {
	return &SMTPSender{cfg: cfg, baseURL: baseURL, send: smtp.SendMail}
}

// NewSender returns an SMTP sender when SMTP is configured and a simulated one otherwise
func NewSender(cfg config.SMTPConfig, baseURL string) Sender {
	if cfg.Enabled() {
		return NewSMTPSender(cfg, baseURL)
	}
	return NewSimulatedSender(baseURL)
}

func (s *SMTPSender) Send(ctx context.Context, inv Invitation) (string, error) {
	msg, err := Render(s.baseURL, inv)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return msg.Link, err
	}

	if err := s.deliver(msg); err != nil {
		return msg.Link, fmt.Errorf("failed to send invitation to %s: %w", msg.To, err)
	}

	logging.FromContext(ctx).Info("invitation email sent", zap.String("to", msg.To))
	return msg.Link, nil
}

func (s *SMTPSender) SendSignIn(ctx context.Context, email, link string) error {
	msg, err := RenderSignIn(email, link)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.deliver(msg); err != nil {
		return fmt.Errorf("failed to send sign-in link to %s: %w", msg.To, err)
	}
	logging.FromContext(ctx).Info("sign-in email sent", zap.String("to", msg.To))
	return nil
}

func (s *SMTPSender) deliver(msg Message) error {
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	return s.send(addr, auth, s.cfg.From, []string{headerValue(msg.To)}, s.encode(msg))
}

// headerValue drops CR and LF so a value cannot start a new header line
func headerValue(v string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return -1
		}
		return r
	}, v)
}

func (s *SMTPSender) encode(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerValue(s.cfg.From))
	fmt.Fprintf(&b, "To: %s\r\n", headerValue(msg.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(msg.Subject)))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

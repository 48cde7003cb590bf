// Package mail relays contact form submissions to the site owner.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// DefaultTimeout bounds a delivery when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("mail: SMTP credentials not configured")

// Message is a contact form submission.
type Message struct {
	Name  string
	Email string
	Body  string
}

// Sender delivers contact messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTP sends mail through an authenticated SMTP relay.
type SMTP struct {
	Host string
	Port string
	User string
	Pass string
	// To receives the messages. Defaults to User.
	To string

	// send is the SMTP conversation, replaced in tests.
	send func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTP returns a sender for the given relay.
func NewSMTP(host, port, user, pass, to string) *SMTP {
	return &SMTP{Host: host, Port: port, User: user, Pass: pass, To: to}
}

// Send composes and sends m. The whole conversation with the relay is bound
// by ctx, or by DefaultTimeout when ctx has no deadline.
func (s *SMTP) Send(ctx context.Context, m Message) error {
	if s.User == "" || s.Pass == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	to := s.To
	if to == "" {
		to = s.User
	}
	msg := Compose(s.User, to, m)
	auth := smtp.PlainAuth("", s.User, s.Pass, s.Host)

	send := s.send
	if send == nil {
		send = s.converse
	}
	if err := send(ctx, net.JoinHostPort(s.Host, s.Port), auth, s.User, []string{to}, msg); err != nil {
		return fmt.Errorf("sending contact mail: %w", err)
	}
	return nil
}

// converse is smtp.SendMail over a connection that honours ctx: the dial and
// every read and write fail once ctx expires.
func (s *SMTP) converse(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// Compose builds the RFC 822 message for a submission. Header values are
// stripped of line breaks so a visitor cannot inject headers.
func Compose(from, to string, m Message) []byte {
	name := oneLine(m.Name)
	subject := fmt.Sprintf("Portfolio Contact: %s", name)
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, name, m.Email, m.Body)

	var b strings.Builder
	b.WriteString("To: " + oneLine(to) + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("From: " + oneLine(from) + "\r\n")
	b.WriteString("Reply-To: " + oneLine(m.Email) + "\r\n")
	b.WriteString("\r\n")
	b.WriteString(body + "\r\n")
	return []byte(b.String())
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

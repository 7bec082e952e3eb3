package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Transport delivers a composed notification to a recipient address. The
// core only decides when and what to send; delivery belongs to the adapter.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPTransport sends notifications as plain-text email.
type SMTPTransport struct {
	addr     string
	from     string
	username string
	password string
	host     string
}

// NewSMTPTransport creates an SMTP transport. Username and password may be
// empty for unauthenticated relays.
func NewSMTPTransport(host string, port int, username, password, from string) *SMTPTransport {
	return &SMTPTransport{
		addr:     fmt.Sprintf("%s:%d", host, port),
		from:     from,
		username: username,
		password: password,
		host:     host,
	}
}

func (t *SMTPTransport) Send(ctx context.Context, to, subject, body string) error {
	var auth smtp.Auth
	if t.username != "" {
		auth = smtp.PlainAuth("", t.username, t.password, t.host)
	}

	msg := buildMessage(t.from, to, subject, body)

	// net/smtp has no context support, so the send runs in a goroutine and
	// races the caller's deadline.
	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(t.addr, auth, t.from, []string{to}, msg)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", to, ctx.Err())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", to, err)
		}
		return nil
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

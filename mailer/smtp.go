package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers rendered messages through a plain SMTP relay.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

var _ Sender = (*SMTPSender)(nil)

func NewSMTPSender(addr, from string, auth smtp.Auth) *SMTPSender {
	return &SMTPSender{
		addr: addr,
		from: from,
		auth: auth,
	}
}

func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	return smtp.SendMail(s.addr, s.auth, s.from, []string{to}, formatMessage(s.from, to, subject, body))
}

// formatMessage assembles the wire form of an HTML message. Header lines
// use CRLF per RFC 5322.
func formatMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

package service

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/mmoboard/board/internal/config"
)

// Mailer attempts synchronous delivery of one message. Delivery is
// tried exactly once; there is no queue and no retry.
type Mailer interface {
	Send(subject, body string, to []string) error
}

// SMTPMailer delivers mail through an external SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewSMTPMailer(cfg config.Config) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *SMTPMailer) Send(subject, body string, to []string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.from, strings.Join(to, ", "), subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, to, []byte(msg))
}

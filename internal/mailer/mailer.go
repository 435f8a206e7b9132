// Package mailer sends transactional email over SMTP.
package mailer

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Mailer delivers a single plain text and HTML email.
type Mailer interface {
	Send(to, subject, text, html string) error
}

// Sender abstracts the gomail dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	sender Sender
	from   string
}

// NewSMTPMailer dials host:port with the given credentials for each send.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{sender: gomail.NewDialer(host, port, username, password), from: from}
}

// NewWithSender is used when the transport is provided by the caller.
func NewWithSender(sender Sender, from string) *SMTPMailer {
	return &SMTPMailer{sender: sender, from: from}
}

func (m *SMTPMailer) Send(to, subject, text, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)
	if html != "" {
		msg.AddAlternative("text/html", html)
	}

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type noopMailer struct {
	log *logrus.Logger
}

// NewNoopMailer logs instead of sending. It is used when SMTP is not configured.
func NewNoopMailer(log *logrus.Logger) Mailer {
	return &noopMailer{log: log}
}

func (n *noopMailer) Send(to, subject, _, _ string) error {
	n.log.WithFields(logrus.Fields{"to": to, "subject": subject}).Debug("smtp disabled, email skipped")
	return nil
}

// New picks the SMTP mailer when host is set and the noop mailer otherwise.
func New(host string, port int, username, password, from string, log *logrus.Logger) Mailer {
	if host == "" {
		log.Info("SMTP_HOST not set, email delivery disabled")
		return NewNoopMailer(log)
	}
	return NewSMTPMailer(host, port, username, password, from)
}

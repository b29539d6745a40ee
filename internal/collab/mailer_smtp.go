package collab

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
)

// SMTPMailer sends plain-text mail through a single SMTP relay, the
// same shape as the teacher's EmailService.sendSMTP minus the ICS
// attachment branch this domain doesn't need.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

func (m SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", m.FromName, m.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	return smtp.SendMail(addr, auth, m.From, []string{to}, msg.Bytes())
}

// Package mailer delivers verification codes over SMTP.  When no SMTP
// host is configured the mailer runs in development mode: codes are
// written to the server log instead of being sent, and the verification
// service exposes the pending code to the client in place of delivery.
package mailer

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

type Mailer struct {
	dialer *gomail.Dialer
	host   string
	from   string
}

func New(host string, port int, user, pass, from string) *Mailer {
	m := &Mailer{host: host, from: from}
	if m.IsConfigured() {
		m.dialer = gomail.NewDialer(host, port, user, pass)
	}
	return m
}

// IsConfigured reports whether a real SMTP relay is available.  The
// "dev-null" host is the conventional stand-in for "no relay" and counts
// as unconfigured.
func (m *Mailer) IsConfigured() bool {
	return m.host != "" && m.host != "dev-null"
}

// Send delivers a verification code.  In development mode the code is
// logged and the call succeeds without network I/O.
func (m *Mailer) Send(email, code string) error {
	if !m.IsConfigured() {
		log.Printf("[DEV] verification code to %s: %s", email, code)
		return nil
	}
	from := m.from
	if from == "" {
		from = "no-reply@example.com"
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "確認コードのお知らせ")
	msg.SetBody("text/plain", fmt.Sprintf(
		"確認コード: %s\n有効期限: 発行から10分です。\nこのメールに心当たりがない場合は破棄してください。", code))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}

// Package mailer sends transactional mail over SMTP.  The only message the
// auth subsystem sends is the password-reset code.
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Config holds the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer wraps a gomail dialer.  Dialing happens per send; the auth flow
// sends mail rarely enough that a pooled connection is not worth keeping.
type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
}

func New(cfg Config) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// SendResetCode emails a password-reset code to the user.  A send failure
// propagates to the caller; the reset flow must not store a code the user
// never received.
func (m *Mailer) SendResetCode(name, email, code string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Reset your password")
	msg.SetBody("text/html", resetCodeBody(name, code))
	return m.dialer.DialAndSend(msg)
}

func resetCodeBody(name, code string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 600px; margin: auto; padding: 30px;">
      <h2>Password reset requested</h2>
      <p>Hi <strong>%s</strong>,</p>
      <p>You asked to reset the password for your account. Use the code below to continue:</p>
      <div style="font-size: 24px; font-weight: bold; text-align: center; margin: 20px 0;">%s</div>
      <p>The code is valid for <strong>15</strong> minutes. If you did not request a password change, ignore this email.</p>
      <p style="font-size: 12px; color: #777;">This is an automated message, please do not reply.</p>
    </div>
  </body>
</html>`, name, code)
}

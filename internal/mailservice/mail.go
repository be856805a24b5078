package mailservice

import (
	"fmt"
	"time"

	"github.com/go-mail/mail/v2"
)

func NewMailer(host string, port int, username, password, sender string, renderer Renderer) *Mail {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second

	return &Mail{
		dialer:   dialer,
		sender:   sender,
		renderer: renderer,
		now:      time.Now,
	}
}

func (m *Mail) compose(recipient string, r *Rendered) *mail.Message {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", r.Subject)
	msg.SetDateHeader("Date", m.now())
	msg.SetBody("text/plain", r.Plain)
	msg.AddAlternative("text/html", r.HTML)

	return msg
}

func (m *Mail) send(recipient string, data any, templateFile string) error {
	rendered, err := m.renderer.Render(templateFile, data)
	if err != nil {
		return err
	}

	if err := m.dialer.DialAndSend(m.compose(recipient, rendered)); err != nil {
		return fmt.Errorf("could not deliver mail: %w", err)
	}

	return nil
}

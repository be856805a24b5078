package mailservice

import (
	"context"
	"time"

	"github.com/go-mail/mail/v2"

	"github.com/sushihentaime/threadline/internal/common"
)

type MailService struct {
	mb      common.MessageConsumer
	m       Mailer
	logger  MailLogger
	baseURL string
	ctx     context.Context
	cancel  context.CancelFunc
}

type MailLogger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

type Mail struct {
	dialer   Dialer
	renderer Renderer
	sender   string
	now      func() time.Time
}

type Mailer interface {
	send(recipient string, data any, templateFile string) error
}

type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type Renderer interface {
	Render(name string, data any) (*Rendered, error)
}

type welcomeData struct {
	Name     string
	LoginURL string
}

type passwordResetData struct {
	Name      string
	ResetURL  string
	ExpiresIn string
}

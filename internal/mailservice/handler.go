package mailservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sushihentaime/threadline/internal/common"
	"golang.org/x/exp/rand"
)

const (
	maxRetries = 5
	baseDelay  = 500 * time.Millisecond
)

// NewMailService fails only if the embedded templates do not parse.
func NewMailService(mb common.MessageConsumer, host, username, password, sender string, port int, baseURL string, logger *slog.Logger) (*MailService, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:      mb,
		m:       NewMailer(host, port, username, password, sender, templates),
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// envelope is a decoded broker message ready to be rendered and sent.
type envelope struct {
	recipient string
	template  string
	data      any
}

// SendWelcomeEmail starts consuming user.created events and sends a welcome mail for each.
func (s *MailService) SendWelcomeEmail() {
	s.consume("welcome", common.UserCreatedKey, common.UserCreatedQueue, func(body []byte) (*envelope, error) {
		var msg common.UserCreatedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, err
		}

		return &envelope{
			recipient: msg.Email,
			template:  "welcome_email.html",
			data:      welcomeData{Name: msg.Name, LoginURL: s.baseURL + "/login"},
		}, nil
	})
}

// SendPasswordResetEmail starts consuming user.password_reset events and mails the reset link for each.
func (s *MailService) SendPasswordResetEmail() {
	s.consume("password reset", common.PasswordResetKey, common.PasswordResetQueue, func(body []byte) (*envelope, error) {
		var msg common.PasswordResetMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, err
		}

		return &envelope{
			recipient: msg.Email,
			template:  "password_reset_email.html",
			data: passwordResetData{
				Name:      msg.Name,
				ResetURL:  s.baseURL + "/reset-password?token=" + url.QueryEscape(msg.Token),
				ExpiresIn: "1 hour",
			},
		}, nil
	})
}

func (s *MailService) consume(kind string, key common.BindingKey, queue common.Queue, decode func(body []byte) (*envelope, error)) {
	msgs, err := s.mb.Consume(key, common.UserExchange, queue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("kind", kind), slog.String("error", err.Error()))
		return
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				env, err := decode(msg.Body)
				if err != nil {
					s.logger.Error("could not unmarshal message", slog.String("kind", kind), slog.String("error", err.Error()))
					msg.Nack(false, false)
					continue
				}

				s.deliver(kind, msg, env)

			case <-s.ctx.Done():
				s.logger.Info("stopping mail consumer due to context cancellation", slog.String("kind", kind))
				return
			}
		}
	}()
}

// deliver sends env with exponential backoff and full jitter. The message is acknowledged either way so a bad
// address cannot block the queue.
func (s *MailService) deliver(kind string, msg amqp.Delivery, env *envelope) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.m.send(env.recipient, env.data, env.template)
		if err == nil {
			s.logger.Info(kind+" email sent", slog.String("email", env.recipient))
			msg.Ack(false)
			return
		}

		delay := time.Duration(rand.Int63n(int64(baseDelay) << uint(attempt)))
		s.logger.Info("delaying "+kind+" email", slog.String("email", env.recipient), slog.Int("attempt", attempt), slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			return
		}
	}

	s.logger.Error("could not send "+kind+" email", slog.String("email", env.recipient))
	msg.Ack(false)
}

func (s *MailService) Close() {
	s.cancel()
}

package mailservice

import (
	"errors"
	"slices"
	"sync"

	"github.com/go-mail/mail/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
	"github.com/sushihentaime/threadline/internal/common"
)

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(name string, data any) (*Rendered, error) {
	args := m.Called(name, data)
	r, _ := args.Get(0).(*Rendered)
	return r, args.Error(1)
}

type MockDialer struct {
	mock.Mock
}

func (d *MockDialer) DialAndSend(m ...*mail.Message) error {
	args := d.Called(m)
	return args.Error(0)
}

var errSMTPUnavailable = errors.New("smtp unavailable")

type sentMail struct {
	Recipient string
	Data      any
	Template  string
}

// MockMailer records sent mail. The first Failures sends return an error.
type MockMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	attempts int
	Failures int
}

func (m *MockMailer) send(recipient string, data any, templateFile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts++
	if m.attempts <= m.Failures {
		return errSMTPUnavailable
	}

	m.sent = append(m.sent, sentMail{Recipient: recipient, Data: data, Template: templateFile})
	return nil
}

func (m *MockMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]sentMail(nil), m.sent...)
}

type MockLogger struct {
	mock.Mock
	mu       sync.Mutex
	messages []string
}

func (l *MockLogger) Info(msg string, args ...any) {
	l.Called(msg)
	l.record(msg)
}

func (l *MockLogger) Error(msg string, args ...any) {
	l.Called(msg)
	l.record(msg)
}

func (l *MockLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, msg)
}

// Logged reports whether msg has been logged at any level.
func (l *MockLogger) Logged(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Contains(l.messages, msg)
}

// MockMessageConsumer delivers Body once on every consumed queue and then closes the channel.
type MockMessageConsumer struct {
	mock.Mock
	Body string
}

func (m *MockMessageConsumer) Consume(key common.BindingKey, exchange common.Exchange, queue common.Queue) (<-chan amqp.Delivery, error) {
	m.Called(key, exchange, queue)

	msgsChan := make(chan amqp.Delivery)

	go func() {
		defer close(msgsChan)
		msgsChan <- amqp.Delivery{Body: []byte(m.Body)}
	}()

	return msgsChan, nil
}

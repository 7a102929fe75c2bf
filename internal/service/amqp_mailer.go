// Package service holds the notification transports.  AMQPMailer queues
// emails on RabbitMQ for the background consumer; SMTPMailer talks to the
// mail server directly.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/show-directory/internal/notify"
	q "github.com/iliyamo/show-directory/internal/queue"
)

// AMQPMailer publishes notification emails to the email queue.  The
// connection is opened lazily and reopened after the broker drops it.
type AMQPMailer struct {
	url string
	log *zap.Logger
	now func() time.Time

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPMailer returns a mailer publishing to the broker at url.
func NewAMQPMailer(url string, log *zap.Logger) *AMQPMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &AMQPMailer{url: url, log: log.With(zap.String("component", "amqp-mailer")), now: time.Now}
}

var _ notify.Transport = (*AMQPMailer)(nil)

// Available makes sure a channel to the broker is open.
func (m *AMQPMailer) Available(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.channel()
	return err
}

// Send publishes msg as a persistent JSON message.
func (m *AMQPMailer) Send(ctx context.Context, msg notify.Message) error {
	body, err := json.Marshal(q.EventFromMessage(msg, m.now()))
	if err != nil {
		return fmt.Errorf("marshal email event: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ch, err := m.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    m.now().UTC(),
		MessageId:    msg.BatchID,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.EmailQueueName, false, false, pub); err != nil {
		m.reset()
		m.log.Warn("publish failed", zap.Error(err), zap.String("to", msg.To))
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (m *AMQPMailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn, m.ch = nil, nil
	return err
}

// channel returns the open channel, dialing when needed.  m.mu must be held.
func (m *AMQPMailer) channel() (*amqp.Channel, error) {
	if m.ch != nil && !m.ch.IsClosed() && m.conn != nil && !m.conn.IsClosed() {
		return m.ch, nil
	}
	m.reset()

	conn, err := amqp.Dial(m.url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial broker: %v", notify.ErrTransportUnavailable, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: open channel: %v", notify.ErrTransportUnavailable, err)
	}
	// durable so queued emails survive broker restarts
	if _, err := ch.QueueDeclare(q.EmailQueueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: queue declare: %v", notify.ErrTransportUnavailable, err)
	}
	m.conn, m.ch = conn, ch
	return ch, nil
}

func (m *AMQPMailer) reset() {
	if m.conn != nil {
		_ = m.conn.Close()
	}
	m.conn, m.ch = nil, nil
}

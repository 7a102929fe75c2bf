package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/show-directory/internal/notify"
)

// ErrMalformedEvent marks a delivery that can never be sent.  Such
// deliveries are dropped instead of requeued.
var ErrMalformedEvent = errors.New("malformed email event")

// Sender delivers what the consumer reads off the queue.  The SMTP mailer
// satisfies it.
type Sender interface {
	Send(ctx context.Context, msg notify.Message) error
}

// StartEmailConsumer connects to RabbitMQ, declares the email queue and
// hands every delivery to sender.  It reconnects with a capped backoff and
// returns only when ctx is cancelled.
func StartEmailConsumer(ctx context.Context, url string, sender Sender, sendTimeout time.Duration, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "email-consumer"))

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, sender, sendTimeout, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sender Sender, sendTimeout time.Duration, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(EmailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(EmailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			err := handleMessage(ctx, d.Body, sender, sendTimeout)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, ErrMalformedEvent):
				log.Error("dropping email event", zap.Error(err))
				_ = d.Nack(false, false)
			default:
				// requeue once; a second failure is dropped to avoid tight loops
				log.Warn("send email failed", zap.Error(err), zap.Bool("redelivered", d.Redelivered))
				_ = d.Nack(false, !d.Redelivered)
			}
		}
	}
}

func handleMessage(ctx context.Context, body []byte, sender Sender, sendTimeout time.Duration) error {
	var ev EmailEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(ev.To) == "" {
		return fmt.Errorf("%w: empty recipient", ErrMalformedEvent)
	}
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := sender.Send(sendCtx, ev.Message()); err != nil {
		return fmt.Errorf("send to %s: %w", ev.To, err)
	}
	return nil
}

// Package queue carries notification emails over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/show-directory/internal/notify"
)

// EmailQueueName is the durable queue holding notification emails.
const EmailQueueName = "notification.email"

// EmailEvent is one queued notification email.  It carries the rendered
// message so the consumer never needs the database.
type EmailEvent struct {
	BatchID   string    `json:"batch_id"`
	RequestID uint64    `json:"request_id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	QueuedAt  time.Time `json:"queued_at"`
}

// EventFromMessage wraps a dispatcher message for the queue.
func EventFromMessage(msg notify.Message, now time.Time) EmailEvent {
	return EmailEvent{
		BatchID:   msg.BatchID,
		RequestID: msg.RequestID,
		To:        msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
		QueuedAt:  now.UTC(),
	}
}

// Message turns the event back into a dispatcher message.
func (e EmailEvent) Message() notify.Message {
	return notify.Message{
		BatchID:   e.BatchID,
		RequestID: e.RequestID,
		To:        e.To,
		Subject:   e.Subject,
		Body:      e.Body,
	}
}

package rabbitmq

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"docsort/internal/model"
)

const SignatureHeader = "X-Signature"

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// EventPublisher sends classification events to the filing queue.
type EventPublisher struct {
	openChannel func() (channel, error)
	queueName   string
	secret      []byte
}

func NewEventPublisher(conn *amqp.Connection, queueName, secret string) *EventPublisher {
	return newEventPublisher(func() (channel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}, queueName, secret)
}

func newEventPublisher(open func() (channel, error), queueName, secret string) *EventPublisher {
	return &EventPublisher{
		openChannel: open,
		queueName:   queueName,
		secret:      []byte(secret),
	}
}

func (p *EventPublisher) Publish(ctx context.Context, event model.ClassificationEvent) error {
	ch, err := p.openChannel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event payload failed: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    event.ID,
		Timestamp:    event.ClassifiedAt,
		Type:         "document.classified",
		Body:         payload,
		DeliveryMode: amqp.Persistent,
	}
	if len(p.secret) > 0 {
		msg.Headers = amqp.Table{SignatureHeader: Sign(p.secret, payload)}
	}

	if err := ch.PublishWithContext(ctx, "", p.queueName, false, false, msg); err != nil {
		return fmt.Errorf("publish event failed: %w", err)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

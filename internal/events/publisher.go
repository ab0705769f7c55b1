// Package events publishes pipeline notifications to a message broker so
// downstream consumers can react to finished ingests without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DocumentIngested is emitted after a document has been stored, chunked and
// summarized.
type DocumentIngested struct {
	Owner      string    `json:"owner"`
	Filename   string    `json:"filename"`
	TokenCount int       `json:"tokenCount"`
	UsedRAG    bool      `json:"usedRag"`
	IngestedAt time.Time `json:"ingestedAt"`
}

// Publisher emits pipeline events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishDocumentIngested(ctx context.Context, ev DocumentIngested) error
	Close() error
}

const routingKeyDocumentIngested = "document.ingested"

// AMQPPublisher publishes events to a RabbitMQ topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher connects to the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) PublishDocumentIngested(ctx context.Context, ev DocumentIngested) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKeyDocumentIngested, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now().UTC(),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKeyDocumentIngested, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishDocumentIngested(_ context.Context, ev DocumentIngested) error {
	slog.Debug("event dropped, no broker configured",
		"owner", ev.Owner, "filename", ev.Filename)
	return nil
}

func (NoopPublisher) Close() error { return nil }

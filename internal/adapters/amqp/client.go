package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// ChangeBus fans change events out to every running instance. Each instance binds its own
// exclusive, auto-deleted queue to a fanout exchange, so every instance sees every event.
type ChangeBus struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string

	// amqp091 channels must not be used for concurrent publishes.
	publishMu sync.Mutex
}

var _ portssvc.ChangeRelay = (*ChangeBus)(nil)

func NewChangeBus(url, exchangeName string) (*ChangeBus, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	bus := &ChangeBus{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
	}

	if err := bus.setup(); err != nil {
		bus.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return bus, nil
}

func (b *ChangeBus) setup() error {
	// Declare exchange
	err := b.channel.ExchangeDeclare(
		b.exchangeName, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Server-named queue that lives as long as this connection.
	queue, err := b.channel.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	b.queueName = queue.Name

	err = b.channel.QueueBind(
		b.queueName,    // queue name
		"",             // routing key, ignored by fanout
		b.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// Publish sends event to every instance, this one included.
func (b *ChangeBus) Publish(ctx context.Context, event domain.ChangeEvent) error {
	body, err := NewChangeMessage(event).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	b.publishMu.Lock()
	defer b.publishMu.Unlock()
	err = b.channel.PublishWithContext(
		ctx,
		b.exchangeName, // exchange
		"",             // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Transient,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.DebugContext(ctx, "Published change event",
		"component", "change_bus",
		"owner_id", event.OwnerID,
		"op", event.Op,
		"exchange", b.exchangeName)
	return nil
}

// Consume feeds received events to handler until ctx is done or the channel closes.
func (b *ChangeBus) Consume(ctx context.Context, handler func(context.Context, domain.ChangeEvent) error) error {
	msgs, err := b.channel.Consume(
		b.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		true,        // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming change events", "component", "change_bus", "queue", b.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping change event consumption", "component", "change_bus", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := ChangeMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal change message", "component", "change_bus", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := handler(ctx, msg.Event); err != nil {
				slog.ErrorContext(ctx, "Failed to handle change event",
					"component", "change_bus",
					"error", err,
					"owner_id", msg.Event.OwnerID)
				delivery.Nack(false, false)
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (b *ChangeBus) Close() error {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

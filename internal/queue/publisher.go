package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/listing-platform/internal/logging"
)

// DialTimeout bounds the TCP connect and AMQP handshake with the broker.
const DialTimeout = 3 * time.Second

// dial connects with both the TCP connect and the handshake bounded by
// timeout.
func dial(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

// Publisher sends events to a durable topic exchange. The connection is
// opened lazily and reopened after the broker drops it.
type Publisher struct {
	url         string
	exchange    string
	dialTimeout time.Duration
	logger      *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, exchange string, logger *slog.Logger) *Publisher {
	return &Publisher{url: url, exchange: exchange, dialTimeout: DialTimeout, logger: logging.Resolve(logger)}
}

// Publish sends ev with its type as routing key. Messages are persistent.
// Errors are logged and returned so callers can choose to ignore them.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	pub, err := buildPublishing(ev)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.logger.Warn("rabbitmq channel unavailable",
			"event", "events_channel_failed",
			"module", "queue",
			"layer", "adapter",
			"error", err.Error(),
		)
		return err
	}
	if err := ch.PublishWithContext(ctx,
		p.exchange, // exchange
		ev.Type,    // routing key
		false,      // mandatory
		false,      // immediate
		pub,
	); err != nil {
		p.reset()
		p.logger.Warn("rabbitmq publish failed",
			"event", "events_publish_failed",
			"module", "queue",
			"layer", "adapter",
			"event_type", ev.Type,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func buildPublishing(ev Event) (amqp.Publishing, error) {
	if ev.Type == "" {
		return amqp.Publishing{}, errors.New("queue: event type is required")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("queue: marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}, nil
}

// channel returns an open channel, dialing when needed. Caller holds mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := dial(p.url, p.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := declareExchange(ch, p.exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func declareExchange(ch *amqp.Channel, name string) error {
	// Durable so bindings survive broker restarts.
	if err := ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}

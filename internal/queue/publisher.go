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
)

// Publisher sends booking events.  Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, ev BookingEvent) error
}

// NoopPublisher drops every event.  It is used when events are disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, BookingEvent) error { return nil }

// ErrBrokerBusy is returned while another caller is connecting to the
// broker.  The event is dropped rather than queued behind the dial.
var ErrBrokerBusy = errors.New("rabbitmq: connection in progress")

// DefaultDialTimeout bounds the TCP dial and the AMQP handshake when the
// publish context has no earlier deadline.
const DefaultDialTimeout = 2 * time.Second

// AMQPPublisher publishes persistent JSON messages to QueueName on the
// default exchange.  The connection is opened lazily and reopened after a
// failure.  Dialing happens outside the lock and is bounded by the publish
// context.
type AMQPPublisher struct {
	url         string
	log         *slog.Logger
	dialTimeout time.Duration

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	dialing bool
}

// NewAMQPPublisher returns a publisher for the broker at url.  No connection
// is made until the first Publish.
func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log, dialTimeout: DefaultDialTimeout}
}

// Publish marshals ev and sends it.  On error the channel is torn down so the
// next call redials.
func (p *AMQPPublisher) Publish(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := p.channel(ctx)
	if err != nil {
		if !errors.Is(err, ErrBrokerBusy) {
			p.log.Warn("rabbitmq: connect failed", "error", err)
		}
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Type),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", QueueName, false, false, pub); err != nil {
		p.log.Warn("rabbitmq: publish failed", "error", err, "type", ev.Type)
		p.mu.Lock()
		if p.ch == ch {
			p.closeLocked()
		}
		p.mu.Unlock()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// channel returns the open channel or dials a new one.  Only one caller
// dials at a time; the others get ErrBrokerBusy.
func (p *AMQPPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	if p.ch != nil && !p.ch.IsClosed() {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	if p.dialing {
		p.mu.Unlock()
		return nil, ErrBrokerBusy
	}
	p.dialing = true
	p.closeLocked()
	p.mu.Unlock()

	conn, ch, err := p.open(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialing = false
	if err != nil {
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) open(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	timeout := p.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return nil, nil, ctx.Err()
		}
		if left < timeout {
			timeout = left
		}
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("queue declare: %w", err)
	}
	return conn, ch, nil
}

func (p *AMQPPublisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

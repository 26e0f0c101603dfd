package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends booking events to RabbitMQ.  It keeps one connection
// and channel open and redials lazily after the broker drops them.
// Messages are marked as persistent.
type Publisher struct {
	url         string
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a publisher for url.  No connection is made until
// the first Publish.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, dialTimeout: defaultDialTimeout}
}

const defaultDialTimeout = 5 * time.Second

// channel returns an open channel, dialing and declaring queues as needed.
// Callers must hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	for _, name := range Queues() {
		// Durable so messages survive broker restarts.
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("queue declare %s: %w", name, err)
		}
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// Publish sends ev to the queue named by ev.Type.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	if ev.Type == "" {
		return errors.New("event type required")
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", ev.Type, false, false, pub); err != nil {
		p.closeLocked()
		return fmt.Errorf("publish: %w", err)
	}
	logrus.WithFields(logrus.Fields{"queue": ev.Type, "booking_id": ev.BookingID}).Debug("event published")
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// StartBookingConsumer connects to RabbitMQ, declares the booking
// queues (durable) and appends every event to logPath as a single
// human-readable line.  It reconnects with exponential backoff and only
// returns once ctx is cancelled.  A message that cannot be processed is
// rejected without requeue so the consumer keeps going.
func StartBookingConsumer(ctx context.Context, url, logPath string) error {
	log := logrus.WithField("component", "booking-consumer")
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := amqp.DialConfig(url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(defaultDialTimeout),
		})
		if err != nil {
			log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, logPath, log)
		_ = conn.Close()
		if err != nil {
			log.WithError(err).Warn("consume loop ended; reconnecting")
			if !sleep(ctx, 2*time.Second) {
				return nil
			}
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

func consumeLoop(ctx context.Context, conn *amqp.Connection, logPath string, log *logrus.Entry) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("set QoS failed")
	}

	merged := make(chan amqp.Delivery)
	for _, name := range Queues() {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		go func(in <-chan amqp.Delivery) {
			for d := range in {
				select {
				case merged <- d:
				case <-ctx.Done():
					return
				}
			}
		}(msgs)
	}
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	log.Info("consuming booking events")
	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("channel closed")
		case d := <-merged:
			if err := handleMessage(d.Body, logPath); err != nil {
				log.WithError(err).Error("handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(body []byte, logPath string) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev BookingEvent) string {
	action := "Booking confirmed"
	if ev.Type == QueueBookingCancelled {
		action = "Booking cancelled"
	}
	hall := "-"
	if ev.HallID != nil {
		hall = fmt.Sprint(*ev.HallID)
	}
	return fmt.Sprintf("[%s] %s | booking_id=%d | user_id=%d | showtime_id=%d | hall=%s | movie=%q | seats=%d | starts=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), action, ev.BookingID, ev.UserID, ev.ShowtimeID,
		hall, ev.MovieTitle, ev.Seats, ev.StartTime.UTC().Format(time.RFC3339))
}

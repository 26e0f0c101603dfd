package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/queue"
)

// EventPublisher delivers booking events after commit.  *queue.Publisher
// satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// publish sends ev and only logs a failure: the booking is already
// committed and the event is an audit side channel.
func publish(ctx context.Context, p EventPublisher, ev queue.BookingEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event":      ev.Type,
			"booking_id": ev.BookingID,
		}).Warn("failed to publish booking event")
	}
}

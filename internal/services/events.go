package services

import (
	"context"
	"errors"

	"rekrutacje/internal/amqp"
	applog "rekrutacje/internal/log"
)

// ErrInvalidRecord wraps every validation failure returned by the services.
var ErrInvalidRecord = errors.New("invalid record")

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error
}

// notifier fans a completed write out to the cache invalidation hook and
// the optional event publisher. Publishing never fails the write.
type notifier struct {
	publisher EventPublisher
	onChange  []func()
	logger    *applog.Logger
}

func (n *notifier) changed(ctx context.Context, msg *amqp.RecordChangedMessage) {
	for _, fn := range n.onChange {
		fn()
	}

	if n.publisher == nil {
		n.logger.DebugContext(ctx, "Event publisher not configured, skipping record change event",
			"action", msg.Action)
		return
	}
	if err := n.publisher.PublishRecordChanged(ctx, msg); err != nil {
		n.logger.ErrorContext(ctx, "Failed to publish record change event",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeNetwork,
			"action", msg.Action,
			applog.FieldRecordID, msg.RecordID)
	}
}

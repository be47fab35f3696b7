package events

import (
	"context"

	"go.uber.org/zap"
)

// Publisher delivers committed events to interested parties. Delivery is
// fire-and-forget from the caller's point of view.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the structured log. It is used when no broker
// is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.logger.Info("event published",
		zap.String("event_id", event.ID),
		zap.String("event", string(event.Name)),
		zap.Any("audience", event.Audience),
		zap.Any("payload", event.Payload),
	)
	return nil
}

var _ Publisher = (*LogPublisher)(nil)

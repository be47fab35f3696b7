package app

import (
	"go.uber.org/zap"

	"ridedispatch/internal/config"
	"ridedispatch/internal/events"
)

// NewPublisher returns a RabbitMQ publisher when the broker is enabled and a
// log publisher otherwise. The returned close func is never nil.
func NewPublisher(cfg config.RabbitMQConfig, logger *zap.Logger) (events.Publisher, func() error, error) {
	if !cfg.Enabled {
		logger.Info("RabbitMQ disabled, events go to the log")
		return events.NewLogPublisher(logger), func() error { return nil }, nil
	}

	p, err := events.NewRabbitPublisher(cfg.URL, cfg.Exchange, logger)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const expiryBatchSize = 100

// RequestExpirer is implemented by DispatchService.
type RequestExpirer interface {
	ExpireStaleRequests(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// Sweeper periodically cancels ride requests nobody accepted within ttl.
type Sweeper struct {
	expirer  RequestExpirer
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewSweeper creates a new Sweeper.
func NewSweeper(expirer RequestExpirer, ttl, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		expirer:  expirer,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps on every tick until ctx is done. A non-positive ttl disables it.
func (s *Sweeper) Run(ctx context.Context) {
	if s.ttl <= 0 || s.interval <= 0 {
		s.logger.Info("ride request expiry disabled")
		return
	}

	s.logger.Info("ride request expiry started",
		zap.Duration("ttl", s.ttl),
		zap.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass and returns the number of rides cancelled.
func (s *Sweeper) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.ttl)

	n, err := s.expirer.ExpireStaleRequests(ctx, cutoff, expiryBatchSize)
	if err != nil {
		s.logger.Error("ride request expiry failed", zap.Error(err))
	}
	if n > 0 {
		s.logger.Info("expired stale ride requests", zap.Int("count", n), zap.Time("cutoff", cutoff))
	}
	return n
}

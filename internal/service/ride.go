package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/events"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
)

// maxMessageLength caps a ride message in bytes.
const maxMessageLength = 1000

// RideService handles ride reads and ride room messaging.
type RideService struct {
	rideRepo  repository.RideRepository
	cache     redis.RideCacheInterface
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewRideService creates a new RideService. cache may be nil.
func NewRideService(
	rideRepo repository.RideRepository,
	cache redis.RideCacheInterface,
	publisher events.Publisher,
	logger *zap.Logger,
) *RideService {
	return &RideService{
		rideRepo:  rideRepo,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// GetRide retrieves a ride, reading through the cache.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	const op = "GetRide"

	if strings.TrimSpace(rideID) == "" {
		return nil, classify(op, ErrInvalidRideID, rideID, "")
	}

	if s.cache != nil {
		cached, err := s.cache.GetRide(ctx, rideID)
		if err != nil {
			s.logger.Warn("ride cache read failed", zap.String("ride_id", rideID), zap.Error(err))
		} else if cached != nil {
			return cached.Ride(), nil
		}
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, classify(op, err, rideID, "")
	}

	if s.cache != nil {
		if err := s.cache.SetRide(ctx, redis.NewCachedRide(ride)); err != nil {
			s.logger.Warn("ride cache write failed", zap.String("ride_id", rideID), zap.Error(err))
		}
	}

	return ride, nil
}

// SendRideMessage posts a message into the ride room. Only the ride's
// customer and its assigned driver may write.
func (s *RideService) SendRideMessage(ctx context.Context, rideID, senderID, message string) (*domain.RideMessage, error) {
	const op = "SendRideMessage"

	if strings.TrimSpace(rideID) == "" {
		return nil, classify(op, ErrInvalidRideID, rideID, "")
	}

	message = strings.TrimSpace(message)
	if strings.TrimSpace(senderID) == "" || message == "" || len(message) > maxMessageLength {
		return nil, classify(op, ErrInvalidMessage, rideID, "")
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, classify(op, err, rideID, "")
	}

	if senderID != ride.CustomerID && !ride.IsAssignedTo(senderID) {
		return nil, classify(op, ErrRideNotAvailable, rideID, "")
	}

	msg := &domain.RideMessage{
		RideID:  rideID,
		Sender:  senderID,
		Message: message,
		SentAt:  s.now().UTC(),
	}

	if err := s.publisher.Publish(ctx, events.NewRideMessage(*msg)); err != nil {
		return nil, classify(op, err, rideID, "")
	}

	return msg, nil
}

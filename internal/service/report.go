package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
)

// reportStatuses are the ride statuses that count towards a driver's report.
var reportStatuses = []domain.RideStatus{
	domain.RideStatusPaymentConfirmed,
	domain.RideStatusCompleted,
}

// ReportService builds read-only driver reports.
type ReportService struct {
	rideRepo   repository.RideRepository
	driverRepo repository.DriverRepository
	cache      redis.ReportCacheInterface
	logger     *zap.Logger
}

// NewReportService creates a new ReportService. cache may be nil.
func NewReportService(
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	cache redis.ReportCacheInterface,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		rideRepo:   rideRepo,
		driverRepo: driverRepo,
		cache:      cache,
		logger:     logger,
	}
}

// DriverReport aggregates the driver's settled rides.
func (s *ReportService) DriverReport(ctx context.Context, driverID string) (*domain.DriverReport, error) {
	const op = "DriverReport"

	if strings.TrimSpace(driverID) == "" {
		return nil, classify(op, ErrInvalidDriverID, "", driverID)
	}

	if s.cache != nil {
		cached, err := s.cache.GetReport(ctx, driverID)
		if err != nil {
			s.logger.Warn("report cache read failed", zap.String("driver_id", driverID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	if _, err := s.driverRepo.GetByID(ctx, driverID); err != nil {
		return nil, classify(op, err, "", driverID)
	}

	rides, err := s.rideRepo.ListByDriver(ctx, driverID, reportStatuses)
	if err != nil {
		return nil, classify(op, err, "", driverID)
	}

	report := buildReport(driverID, rides)

	if s.cache != nil {
		if err := s.cache.SetReport(ctx, report); err != nil {
			s.logger.Warn("report cache write failed", zap.String("driver_id", driverID), zap.Error(err))
		}
	}

	return report, nil
}

func buildReport(driverID string, rides []*domain.Ride) *domain.DriverReport {
	report := &domain.DriverReport{DriverID: driverID}

	var ratingSum float64
	for _, r := range rides {
		report.TotalRides++
		report.Earnings += r.FareAmount
		report.Tips += r.TipAmount
		if r.Rating != nil {
			ratingSum += *r.Rating
			report.RatedRides++
		}
	}

	if report.RatedRides > 0 {
		report.AverageRating = ratingSum / float64(report.RatedRides)
	}

	return report
}

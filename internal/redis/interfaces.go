package redis

import (
	"context"

	"ridedispatch/internal/domain"
)

// RideCacheInterface defines the ride read-through cache.
type RideCacheInterface interface {
	GetRide(ctx context.Context, rideID string) (*CachedRide, error)
	SetRide(ctx context.Context, ride *CachedRide) error
	InvalidateRide(ctx context.Context, rideID string) error
}

// AvailabilityCacheInterface mirrors committed driver availability.
type AvailabilityCacheInterface interface {
	AddAvailableDriver(ctx context.Context, driverID string) error
	RemoveAvailableDriver(ctx context.Context, driverID string) error
	InvalidateDriver(ctx context.Context, driverID string) error
}

// ReportCacheInterface defines the driver report cache.
type ReportCacheInterface interface {
	GetReport(ctx context.Context, driverID string) (*domain.DriverReport, error)
	SetReport(ctx context.Context, report *domain.DriverReport) error
	InvalidateReport(ctx context.Context, driverID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ RideCacheInterface         = (*CacheStore)(nil)
	_ AvailabilityCacheInterface = (*CacheStore)(nil)
	_ ReportCacheInterface       = (*CacheStore)(nil)
)

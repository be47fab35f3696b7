package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"ridedispatch/internal/domain"
)

// CacheStore handles read-model caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	RideCacheTTL   = 10 * time.Second // status moves on every transition
	ReportCacheTTL = 60 * time.Second
)

// Key prefixes
const (
	driverCachePrefix = "cache:driver:"
	rideCachePrefix   = "cache:ride:"
	reportCachePrefix = "cache:report:"

	availableDriversKey = "available_drivers"
)

// CachedRide represents a cached ride entity.
type CachedRide struct {
	ID          string                 `json:"id"`
	CustomerID  string                 `json:"customer_id"`
	DriverID    string                 `json:"driver_id,omitempty"`
	Status      string                 `json:"status"`
	FareAmount  float64                `json:"fare_amount"`
	TipAmount   float64                `json:"tip_amount"`
	Rating      *float64               `json:"rating,omitempty"`
	Decline     *domain.DeclineDetails `json:"decline,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	CancelledAt time.Time              `json:"cancelled_at,omitempty"`
}

// NewCachedRide converts a ride into its cached form.
func NewCachedRide(r *domain.Ride) *CachedRide {
	return &CachedRide{
		ID:          r.ID,
		CustomerID:  r.CustomerID,
		DriverID:    r.DriverID,
		Status:      string(r.Status),
		FareAmount:  r.FareAmount,
		TipAmount:   r.TipAmount,
		Rating:      r.Rating,
		Decline:     r.Decline,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CancelledAt: r.CancelledAt,
	}
}

// Ride converts the cached form back into a ride.
func (c *CachedRide) Ride() *domain.Ride {
	return &domain.Ride{
		ID:          c.ID,
		CustomerID:  c.CustomerID,
		DriverID:    c.DriverID,
		Status:      domain.RideStatus(c.Status),
		FareAmount:  c.FareAmount,
		TipAmount:   c.TipAmount,
		Rating:      c.Rating,
		Decline:     c.Decline,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		CancelledAt: c.CancelledAt,
	}
}

// GetRide retrieves a ride from cache. A miss returns nil, nil.
func (s *CacheStore) GetRide(ctx context.Context, rideID string) (*CachedRide, error) {
	var ride CachedRide
	ok, err := s.getJSON(ctx, rideCachePrefix+rideID, &ride)
	if err != nil || !ok {
		return nil, err
	}
	return &ride, nil
}

// SetRide stores a ride in cache.
func (s *CacheStore) SetRide(ctx context.Context, ride *CachedRide) error {
	return s.setJSON(ctx, rideCachePrefix+ride.ID, ride, RideCacheTTL)
}

// InvalidateRide removes a ride from cache.
func (s *CacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	return s.client.Del(ctx, rideCachePrefix+rideID).Err()
}

// InvalidateDriver removes a driver from cache.
func (s *CacheStore) InvalidateDriver(ctx context.Context, driverID string) error {
	return s.client.Del(ctx, driverCachePrefix+driverID).Err()
}

// AddAvailableDriver adds a driver to the available set.
func (s *CacheStore) AddAvailableDriver(ctx context.Context, driverID string) error {
	return s.client.SAdd(ctx, availableDriversKey, driverID).Err()
}

// RemoveAvailableDriver removes a driver from the available set.
func (s *CacheStore) RemoveAvailableDriver(ctx context.Context, driverID string) error {
	return s.client.SRem(ctx, availableDriversKey, driverID).Err()
}

// GetReport retrieves a driver report from cache. A miss returns nil, nil.
func (s *CacheStore) GetReport(ctx context.Context, driverID string) (*domain.DriverReport, error) {
	var report domain.DriverReport
	ok, err := s.getJSON(ctx, reportCachePrefix+driverID, &report)
	if err != nil || !ok {
		return nil, err
	}
	return &report, nil
}

// SetReport stores a driver report in cache.
func (s *CacheStore) SetReport(ctx context.Context, report *domain.DriverReport) error {
	return s.setJSON(ctx, reportCachePrefix+report.DriverID, report, ReportCacheTTL)
}

// InvalidateReport removes a driver report from cache.
func (s *CacheStore) InvalidateReport(ctx context.Context, driverID string) error {
	return s.client.Del(ctx, reportCachePrefix+driverID).Err()
}

func (s *CacheStore) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // Cache miss
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CacheStore) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

const rideColumns = `id, customer_id, driver_id, status, fare_amount, tip_amount, rating,
	decline_reason, declined_by, declined_at, cancelled_at, created_at, updated_at`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return scanRide(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a ride and locks its row.
func (r *RideRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1 FOR UPDATE`
	return scanRide(r.q.QueryRowContext(ctx, query, id))
}

// Update persists the mutable columns of a ride.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides
		SET driver_id = $1, status = $2, decline_reason = $3, declined_by = $4, declined_at = $5,
		    cancelled_at = $6, updated_at = $7
		WHERE id = $8
	`

	var declineReason, declinedBy sql.NullString
	var declinedAt sql.NullTime
	if d := ride.Decline; d != nil {
		declineReason = sql.NullString{String: d.Reason, Valid: true}
		declinedBy = sql.NullString{String: d.DeclinedBy, Valid: true}
		declinedAt = sql.NullTime{Time: d.DeclinedAt, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query,
		nullString(ride.DriverID),
		ride.Status,
		declineReason,
		declinedBy,
		declinedAt,
		nullTime(ride.CancelledAt),
		ride.UpdatedAt,
		ride.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListByDriver retrieves the rides of a driver in any of the given statuses.
func (r *RideRepository) ListByDriver(ctx context.Context, driverID string, statuses []domain.RideStatus) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 AND status = ANY($2) ORDER BY created_at`

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	rows, err := r.q.QueryContext(ctx, query, driverID, pq.Array(names))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// ListRequestedBefore returns IDs of REQUESTED rides created before cutoff, oldest first.
func (r *RideRepository) ListRequestedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	query := `SELECT id FROM rides WHERE status = $1 AND created_at < $2 ORDER BY created_at LIMIT $3`

	rows, err := r.q.QueryContext(ctx, query, domain.RideStatusRequested, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, declineReason, declinedBy sql.NullString
	var rating sql.NullFloat64
	var declinedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.CustomerID,
		&driverID,
		&ride.Status,
		&ride.FareAmount,
		&ride.TipAmount,
		&rating,
		&declineReason,
		&declinedBy,
		&declinedAt,
		&cancelledAt,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	ride.DriverID = driverID.String
	if rating.Valid {
		v := rating.Float64
		ride.Rating = &v
	}
	if declineReason.Valid {
		ride.Decline = &domain.DeclineDetails{
			Reason:     declineReason.String,
			DeclinedBy: declinedBy.String,
			DeclinedAt: declinedAt.Time,
		}
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}

	return &ride, nil
}

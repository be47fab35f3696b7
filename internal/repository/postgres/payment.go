package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

const paymentColumns = `id, ride_id, customer_id, amount, status, payment_method, payment_details,
	gateway_payment_id, updated_at`

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

// GetByRideID retrieves the payment of a ride.
func (r *PaymentRepository) GetByRideID(ctx context.Context, rideID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ride_id = $1`
	return scanPayment(r.q.QueryRowContext(ctx, query, rideID))
}

// GetByRideIDForUpdate retrieves the payment of a ride and locks its row.
func (r *PaymentRepository) GetByRideIDForUpdate(ctx context.Context, rideID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ride_id = $1 FOR UPDATE`
	return scanPayment(r.q.QueryRowContext(ctx, query, rideID))
}

// Update persists status and gateway reference of a payment.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `UPDATE payments SET status = $1, gateway_payment_id = $2, updated_at = $3 WHERE id = $4`

	result, err := r.q.ExecContext(ctx, query,
		payment.Status,
		nullString(payment.GatewayPaymentID),
		payment.UpdatedAt,
		payment.ID,
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

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	var details []byte
	var gatewayID sql.NullString

	err := row.Scan(
		&payment.ID,
		&payment.RideID,
		&payment.CustomerID,
		&payment.Amount,
		&payment.Status,
		&payment.Method,
		&details,
		&gatewayID,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if len(details) > 0 {
		if err := json.Unmarshal(details, &payment.Details); err != nil {
			return nil, fmt.Errorf("decode payment_details of %s: %w", payment.ID, err)
		}
	}
	payment.GatewayPaymentID = gatewayID.String

	return &payment, nil
}

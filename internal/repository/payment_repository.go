package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-finance-api/internal/models"
)

// PaymentRepository manages persistence for fee payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment row.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO payments (id, fee_id, amount, method, status, receipt_no, collected_by, paid_at, created_at)
		VALUES (:id, :fee_id, :amount, :method, :status, :receipt_no, :collected_by, :paid_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// ListByFee returns all payments against one fee record, oldest first.
func (r *PaymentRepository) ListByFee(ctx context.Context, feeID string) ([]models.Payment, error) {
	const query = `SELECT id, fee_id, amount, method, status, receipt_no, collected_by, paid_at, created_at
		FROM payments WHERE fee_id = $1 ORDER BY paid_at ASC`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, feeID); err != nil {
		return nil, fmt.Errorf("list payments for fee: %w", err)
	}
	return payments, nil
}

// ListByFeeIDs returns payments for a batch of fee records in one round trip.
func (r *PaymentRepository) ListByFeeIDs(ctx context.Context, feeIDs []string) ([]models.Payment, error) {
	if len(feeIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, fee_id, amount, method, status, receipt_no, collected_by, paid_at, created_at FROM payments WHERE fee_id IN (?) ORDER BY paid_at ASC`, feeIDs)
	if err != nil {
		return nil, fmt.Errorf("build payment batch query: %w", err)
	}
	query = r.db.Rebind(query)

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("list payments for fee batch: %w", err)
	}
	return payments, nil
}

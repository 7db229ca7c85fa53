package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rocketharbor/wdpay/internal/domain"
)

// PaymentRepository implements usecase.PaymentRepository on PostgreSQL.
// Row locks (SELECT ... FOR UPDATE) serialize attach against reconcile on
// the same payment; status transitions are guarded by a status predicate
// in the UPDATE so terminal states are never overwritten.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, amount, recipient, reference, status, tx_hash, created_at, confirmed_at`

// Create creates a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments (id, amount, recipient, reference, status, tx_hash, created_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`,
		payment.ID,
		decimalToNumeric(payment.Amount),
		payment.Recipient,
		payment.Reference,
		string(payment.Status),
		payment.TxHash,
		timeToPgTimestamptz(payment.CreatedAt),
		timePtrToPgTimestamptz(payment.ConfirmedAt),
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)

	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}

	return payment, nil
}

// AttachTxHash resolves the unique active payment for reference and stores
// the hash. The candidate rows are locked so a concurrent reconcile on the
// same payment serializes behind the attach.
func (r *PaymentRepository) AttachTxHash(ctx context.Context, reference, txHash string) (*domain.Payment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE reference = $1 AND status = 'pending'
		FOR UPDATE`,
		reference,
	)
	if err != nil {
		return nil, err
	}

	candidates, err := scanPayments(rows)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, domain.ErrPaymentNotFound
	}
	if len(candidates) > 1 {
		return nil, domain.ErrAmbiguousReference
	}

	payment := candidates[0]
	if err := payment.AttachTxHash(txHash); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE payments SET tx_hash = $2 WHERE id = $1`, payment.ID, payment.TxHash); err != nil {
		return nil, fmt.Errorf("update tx hash: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return payment, nil
}

// MarkConfirmed transitions pending -> confirmed. The status predicate
// makes the transition monotonic and stamps confirmed_at at most once.
func (r *PaymentRepository) MarkConfirmed(ctx context.Context, id string, confirmedAt time.Time) (*domain.Payment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE payments
		SET status = 'confirmed', confirmed_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING `+paymentColumns,
		id,
		timeToPgTimestamptz(confirmedAt.UTC()),
	)

	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already terminal, or unknown; return the current row.
			return r.GetByID(ctx, id)
		}
		return nil, err
	}

	return payment, nil
}

// MarkFailed transitions pending -> failed, monotonic like MarkConfirmed.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id string) (*domain.Payment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE payments
		SET status = 'failed'
		WHERE id = $1 AND status = 'pending'
		RETURNING `+paymentColumns,
		id,
	)

	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.GetByID(ctx, id)
		}
		return nil, err
	}

	return payment, nil
}

// ListHashedPending returns pending payments carrying a transaction hash.
func (r *PaymentRepository) ListHashedPending(ctx context.Context, limit int) ([]*domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE status = 'pending' AND tx_hash IS NOT NULL
		ORDER BY created_at
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}

	return scanPayments(rows)
}

func scanPayments(rows pgx.Rows) ([]*domain.Payment, error) {
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		payment     domain.Payment
		amount      pgtype.Numeric
		status      string
		txHash      *string
		createdAt   pgtype.Timestamptz
		confirmedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&payment.ID,
		&amount,
		&payment.Recipient,
		&payment.Reference,
		&status,
		&txHash,
		&createdAt,
		&confirmedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.Amount = numericToDecimal(amount)
	payment.Status = domain.PaymentStatus(status)
	if txHash != nil {
		payment.TxHash = *txHash
	}
	payment.CreatedAt = createdAt.Time
	if confirmedAt.Valid {
		at := confirmedAt.Time
		payment.ConfirmedAt = &at
	}

	return &payment, nil
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func timePtrToPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return timeToPgTimestamptz(*t)
}

package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paymentsys/checkout-service/internal/checkout/domain"
	"github.com/paymentsys/checkout-service/pkg/tracing"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const paymentColumns = `id, order_id, amount, currency, checkout_id, status, created_at, updated_at`

func (r *Repository) FindPaymentByOrder(ctx context.Context, orderID string) (domain.Payment, bool, error) {
	return r.findPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id=$1`, orderID)
}

func (r *Repository) FindPaymentByCheckoutID(ctx context.Context, checkoutID string) (domain.Payment, bool, error) {
	return r.findPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE checkout_id=$1`, checkoutID)
}

func (r *Repository) findPayment(ctx context.Context, query, arg string) (domain.Payment, bool, error) {
	var p domain.Payment
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&p.ID, &p.OrderID, &p.Amount, &p.Currency, &p.CheckoutID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, false, nil
	}
	if err != nil {
		return domain.Payment{}, false, &domain.StorageError{Op: "find payment", Err: err}
	}
	return p, true, nil
}

// UpsertPayment is a single conditional insert-or-update so two concurrent
// checkout creations for the same order cannot produce duplicate rows; the
// last writer wins deterministically.
func (r *Repository) UpsertPayment(ctx context.Context, orderID string, amount float64, currency, checkoutID string) (domain.Payment, error) {
	now := time.Now().UTC()
	var p domain.Payment
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payments (id, order_id, amount, currency, checkout_id, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,'pending',$6,$6)
		ON CONFLICT (order_id) DO UPDATE
			SET amount=$3, currency=$4, checkout_id=$5, status='pending', updated_at=$6
		RETURNING `+paymentColumns,
		uuid.NewString(), orderID, amount, currency, checkoutID, now).
		Scan(&p.ID, &p.OrderID, &p.Amount, &p.Currency, &p.CheckoutID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Payment{}, &domain.StorageError{Op: "upsert payment", Err: err}
	}
	return p, nil
}

// TransitionPaymentStatus is the compare-and-swap the reconciler relies on:
// the UPDATE only matches a row still in pending, and the outbox event is
// written in the same transaction, so racing reconciles produce exactly one
// transition and one event.
func (r *Repository) TransitionPaymentStatus(ctx context.Context, p domain.Payment, to domain.PaymentStatus, eventType string, payload []byte) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, &domain.StorageError{Op: "begin transition", Err: err}
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx,
		`UPDATE payments SET status=$2, updated_at=$3 WHERE id=$1 AND status='pending'`,
		p.ID, to, time.Now().UTC())
	if err != nil {
		return false, &domain.StorageError{Op: "transition payment", Err: err}
	}
	if ct.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		 VALUES ($1,$2,$3,$4,$5,'pending')`,
		"payment", p.OrderID, eventType, payload, tracing.Traceparent(ctx))
	if err != nil {
		return false, &domain.StorageError{Op: "enqueue outbox event", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, &domain.StorageError{Op: "commit transition", Err: err}
	}
	return true, nil
}

func (r *Repository) GetOrder(ctx context.Context, id string) (domain.Order, bool, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx,
		`SELECT id, customer, amount, currency, status, created_at, updated_at FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.Customer, &o.Amount, &o.Currency, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, &domain.StorageError{Op: "get order", Err: err}
	}
	return o, true, nil
}

func (r *Repository) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`,
		orderID, status, time.Now().UTC())
	if err != nil {
		return &domain.StorageError{Op: "update order status", Err: err}
	}
	return nil
}

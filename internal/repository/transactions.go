package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kipsangc/ramphub/internal/domain"
)

const transactionColumns = `id, user_id, direction, asset_amount, fiat_amount, currency, status,
	payment_method, COALESCE(provider_ref, ''), COALESCE(contract_ref, ''), metadata,
	created_at, updated_at, completed_at`

func (r *Repository) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("encode transaction metadata: %w", err)
	}
	query := `
		INSERT INTO transactions (user_id, direction, asset_amount, fiat_amount, currency, status, payment_method, provider_ref, contract_ref, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	err = r.db.QueryRow(ctx, query,
		t.UserID, t.Direction, t.AssetAmount, t.FiatAmount, t.Currency, t.Status,
		t.PaymentMethod, t.ProviderRef, t.ContractRef, meta,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	t, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) ListTransactionsByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateTransaction reads the row under a lock, lets fn mutate it, then
// writes the mutable columns back. Concurrent updates to the same row
// serialize on the lock.
func (r *Repository) UpdateTransaction(ctx context.Context, id int64, fn func(*domain.Transaction) error) error {
	return r.updateTransactionWhere(ctx, `id = $1`, id, fn)
}

// UpdateTransactionByProviderRef is UpdateTransaction keyed by the provider
// correlation id instead of the primary key.
func (r *Repository) UpdateTransactionByProviderRef(ctx context.Context, providerRef string, fn func(*domain.Transaction) error) error {
	return r.updateTransactionWhere(ctx, `provider_ref = $1`, providerRef, fn)
}

func (r *Repository) updateTransactionWhere(ctx context.Context, where string, key any, fn func(*domain.Transaction) error) error {
	return r.runInTx(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where + ` FOR UPDATE`
		t, err := scanTransaction(tx.QueryRow(ctx, query, key))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock transaction: %w", err)
		}

		if err := fn(t); err != nil {
			return err
		}

		meta, err := json.Marshal(t.Metadata)
		if err != nil {
			return fmt.Errorf("encode transaction metadata: %w", err)
		}
		update := `
			UPDATE transactions
			SET status = $2, provider_ref = NULLIF($3, ''), contract_ref = NULLIF($4, ''),
				metadata = $5, completed_at = $6, updated_at = NOW()
			WHERE id = $1`
		if _, err := tx.Exec(ctx, update, t.ID, t.Status, t.ProviderRef, t.ContractRef, meta, t.CompletedAt); err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}
		return nil
	})
}

func (r *Repository) ListStalePendingIDs(ctx context.Context, olderThan time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id FROM transactions
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3`
	rows, err := r.db.Query(ctx, query, domain.TxStatusPending, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending transactions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var meta []byte
	err := row.Scan(
		&t.ID, &t.UserID, &t.Direction, &t.AssetAmount, &t.FiatAmount, &t.Currency, &t.Status,
		&t.PaymentMethod, &t.ProviderRef, &t.ContractRef, &meta,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode transaction metadata: %w", err)
		}
	}
	return t, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// IsEligible reports whether a user exists, is active, and has cleared KYC.
// Ramp initiation refuses to spend money for anyone else.
func (r *Repository) IsEligible(ctx context.Context, userID int64) (bool, error) {
	query := `SELECT is_active AND kyc_status = 'APPROVED' FROM users WHERE id = $1`
	var ok bool
	err := r.db.QueryRow(ctx, query, userID).Scan(&ok)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check user eligibility: %w", err)
	}
	return ok, nil
}

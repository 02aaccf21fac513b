package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kipsangc/ramphub/internal/domain"
)

const studentColumns = `id, user_id, student_number, university, graduation_year,
	enrollment_status, is_verified, created_at, updated_at`

const investmentColumns = `id, student_id, investment_type, principal, currency,
	lock_period_months, lock_start, lock_end, is_locked, expected_return_rate,
	actual_return, status, withdrawal_requested_at, withdrawn_at, created_at, updated_at`

func (r *Repository) CreateStudent(ctx context.Context, s *domain.Student) error {
	query := `
		INSERT INTO students (user_id, student_number, university, graduation_year, enrollment_status, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		s.UserID, s.StudentNumber, s.University, s.GraduationYear, s.EnrollmentStatus, s.IsVerified,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

func (r *Repository) GetStudent(ctx context.Context, id int64) (*domain.Student, error) {
	return r.getStudentWhere(ctx, `id = $1`, id)
}

func (r *Repository) GetStudentByUser(ctx context.Context, userID int64) (*domain.Student, error) {
	return r.getStudentWhere(ctx, `user_id = $1`, userID)
}

func (r *Repository) GetStudentByNumber(ctx context.Context, studentNumber string) (*domain.Student, error) {
	return r.getStudentWhere(ctx, `student_number = $1`, studentNumber)
}

func (r *Repository) getStudentWhere(ctx context.Context, where string, key any) (*domain.Student, error) {
	s := &domain.Student{}
	query := `SELECT ` + studentColumns + ` FROM students WHERE ` + where
	err := r.db.QueryRow(ctx, query, key).Scan(
		&s.ID, &s.UserID, &s.StudentNumber, &s.University, &s.GraduationYear,
		&s.EnrollmentStatus, &s.IsVerified, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

func (r *Repository) UpdateStudentVerified(ctx context.Context, id int64, verified bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE students SET is_verified = $2, updated_at = NOW() WHERE id = $1`, id, verified)
	if err != nil {
		return fmt.Errorf("failed to update student verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CreateInvestment(ctx context.Context, inv *domain.Investment) error {
	query := `
		INSERT INTO investments (student_id, investment_type, principal, currency, lock_period_months,
			lock_start, lock_end, is_locked, expected_return_rate, actual_return, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		inv.StudentID, inv.InvestmentType, inv.Principal, inv.Currency, inv.LockPeriodMonths,
		inv.LockStart, inv.LockEnd, inv.IsLocked, inv.ExpectedReturnRate, inv.ActualReturn, inv.Status,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}
	return nil
}

func (r *Repository) GetInvestment(ctx context.Context, id int64) (*domain.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1`
	inv, err := scanInvestment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get investment: %w", err)
	}
	return inv, nil
}

func (r *Repository) ListInvestmentsByStudent(ctx context.Context, studentID int64) ([]domain.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE student_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	defer rows.Close()

	var out []domain.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// UpdateInvestment reads the row FOR UPDATE, lets fn mutate it, then writes
// the mutable columns back, so withdrawal transitions serialize per row.
func (r *Repository) UpdateInvestment(ctx context.Context, id int64, fn func(*domain.Investment) error) error {
	return r.runInTx(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1 FOR UPDATE`
		inv, err := scanInvestment(tx.QueryRow(ctx, query, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock investment: %w", err)
		}

		if err := fn(inv); err != nil {
			return err
		}

		update := `
			UPDATE investments
			SET is_locked = $2, actual_return = $3, status = $4,
				withdrawal_requested_at = $5, withdrawn_at = $6, updated_at = NOW()
			WHERE id = $1`
		if _, err := tx.Exec(ctx, update,
			inv.ID, inv.IsLocked, inv.ActualReturn, inv.Status,
			inv.WithdrawalRequestedAt, inv.WithdrawnAt,
		); err != nil {
			return fmt.Errorf("failed to update investment: %w", err)
		}
		return nil
	})
}

func scanInvestment(row pgx.Row) (*domain.Investment, error) {
	inv := &domain.Investment{}
	err := row.Scan(
		&inv.ID, &inv.StudentID, &inv.InvestmentType, &inv.Principal, &inv.Currency,
		&inv.LockPeriodMonths, &inv.LockStart, &inv.LockEnd, &inv.IsLocked, &inv.ExpectedReturnRate,
		&inv.ActualReturn, &inv.Status, &inv.WithdrawalRequestedAt, &inv.WithdrawnAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

package service

import (
	"context"
	"time"

	"github.com/kipsangc/ramphub/internal/domain"
)

// TransactionStore is the persistence surface the ramp services depend on.
// The Update* methods run fn against a fresh row read while the row is
// locked, so a read-decide-write sequence cannot interleave with another
// writer. fn mutates the passed transaction in place; returning an error
// aborts the update without persisting anything.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
	ListTransactionsByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, fn func(*domain.Transaction) error) error
	UpdateTransactionByProviderRef(ctx context.Context, providerRef string, fn func(*domain.Transaction) error) error
	ListStalePendingIDs(ctx context.Context, olderThan time.Time, limit int) ([]int64, error)
}

// InvestmentStore persists student profiles and their investment locks.
// UpdateInvestment carries the same row-locked contract as the transaction
// store so withdrawal transitions serialize per investment.
type InvestmentStore interface {
	CreateStudent(ctx context.Context, s *domain.Student) error
	GetStudent(ctx context.Context, id int64) (*domain.Student, error)
	GetStudentByUser(ctx context.Context, userID int64) (*domain.Student, error)
	GetStudentByNumber(ctx context.Context, studentNumber string) (*domain.Student, error)
	UpdateStudentVerified(ctx context.Context, id int64, verified bool) error
	CreateInvestment(ctx context.Context, inv *domain.Investment) error
	GetInvestment(ctx context.Context, id int64) (*domain.Investment, error)
	ListInvestmentsByStudent(ctx context.Context, studentID int64) ([]domain.Investment, error)
	UpdateInvestment(ctx context.Context, id int64, fn func(*domain.Investment) error) error
}

// EligibilityChecker answers whether a user may initiate ramp transactions.
// Backed by the users table in production; tests plug in a stub.
type EligibilityChecker interface {
	IsEligible(ctx context.Context, userID int64) (bool, error)
}

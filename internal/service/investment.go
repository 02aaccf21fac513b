package service

import (
	"context"
	"errors"
	"time"

	"github.com/kipsangc/ramphub/internal/domain"
	"github.com/kipsangc/ramphub/internal/observability"
	"github.com/kipsangc/ramphub/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvestmentService manages student profiles and their locked investments.
type InvestmentService struct {
	store InvestmentStore
	now   func() time.Time
}

func NewInvestmentService(store InvestmentStore) *InvestmentService {
	return &InvestmentService{store: store, now: time.Now}
}

// RegisterStudentRequest holds a new student profile.
type RegisterStudentRequest struct {
	UserID         int64
	StudentNumber  string
	University     string
	GraduationYear int
}

// RegisterStudent creates a student profile. Profiles start unverified;
// verification is an operator action.
func (s *InvestmentService) RegisterStudent(ctx context.Context, req RegisterStudentRequest) (*domain.Student, error) {
	if req.StudentNumber == "" {
		return nil, validationErrorf("student_number is required")
	}
	if req.University == "" {
		return nil, validationErrorf("university is required")
	}
	currentYear := s.now().Year()
	if req.GraduationYear < currentYear || req.GraduationYear > currentYear+8 {
		return nil, validationErrorf("graduation_year must be between %d and %d", currentYear, currentYear+8)
	}

	if _, err := s.store.GetStudentByUser(ctx, req.UserID); err == nil {
		return nil, ErrStudentExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.GetStudentByNumber(ctx, req.StudentNumber); err == nil {
		return nil, ErrStudentExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	student := &domain.Student{
		UserID:           req.UserID,
		StudentNumber:    req.StudentNumber,
		University:       req.University,
		GraduationYear:   req.GraduationYear,
		EnrollmentStatus: domain.EnrollmentActive,
	}
	if err := s.store.CreateStudent(ctx, student); err != nil {
		return nil, err
	}
	zap.L().Info("student registered", zap.Int64("student_id", student.ID), zap.Int64("user_id", req.UserID))
	return student, nil
}

// GetProfile returns the student profile for a user.
func (s *InvestmentService) GetProfile(ctx context.Context, userID int64) (*domain.Student, error) {
	student, err := s.store.GetStudentByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}

// VerifyStudent marks a profile verified. Operator action.
func (s *InvestmentService) VerifyStudent(ctx context.Context, studentID int64) error {
	if err := s.store.UpdateStudentVerified(ctx, studentID, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrStudentNotFound
		}
		return err
	}
	zap.L().Info("student verified", zap.Int64("student_id", studentID))
	return nil
}

// CreateInvestmentRequest holds the parameters for opening a lock.
type CreateInvestmentRequest struct {
	UserID             int64
	InvestmentType     string
	Principal          decimal.Decimal
	Currency           string
	LockPeriodMonths   int
	ExpectedReturnRate decimal.Decimal
}

// CreateInvestment opens an ACTIVE locked investment for a verified
// student. The lock end is fixed at creation and never recomputed.
func (s *InvestmentService) CreateInvestment(ctx context.Context, req CreateInvestmentRequest) (*domain.Investment, error) {
	if !req.Principal.IsPositive() {
		return nil, validationErrorf("principal must be positive")
	}
	if req.LockPeriodMonths < 1 {
		return nil, validationErrorf("lock_period_months must be at least 1")
	}
	if req.InvestmentType == "" {
		return nil, validationErrorf("investment_type is required")
	}
	if req.ExpectedReturnRate.IsNegative() {
		return nil, validationErrorf("expected_return_rate must not be negative")
	}

	student, err := s.GetProfile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !student.IsVerified {
		return nil, ErrStudentNotVerified
	}

	now := s.now().UTC()
	inv := &domain.Investment{
		StudentID:          student.ID,
		InvestmentType:     req.InvestmentType,
		Principal:          req.Principal,
		Currency:           req.Currency,
		LockPeriodMonths:   req.LockPeriodMonths,
		LockStart:          now,
		LockEnd:            now.AddDate(0, req.LockPeriodMonths, 0),
		IsLocked:           true,
		ExpectedReturnRate: req.ExpectedReturnRate,
		ActualReturn:       decimal.Zero,
		Status:             domain.InvestmentStatusActive,
	}
	if err := s.store.CreateInvestment(ctx, inv); err != nil {
		return nil, err
	}
	observability.IncInvestmentTransition("", domain.InvestmentStatusActive)
	zap.L().Info("investment created",
		zap.Int64("investment_id", inv.ID),
		zap.Int64("student_id", student.ID),
		zap.String("principal", req.Principal.String()),
		zap.Int("lock_period_months", req.LockPeriodMonths),
	)
	return inv, nil
}

// ListInvestments returns a user's investments, newest first.
func (s *InvestmentService) ListInvestments(ctx context.Context, userID int64) ([]domain.Investment, error) {
	student, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListInvestmentsByStudent(ctx, student.ID)
}

// GetInvestment returns one investment, checking ownership.
func (s *InvestmentService) GetInvestment(ctx context.Context, userID, investmentID int64) (*domain.Investment, error) {
	student, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	inv, err := s.store.GetInvestment(ctx, investmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvestmentNotFound
		}
		return nil, err
	}
	if inv.StudentID != student.ID {
		return nil, ErrInvestmentNotFound
	}
	return inv, nil
}

// RequestWithdrawal moves a matured ACTIVE investment to MATURED. Repeating
// the request on a MATURED investment is a no-op. A lock that has not
// elapsed is rejected with the remaining days, recomputed each call.
func (s *InvestmentService) RequestWithdrawal(ctx context.Context, userID, investmentID int64) (*domain.Investment, error) {
	if _, err := s.GetInvestment(ctx, userID, investmentID); err != nil {
		return nil, err
	}

	var out domain.Investment
	err := s.store.UpdateInvestment(ctx, investmentID, func(inv *domain.Investment) error {
		switch inv.Status {
		case domain.InvestmentStatusMatured:
			out = *inv
			return nil
		case domain.InvestmentStatusActive:
		default:
			return ErrNotActive
		}
		now := s.now()
		if !inv.CanWithdraw(now) {
			return &StillLockedError{RemainingDays: inv.RemainingLockDays(now)}
		}
		at := now.UTC()
		inv.Status = domain.InvestmentStatusMatured
		inv.IsLocked = false
		inv.WithdrawalRequestedAt = &at
		out = *inv
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvestmentNotFound
		}
		return nil, err
	}
	observability.IncInvestmentTransition(domain.InvestmentStatusActive, domain.InvestmentStatusMatured)
	return &out, nil
}

// CompleteWithdrawal finalizes a MATURED investment as WITHDRAWN after the
// payout leg has settled. Only MATURED investments are accepted. The payout
// is principal plus the stored accrued return; callers never supply the
// return figure.
func (s *InvestmentService) CompleteWithdrawal(ctx context.Context, userID, investmentID int64) (*domain.Investment, error) {
	if _, err := s.GetInvestment(ctx, userID, investmentID); err != nil {
		return nil, err
	}

	var out domain.Investment
	err := s.store.UpdateInvestment(ctx, investmentID, func(inv *domain.Investment) error {
		switch inv.Status {
		case domain.InvestmentStatusWithdrawn:
			out = *inv
			return nil
		case domain.InvestmentStatusMatured:
		default:
			return ErrNotReady
		}
		at := s.now().UTC()
		inv.Status = domain.InvestmentStatusWithdrawn
		inv.WithdrawnAt = &at
		out = *inv
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvestmentNotFound
		}
		return nil, err
	}
	observability.IncInvestmentTransition(domain.InvestmentStatusMatured, domain.InvestmentStatusWithdrawn)
	return &out, nil
}

// CancelInvestment cancels an ACTIVE investment before maturity. The
// principal is returned without yield.
func (s *InvestmentService) CancelInvestment(ctx context.Context, userID, investmentID int64) (*domain.Investment, error) {
	if _, err := s.GetInvestment(ctx, userID, investmentID); err != nil {
		return nil, err
	}

	var out domain.Investment
	err := s.store.UpdateInvestment(ctx, investmentID, func(inv *domain.Investment) error {
		switch inv.Status {
		case domain.InvestmentStatusCancelled:
			out = *inv
			return nil
		case domain.InvestmentStatusActive:
		default:
			return ErrNotActive
		}
		inv.Status = domain.InvestmentStatusCancelled
		inv.IsLocked = false
		out = *inv
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvestmentNotFound
		}
		return nil, err
	}
	observability.IncInvestmentTransition(domain.InvestmentStatusActive, domain.InvestmentStatusCancelled)
	return &out, nil
}

// InvestmentStats aggregates a student's portfolio.
type InvestmentStats struct {
	TotalInvested  decimal.Decimal `json:"total_invested"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	TotalReturns   decimal.Decimal `json:"total_returns"`
	ActiveCount    int             `json:"active_count"`
	MaturedCount   int             `json:"matured_count"`
	WithdrawnCount int             `json:"withdrawn_count"`
	CancelledCount int             `json:"cancelled_count"`
}

// Stats computes portfolio totals for a user.
func (s *InvestmentService) Stats(ctx context.Context, userID int64) (*InvestmentStats, error) {
	investments, err := s.ListInvestments(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := &InvestmentStats{
		TotalInvested:  decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		TotalReturns:   decimal.Zero,
	}
	for _, inv := range investments {
		switch inv.Status {
		case domain.InvestmentStatusActive:
			stats.ActiveCount++
			stats.TotalInvested = stats.TotalInvested.Add(inv.Principal)
		case domain.InvestmentStatusMatured:
			stats.MaturedCount++
			stats.TotalInvested = stats.TotalInvested.Add(inv.Principal)
		case domain.InvestmentStatusWithdrawn:
			stats.WithdrawnCount++
			stats.TotalWithdrawn = stats.TotalWithdrawn.Add(inv.Payout())
			stats.TotalReturns = stats.TotalReturns.Add(inv.ActualReturn)
		case domain.InvestmentStatusCancelled:
			stats.CancelledCount++
		}
	}
	return stats, nil
}

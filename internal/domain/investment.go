package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Student is a verified campus investor profile. Investing is gated on
// IsVerified; verification itself happens out of band.
type Student struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	StudentNumber    string    `json:"student_number"`
	University       string    `json:"university"`
	GraduationYear   int       `json:"graduation_year"`
	EnrollmentStatus string    `json:"enrollment_status"`
	IsVerified       bool      `json:"is_verified"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Investment is a time-locked principal owned by exactly one student.
// ActualReturn is accrued by an external returns job and is read-only from
// the lock machine's perspective.
type Investment struct {
	ID                    int64           `json:"id"`
	StudentID             int64           `json:"student_id"`
	InvestmentType        string          `json:"investment_type"`
	Principal             decimal.Decimal `json:"principal_amount"`
	Currency              string          `json:"currency"`
	LockPeriodMonths      int             `json:"lock_period_months"`
	LockStart             time.Time       `json:"lock_start"`
	LockEnd               time.Time       `json:"lock_end"`
	IsLocked              bool            `json:"is_locked"`
	ExpectedReturnRate    decimal.Decimal `json:"expected_return_rate"`
	ActualReturn          decimal.Decimal `json:"actual_return"`
	Status                string          `json:"status"`
	WithdrawalRequestedAt *time.Time      `json:"withdrawal_requested_at,omitempty"`
	WithdrawnAt           *time.Time      `json:"withdrawn_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// CanWithdraw reports whether a withdrawal may be requested now.
func (i *Investment) CanWithdraw(now time.Time) bool {
	if !i.IsLocked {
		return true
	}
	if i.Status != InvestmentStatusActive {
		return false
	}
	return !now.Before(i.LockEnd)
}

// RemainingLockDays returns the whole days left until LockEnd, rounded up
// and clamped to zero. The value is recomputed from LockEnd on every call;
// it is never cached.
func (i *Investment) RemainingLockDays(now time.Time) int {
	if !i.IsLocked {
		return 0
	}
	remaining := i.LockEnd.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// Payout is the total owed on withdrawal completion: principal plus accrued
// returns.
func (i *Investment) Payout() decimal.Decimal {
	return i.Principal.Add(i.ActualReturn)
}

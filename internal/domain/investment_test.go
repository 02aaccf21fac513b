package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func lockedInvestment(lockEnd time.Time) *Investment {
	return &Investment{
		Status:   InvestmentStatusActive,
		IsLocked: true,
		LockEnd:  lockEnd,
	}
}

func TestCanWithdrawBeforeLockEnd(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	inv := lockedInvestment(now.Add(5 * 24 * time.Hour))
	assert.False(t, inv.CanWithdraw(now))
}

func TestCanWithdrawAtLockEnd(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	inv := lockedInvestment(now)
	assert.True(t, inv.CanWithdraw(now))
}

func TestCanWithdrawWhenUnlocked(t *testing.T) {
	now := time.Now()
	inv := lockedInvestment(now.Add(30 * 24 * time.Hour))
	inv.IsLocked = false
	assert.True(t, inv.CanWithdraw(now))
}

func TestCanWithdrawNonActiveLocked(t *testing.T) {
	now := time.Now()
	inv := lockedInvestment(now.Add(-time.Hour))
	inv.Status = InvestmentStatusCancelled
	assert.False(t, inv.CanWithdraw(now))
}

func TestRemainingLockDaysRoundsUp(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	inv := lockedInvestment(now.Add(5 * 24 * time.Hour))
	assert.Equal(t, 5, inv.RemainingLockDays(now))

	// A partial day still counts as a remaining day.
	inv = lockedInvestment(now.Add(4*24*time.Hour + time.Minute))
	assert.Equal(t, 5, inv.RemainingLockDays(now))
}

func TestRemainingLockDaysClampsToZero(t *testing.T) {
	now := time.Now()
	inv := lockedInvestment(now.Add(-48 * time.Hour))
	assert.Equal(t, 0, inv.RemainingLockDays(now))

	inv.IsLocked = false
	inv.LockEnd = now.Add(time.Hour)
	assert.Equal(t, 0, inv.RemainingLockDays(now))
}

func TestPayout(t *testing.T) {
	inv := &Investment{
		Principal:    decimal.RequireFromString("1000"),
		ActualReturn: decimal.RequireFromString("52.50"),
	}
	assert.Equal(t, "1052.5", inv.Payout().String())
}

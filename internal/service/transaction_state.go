package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/kipsangc/ramphub/internal/domain"
)

var transactionTransitions = map[string]map[string]struct{}{
	domain.TxStatusPending: {
		domain.TxStatusProcessing: {},
		domain.TxStatusFailed:     {},
		domain.TxStatusCancelled:  {},
	},
	domain.TxStatusProcessing: {
		domain.TxStatusCompleted: {},
		domain.TxStatusFailed:    {},
		domain.TxStatusCancelled: {},
	},
	domain.TxStatusCompleted: {},
	domain.TxStatusFailed:    {},
	domain.TxStatusCancelled: {},
}

func normalizeStatus(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}

func canTransition(current, next string) bool {
	nextStates, ok := transactionTransitions[normalizeStatus(current)]
	if !ok {
		return false
	}
	_, ok = nextStates[normalizeStatus(next)]
	return ok
}

// transitionTransaction moves tx to nextStatus in place. Same-state writes
// are a no-op so replayed events stay idempotent. CompletedAt is stamped
// exactly once, on the transition into COMPLETED.
func transitionTransaction(tx *domain.Transaction, nextStatus string, now time.Time) error {
	nextStatus = normalizeStatus(nextStatus)
	if normalizeStatus(tx.Status) == nextStatus {
		return nil
	}
	if !canTransition(tx.Status, nextStatus) {
		return fmt.Errorf("invalid transaction status transition: %s -> %s", tx.Status, nextStatus)
	}
	tx.Status = nextStatus
	if nextStatus == domain.TxStatusCompleted && tx.CompletedAt == nil {
		at := now.UTC()
		tx.CompletedAt = &at
	}
	return nil
}

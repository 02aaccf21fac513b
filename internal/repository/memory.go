package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kipsangc/ramphub/internal/domain"
)

// Memory is an in-memory store with the same locking contract as the
// Postgres repository. It backs local development and the service tests.
type Memory struct {
	mu sync.Mutex

	nextTxID         int64
	nextStudentID    int64
	nextInvestmentID int64

	transactions map[int64]*domain.Transaction
	byProvider   map[string]int64
	students     map[int64]*domain.Student
	investments  map[int64]*domain.Investment

	// EligibleUsers gates IsEligible; empty map means nobody passes.
	EligibleUsers map[int64]bool
}

func NewMemory() *Memory {
	return &Memory{
		transactions:  make(map[int64]*domain.Transaction),
		byProvider:    make(map[string]int64),
		students:      make(map[int64]*domain.Student),
		investments:   make(map[int64]*domain.Investment),
		EligibleUsers: make(map[int64]bool),
	}
}

func (m *Memory) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTxID++
	t.ID = m.nextTxID
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	m.transactions[t.ID] = &cp
	if t.ProviderRef != "" {
		m.byProvider[t.ProviderRef] = t.ID
	}
	return nil
}

func (m *Memory) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Memory) ListTransactionsByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for _, t := range m.transactions {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) UpdateTransaction(ctx context.Context, id int64, fn func(*domain.Transaction) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return ErrNotFound
	}
	return m.applyTransactionUpdate(t, fn)
}

func (m *Memory) UpdateTransactionByProviderRef(ctx context.Context, providerRef string, fn func(*domain.Transaction) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byProvider[providerRef]
	if !ok {
		return ErrNotFound
	}
	return m.applyTransactionUpdate(m.transactions[id], fn)
}

func (m *Memory) applyTransactionUpdate(t *domain.Transaction, fn func(*domain.Transaction) error) error {
	cp := *t
	if err := fn(&cp); err != nil {
		return err
	}
	cp.UpdatedAt = time.Now().UTC()
	if cp.ProviderRef != "" && cp.ProviderRef != t.ProviderRef {
		m.byProvider[cp.ProviderRef] = cp.ID
	}
	*t = cp
	return nil
}

// SetTransactionCreatedAt backdates a row. Test helper.
func (m *Memory) SetTransactionCreatedAt(id int64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.transactions[id]; ok {
		t.CreatedAt = at
	}
}

func (m *Memory) ListStalePendingIDs(ctx context.Context, olderThan time.Time, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, t := range m.transactions {
		if t.Status == domain.TxStatusPending && t.CreatedAt.Before(olderThan) {
			ids = append(ids, t.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *Memory) CreateStudent(ctx context.Context, s *domain.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextStudentID++
	s.ID = m.nextStudentID
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *Memory) GetStudent(ctx context.Context, id int64) (*domain.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) GetStudentByUser(ctx context.Context, userID int64) (*domain.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetStudentByNumber(ctx context.Context, studentNumber string) (*domain.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.StudentNumber == studentNumber {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateStudentVerified(ctx context.Context, id int64, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return ErrNotFound
	}
	s.IsVerified = verified
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) CreateInvestment(ctx context.Context, inv *domain.Investment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextInvestmentID++
	inv.ID = m.nextInvestmentID
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	cp := *inv
	m.investments[inv.ID] = &cp
	return nil
}

func (m *Memory) GetInvestment(ctx context.Context, id int64) (*domain.Investment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.investments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *Memory) ListInvestmentsByStudent(ctx context.Context, studentID int64) ([]domain.Investment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Investment
	for _, inv := range m.investments {
		if inv.StudentID == studentID {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *Memory) UpdateInvestment(ctx context.Context, id int64, fn func(*domain.Investment) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.investments[id]
	if !ok {
		return ErrNotFound
	}
	cp := *inv
	if err := fn(&cp); err != nil {
		return err
	}
	cp.UpdatedAt = time.Now().UTC()
	*inv = cp
	return nil
}

func (m *Memory) IsEligible(ctx context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EligibleUsers[userID], nil
}

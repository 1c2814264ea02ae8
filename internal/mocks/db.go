package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/recall-api/internal/store"
)

// MockTransactor implements store.Transactor without a database. fn receives
// a nil *sql.Tx, which the MemoryDB store views ignore.
type MockTransactor struct {
	// InTransactionFn and InSnapshotFn override the default behaviour.
	InTransactionFn func(ctx context.Context, fn store.TxFn) error
	InSnapshotFn    func(ctx context.Context, fn store.TxFn) error

	mu           sync.Mutex
	transactions int
	snapshots    int
}

// NewMockTransactor returns a transactor that runs every function directly.
func NewMockTransactor() *MockTransactor {
	return &MockTransactor{}
}

// InTransaction implements store.Transactor.
func (m *MockTransactor) InTransaction(ctx context.Context, fn store.TxFn) error {
	m.mu.Lock()
	m.transactions++
	m.mu.Unlock()

	if m.InTransactionFn != nil {
		return m.InTransactionFn(ctx, fn)
	}
	return fn(ctx, nil)
}

// InSnapshot implements store.Transactor.
func (m *MockTransactor) InSnapshot(ctx context.Context, fn store.TxFn) error {
	m.mu.Lock()
	m.snapshots++
	m.mu.Unlock()

	if m.InSnapshotFn != nil {
		return m.InSnapshotFn(ctx, fn)
	}
	return fn(ctx, nil)
}

// Transactions returns how many read-write transactions were started.
func (m *MockTransactor) Transactions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactions
}

// Snapshots returns how many snapshot transactions were started.
func (m *MockTransactor) Snapshots() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots
}

var _ store.Transactor = (*MockTransactor)(nil)

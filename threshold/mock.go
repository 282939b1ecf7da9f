package threshold

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrInsufficientBalance is returned by MockLedger when the sender can't cover
// a transfer.
var ErrInsufficientBalance = errors.New("insufficient balance")

// MockChain is a ChainHeight with a manually advanced height.
type MockChain struct {
	height atomic.Uint64
}

// NewMockChain creates a mock chain at the given height.
func NewMockChain(height uint64) *MockChain {
	c := &MockChain{}
	c.height.Store(height)
	return c
}

// CurrentHeight returns the current height.
func (c *MockChain) CurrentHeight(context.Context) (uint64, error) {
	return c.height.Load(), nil
}

// SetHeight moves the chain to the given height.
func (c *MockChain) SetHeight(height uint64) {
	c.height.Store(height)
}

// MockLedger is an in-memory Ledger keeping account balances.
type MockLedger struct {
	mu       sync.Mutex
	balances map[AccountID]uint64
}

// A compile time assertion to ensure MockLedger meets the Ledger interface.
var _ Ledger = (*MockLedger)(nil)

// NewMockLedger creates an empty ledger.
func NewMockLedger() *MockLedger {
	return &MockLedger{
		balances: make(map[AccountID]uint64),
	}
}

// Credit adds funds to an account.
func (l *MockLedger) Credit(account AccountID, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[account] += amount
}

// Balance returns the balance of an account.
func (l *MockLedger) Balance(account AccountID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[account]
}

// Transfer moves amount between two accounts.
func (l *MockLedger) Transfer(_ context.Context, from, to AccountID,
	amount uint64) error {

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return fmt.Errorf("%w: %v has %d, needs %d",
			ErrInsufficientBalance, from, l.balances[from], amount)
	}

	l.balances[from] -= amount
	l.balances[to] += amount

	return nil
}

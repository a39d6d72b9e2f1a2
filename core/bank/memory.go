package bank

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation for tests and development.
// WithinTx snapshots the ledger and restores it when fn fails, mirroring the
// all-or-nothing semantics of the SQL store.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[int64]*Account
	payments map[uuid.UUID]*Payment
	nextID   int64
}

// NewMemoryStore constructs an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]*Account),
		payments: make(map[uuid.UUID]*Payment),
	}
}

// Accounts returns account access with store-level locking.
func (m *MemoryStore) Accounts() AccountStore { return memAccounts{s: m, locked: false} }

// Payments returns payment access with store-level locking.
func (m *MemoryStore) Payments() PaymentStore { return memPayments{s: m, locked: false} }

// WithinTx serializes the unit of work under the store mutex and rolls the
// ledger back to its snapshot when fn returns an error or panics.
func (m *MemoryStore) WithinTx(_ context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts, payments, nextID := m.snapshot()
	restore := func() {
		m.accounts = accounts
		m.payments = payments
		m.nextID = nextID
	}
	defer func() {
		if p := recover(); p != nil {
			restore()
			panic(p)
		}
	}()

	if err := fn(txMemoryStore{s: m}); err != nil {
		restore()
		return err
	}
	return nil
}

func (m *MemoryStore) snapshot() (map[int64]*Account, map[uuid.UUID]*Payment, int64) {
	accounts := make(map[int64]*Account, len(m.accounts))
	for id, acc := range m.accounts {
		clone := *acc
		accounts[id] = &clone
	}
	payments := make(map[uuid.UUID]*Payment, len(m.payments))
	for id, p := range m.payments {
		clone := *p
		payments[id] = &clone
	}
	return accounts, payments, m.nextID
}

// txMemoryStore is the view handed to WithinTx callbacks; the mutex is
// already held, so its accessors skip locking.
type txMemoryStore struct {
	s *MemoryStore
}

func (t txMemoryStore) Accounts() AccountStore { return memAccounts{s: t.s, locked: true} }
func (t txMemoryStore) Payments() PaymentStore { return memPayments{s: t.s, locked: true} }

func (t txMemoryStore) WithinTx(_ context.Context, fn func(Store) error) error {
	return fn(t)
}

type memAccounts struct {
	s      *MemoryStore
	locked bool
}

func (a memAccounts) lock() func() {
	if a.locked {
		return func() {}
	}
	a.s.mu.Lock()
	return a.s.mu.Unlock
}

func (a memAccounts) FindByPhone(_ context.Context, phone string) (*Account, error) {
	defer a.lock()()
	for _, acc := range a.s.accounts {
		if acc.Phone == phone {
			clone := *acc
			return &clone, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (a memAccounts) FindByID(_ context.Context, id int64) (*Account, error) {
	defer a.lock()()
	acc, ok := a.s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	clone := *acc
	return &clone, nil
}

func (a memAccounts) FindByAccountNo(_ context.Context, accountNo string) (*Account, error) {
	defer a.lock()()
	for _, acc := range a.s.accounts {
		if acc.AccountNo == accountNo {
			clone := *acc
			return &clone, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (a memAccounts) Create(_ context.Context, name, phone string) (*Account, error) {
	defer a.lock()()
	a.s.nextID++
	acc := &Account{
		ID:        a.s.nextID,
		Name:      name,
		Phone:     phone,
		AccountNo: newAccountNo(),
		Balance:   0,
		CreatedAt: time.Now().UTC(),
	}
	a.s.accounts[acc.ID] = acc
	clone := *acc
	return &clone, nil
}

func (a memAccounts) Save(_ context.Context, account *Account) error {
	defer a.lock()()
	if _, ok := a.s.accounts[account.ID]; !ok {
		return ErrAccountNotFound
	}
	clone := *account
	a.s.accounts[account.ID] = &clone
	return nil
}

type memPayments struct {
	s      *MemoryStore
	locked bool
}

func (p memPayments) lock() func() {
	if p.locked {
		return func() {}
	}
	p.s.mu.Lock()
	return p.s.mu.Unlock
}

func (p memPayments) Create(_ context.Context, amount Amount, accountID int64) (*Payment, error) {
	defer p.lock()()
	payment := &Payment{
		ID:        uuid.New(),
		Amount:    amount,
		AccountID: accountID,
		CreatedAt: time.Now().UTC(),
	}
	p.s.payments[payment.ID] = payment
	clone := *payment
	return &clone, nil
}

func (p memPayments) FindByID(_ context.Context, id uuid.UUID) (*Payment, error) {
	defer p.lock()()
	payment, ok := p.s.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	clone := *payment
	return &clone, nil
}

func (p memPayments) Delete(_ context.Context, id uuid.UUID) error {
	defer p.lock()()
	if _, ok := p.s.payments[id]; !ok {
		return ErrPaymentNotFound
	}
	delete(p.s.payments, id)
	return nil
}

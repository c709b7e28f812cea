package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/escrow-ledger/internal/interfaces"
	"github.com/sheikh-saqib/escrow-ledger/internal/models"
	"github.com/sheikh-saqib/escrow-ledger/internal/storage"
)

// MemoryAccountStore is an in-memory implementation of interfaces.AccountStore.
// A single mutex covers accounts and transactions, so every call is atomic.
type MemoryAccountStore struct {
	mu           sync.Mutex
	accounts     map[models.Address]*models.Account
	transactions []models.Transaction
	now          func() time.Time
}

// NewMemoryAccountStore creates and returns a new MemoryAccountStore instance
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts:     make(map[models.Address]*models.Account),
		transactions: make([]models.Transaction, 0),
		now:          time.Now,
	}
}

func (m *MemoryAccountStore) GetAccount(ctx context.Context, addr models.Address) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[addr]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	return acc.Clone(), nil // copy so callers can't modify internal state
}

// CreateAccount allocates an account at p.Address funded by p.Payer.
// An untouched system wallet already sitting at the address (someone sent it lamports
// early) is adopted and only topped up; anything else there is ErrAccountExists.
func (m *MemoryAccountStore) CreateAccount(ctx context.Context, p interfaces.CreateAccountParams) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var prefunded uint64
	if existing, ok := m.accounts[p.Address]; ok {
		if !existing.Owner.IsZero() || len(existing.Data) > 0 {
			return nil, fmt.Errorf("%w: %s", storage.ErrAccountExists, p.Address)
		}
		prefunded = existing.Lamports
	}

	var due uint64
	if p.Lamports > prefunded {
		due = p.Lamports - prefunded
	}

	payer, ok := m.accounts[p.Payer]
	if due > 0 && (!ok || payer.Lamports < due) {
		return nil, fmt.Errorf("%w: payer %s cannot cover %d", storage.ErrInsufficientBalance, p.Payer, due)
	}

	data := make([]byte, len(p.Data))
	copy(data, p.Data)

	if due > 0 {
		payer.Lamports -= due
	}
	m.accounts[p.Address] = &models.Account{
		Address:  p.Address,
		Lamports: prefunded + due,
		Owner:    p.Owner,
		Data:     data,
	}

	return m.record(models.KindCreate, p.Payer, p.Address, due), nil
}

// Transfer moves lamports between accounts. Either both balances change or neither does.
// Program-owned accounts can only be debited by KindWithdraw.
func (m *MemoryAccountStore) Transfer(ctx context.Context, p interfaces.TransferParams) (*models.Transaction, error) {
	if p.From == p.To {
		return nil, storage.ErrSameAccount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	from, ok := m.accounts[p.From]
	if !ok || from.Lamports < p.Lamports {
		return nil, fmt.Errorf("%w: %s cannot cover %d", storage.ErrInsufficientBalance, p.From, p.Lamports)
	}
	if p.Kind != models.KindWithdraw && (!from.Owner.IsZero() || len(from.Data) > 0) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotSystemAccount, p.From)
	}

	to, ok := m.accounts[p.To]
	if !ok {
		to = &models.Account{Address: p.To}
	}
	if to.Lamports > math.MaxUint64-p.Lamports {
		return nil, fmt.Errorf("%w: crediting %s", storage.ErrBalanceOverflow, p.To)
	}

	from.Lamports -= p.Lamports
	to.Lamports += p.Lamports
	m.accounts[p.To] = to

	return m.record(p.Kind, p.From, p.To, p.Lamports), nil
}

func (m *MemoryAccountStore) Airdrop(ctx context.Context, addr models.Address, lamports uint64) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[addr]
	if !ok {
		acc = &models.Account{Address: addr}
	}
	if acc.Lamports > math.MaxUint64-lamports {
		return nil, fmt.Errorf("%w: crediting %s", storage.ErrBalanceOverflow, addr)
	}
	acc.Lamports += lamports
	m.accounts[addr] = acc

	return m.record(models.KindAirdrop, models.Address{}, addr, lamports), nil
}

func (m *MemoryAccountStore) TransactionsByAccount(ctx context.Context, addr models.Address) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Transaction
	for _, tx := range m.transactions {
		if tx.From == addr || tx.To == addr {
			result = append(result, tx)
		}
	}
	return result, nil
}

// record appends a transaction; callers must hold m.mu.
func (m *MemoryAccountStore) record(kind models.TransactionKind, from, to models.Address, lamports uint64) *models.Transaction {
	tx := models.Transaction{
		ID:        uuid.New().String(),
		Kind:      kind,
		From:      from,
		To:        to,
		Lamports:  lamports,
		CreatedAt: m.now(),
	}
	m.transactions = append(m.transactions, tx)
	return &tx
}

// Compile-time check: ensure MemoryAccountStore implements AccountStore interface
var _ interfaces.AccountStore = (*MemoryAccountStore)(nil)

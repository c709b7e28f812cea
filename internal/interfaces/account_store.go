package interfaces

import (
	"context"

	"github.com/sheikh-saqib/escrow-ledger/internal/models"
)

// CreateAccountParams describes a create-if-absent request.
// Payer is debited Lamports, which become the new account's opening balance.
type CreateAccountParams struct {
	Address  models.Address
	Payer    models.Address
	Owner    models.Address
	Lamports uint64
	Data     []byte
}

type TransferParams struct {
	Kind     models.TransactionKind
	From     models.Address
	To       models.Address
	Lamports uint64
}

// AccountStore is the host account model the ledger runs against.
// CreateAccount and Transfer are each all-or-nothing.
type AccountStore interface {
	GetAccount(ctx context.Context, addr models.Address) (*models.Account, error)
	CreateAccount(ctx context.Context, p CreateAccountParams) (*models.Transaction, error)
	Transfer(ctx context.Context, p TransferParams) (*models.Transaction, error)
	Airdrop(ctx context.Context, addr models.Address, lamports uint64) (*models.Transaction, error)
	TransactionsByAccount(ctx context.Context, addr models.Address) ([]models.Transaction, error)
}

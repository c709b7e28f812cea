package models

import "time"

// TransactionKind tags what produced a value movement
type TransactionKind string

const (
	KindCreate   TransactionKind = "create"
	KindFund     TransactionKind = "fund"
	KindWithdraw TransactionKind = "withdraw"
	KindAirdrop  TransactionKind = "airdrop"
)

// Transaction represents one committed transfer of lamports between two accounts.
// From is the zero address for airdrops.
type Transaction struct {
	ID        string          `json:"id"`
	Kind      TransactionKind `json:"kind"`
	From      Address         `json:"from"`
	To        Address         `json:"to"`
	Lamports  uint64          `json:"lamports"`
	CreatedAt time.Time       `json:"created_at"`
}

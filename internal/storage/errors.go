// Package storage holds what every AccountStore implementation shares.
package storage

import "errors"

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
	ErrSameAccount         = errors.New("source and destination are the same account")
	ErrNotSystemAccount    = errors.New("only system wallets can be debited outside a withdrawal")
)

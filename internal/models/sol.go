package models

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of base units in one whole coin.
const LamportsPerSOL = 1_000_000_000

// LamportsToSOL converts a base-unit amount into a whole-coin decimal without rounding.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9)
}

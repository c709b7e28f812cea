// Package rent computes the reserved floor: the balance an account must keep to stay
// alive in host storage. Only lamports above it can ever be withdrawn.
package rent

import (
	"errors"
	"math"
)

var (
	ErrZeroRent     = errors.New("rent schedule yields a zero floor")
	ErrRentOverflow = errors.New("rent schedule overflows uint64")
)

const (
	// AccountStorageOverhead is charged on top of every account's data size.
	AccountStorageOverhead = 128

	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2.0
)

// Schedule reports the minimum balance for an account holding size bytes of data.
type Schedule interface {
	MinimumBalance(size int) uint64
}

// Rent is the host's per-byte storage pricing.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
}

func Default() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
	}
}

// MinimumBalance is (overhead + size) * lamports per byte-year * exemption years.
// Results beyond uint64 saturate at math.MaxUint64.
func (r Rent) MinimumBalance(size int) uint64 {
	if size < 0 {
		size = 0
	}
	bytes := uint64(AccountStorageOverhead + size)
	if r.LamportsPerByteYear != 0 && bytes > math.MaxUint64/r.LamportsPerByteYear {
		return math.MaxUint64
	}
	floor := float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold
	if floor >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(floor)
}

// Check reports whether the floor for an account of size bytes is positive and
// representable.
func (r Rent) Check(size int) error {
	if r.LamportsPerByteYear == 0 || r.ExemptionThreshold <= 0 || math.IsNaN(r.ExemptionThreshold) {
		return ErrZeroRent
	}
	if r.MinimumBalance(size) == 0 {
		return ErrZeroRent
	}
	if r.MinimumBalance(size) == math.MaxUint64 {
		return ErrRentOverflow
	}
	return nil
}

// Flat is a Schedule with a fixed floor whatever the size.
type Flat uint64

func (f Flat) MinimumBalance(int) uint64 {
	return uint64(f)
}

package rent

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRent_MinimumBalance(t *testing.T) {
	tests := []struct {
		name string
		rent Rent
		size int
		want uint64
	}{
		{"default ledger account", Default(), 100, 1_586_880},
		{"empty account", Default(), 0, 890_880},
		{"negative size clamps", Default(), -5, 890_880},
		{"one year", Rent{LamportsPerByteYear: 10, ExemptionThreshold: 1}, 22, 1500},
		{"free storage", Rent{}, 100, 0},
		{"product wraps", Rent{LamportsPerByteYear: math.MaxUint64 / 100, ExemptionThreshold: 1}, 100, math.MaxUint64},
		{"threshold overflows", Rent{LamportsPerByteYear: math.MaxUint64 / 1000, ExemptionThreshold: 10}, 100, math.MaxUint64},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rent.MinimumBalance(tc.size))
		})
	}
}

func TestFlat_IgnoresSize(t *testing.T) {
	var s Schedule = Flat(100)
	assert.Equal(t, uint64(100), s.MinimumBalance(0))
	assert.Equal(t, uint64(100), s.MinimumBalance(10_000))
}

func TestRent_Check(t *testing.T) {
	tests := []struct {
		name string
		rent Rent
		want error
	}{
		{"default", Default(), nil},
		{"zero per byte", Rent{ExemptionThreshold: 2}, ErrZeroRent},
		{"zero threshold", Rent{LamportsPerByteYear: 3480}, ErrZeroRent},
		{"negative threshold", Rent{LamportsPerByteYear: 3480, ExemptionThreshold: -1}, ErrZeroRent},
		{"rounds to zero", Rent{LamportsPerByteYear: 1, ExemptionThreshold: 0.0001}, ErrZeroRent},
		{"wraps", Rent{LamportsPerByteYear: math.MaxUint64 / 10, ExemptionThreshold: 1}, ErrRentOverflow},
		{"float overflow", Rent{LamportsPerByteYear: 1 << 40, ExemptionThreshold: 1e30}, ErrRentOverflow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rent.Check(100)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

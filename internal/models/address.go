package models

import (
	"errors"
	"fmt"

	"github.com/shengdoushi/base58"
)

// AddressLength is the size in bytes of every account address.
const AddressLength = 32

var ErrInvalidAddress = errors.New("invalid address")

// Address identifies an account in the host's account model
type Address [AddressLength]byte

// ParseAddress decodes the base58 text form of an address.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := base58.Decode(s, base58.BitcoinAlphabet)
	if err != nil {
		return a, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(raw) != AddressLength {
		return a, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, s, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// MustParseAddress is ParseAddress for compile-time constants. It panics on bad input.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return base58.Encode(a[:], base58.BitcoinAlphabet)
}

func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero reports whether a is the all-zero address, which doubles as the system owner.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

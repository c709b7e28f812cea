package models

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// FundDataSize is the fixed space allocated to every ledger account.
const FundDataSize = 100

const discriminatorLength = 8

var (
	ErrAccountDataTooLarge          = errors.New("account data exceeds allocated space")
	ErrAccountDiscriminatorMismatch = errors.New("account discriminator mismatch")
	ErrAccountDidNotDeserialize     = errors.New("account did not deserialize")
)

var fundDataDiscriminator = func() [discriminatorLength]byte {
	var d [discriminatorLength]byte
	sum := sha256.Sum256([]byte("account:FundData"))
	copy(d[:], sum[:discriminatorLength])
	return d
}()

// FundData is the campaign metadata persisted inside a ledger account.
// The balance is not part of it: it lives on the account itself.
type FundData struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TargetFund  uint64 `json:"target_fund"`
	Bump        uint8  `json:"bump"`
}

// MarshalBinary encodes f into a zero-padded FundDataSize blob:
// discriminator, u32-LE length-prefixed name and description, u64-LE target, u8 bump.
func (f FundData) MarshalBinary() ([]byte, error) {
	need := discriminatorLength + 4 + len(f.Name) + 4 + len(f.Description) + 8 + 1
	if need > FundDataSize {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrAccountDataTooLarge, need, FundDataSize)
	}

	buf := make([]byte, 0, FundDataSize)
	buf = append(buf, fundDataDiscriminator[:]...)
	buf = appendString(buf, f.Name)
	buf = appendString(buf, f.Description)
	buf = binary.LittleEndian.AppendUint64(buf, f.TargetFund)
	buf = append(buf, f.Bump)

	out := make([]byte, FundDataSize)
	copy(out, buf)
	return out, nil
}

// UnmarshalBinary decodes a blob written by MarshalBinary. Trailing padding is ignored.
func (f *FundData) UnmarshalBinary(data []byte) error {
	if len(data) < discriminatorLength {
		return ErrAccountDidNotDeserialize
	}
	if !bytes.Equal(data[:discriminatorLength], fundDataDiscriminator[:]) {
		return ErrAccountDiscriminatorMismatch
	}

	r := data[discriminatorLength:]
	name, r, err := readString(r)
	if err != nil {
		return err
	}
	description, r, err := readString(r)
	if err != nil {
		return err
	}
	if len(r) < 9 {
		return ErrAccountDidNotDeserialize
	}

	f.Name = name
	f.Description = description
	f.TargetFund = binary.LittleEndian.Uint64(r[:8])
	f.Bump = r[8]
	return nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func readString(r []byte) (string, []byte, error) {
	if len(r) < 4 {
		return "", nil, ErrAccountDidNotDeserialize
	}
	n := binary.LittleEndian.Uint32(r[:4])
	r = r[4:]
	if n > math.MaxInt32 || int(n) > len(r) {
		return "", nil, ErrAccountDidNotDeserialize
	}
	return string(r[:n]), r[n:], nil
}

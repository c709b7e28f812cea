// Package derive computes deterministic, off-curve account addresses from a
// program id and a list of seeds, and re-verifies them from a stored bump.
package derive

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/sheikh-saqib/escrow-ledger/internal/models"
)

const (
	// MaxSeeds is the largest number of seeds, bump included, accepted by CreateProgramAddress.
	MaxSeeds = 16
	// MaxSeedLength is the largest single seed in bytes.
	MaxSeedLength = 32

	// CampaignSeed namespaces every campaign ledger account.
	CampaignSeed = "gofundme-20221215"

	programIDBase58 = "4sexL2C9M3xM69EzMwFEN4yTkm3qWmJpBu83KXyjsmqJ"
	pdaMarker       = "ProgramDerivedAddress"
)

var (
	ErrMaxSeedLength = errors.New("seed exceeds maximum length")
	ErrInvalidSeeds  = errors.New("derived address lies on the curve")
	ErrNoViableBump  = errors.New("no viable bump found")
)

var programID = models.MustParseAddress(programIDBase58)

// ProgramID returns the address of the escrow program that owns every ledger account.
func ProgramID() models.Address {
	return programID
}

// CampaignSeeds returns the seeds of the ledger account bound to owner.
func CampaignSeeds(owner models.Address) [][]byte {
	return [][]byte{[]byte(CampaignSeed), owner.Bytes()}
}

// CreateProgramAddress hashes seeds with the program id. The result is rejected
// when it is a valid ed25519 point, so no private key can exist for it.
func CreateProgramAddress(seeds [][]byte, program models.Address) (models.Address, error) {
	var addr models.Address
	if len(seeds) > MaxSeeds {
		return addr, fmt.Errorf("%w: %d seeds", ErrMaxSeedLength, len(seeds))
	}

	h := sha256.New()
	for _, s := range seeds {
		if len(s) > MaxSeedLength {
			return addr, fmt.Errorf("%w: %d bytes", ErrMaxSeedLength, len(s))
		}
		h.Write(s)
	}
	h.Write(program.Bytes())
	h.Write([]byte(pdaMarker))
	copy(addr[:], h.Sum(nil))

	if onCurve(addr) {
		return models.Address{}, ErrInvalidSeeds
	}
	return addr, nil
}

// FindProgramAddress searches bumps from 255 down and returns the first off-curve
// address together with the canonical bump that produced it.
func FindProgramAddress(seeds [][]byte, program models.Address) (models.Address, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		addr, err := CreateProgramAddress(withBump, program)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrInvalidSeeds) {
			return models.Address{}, 0, err
		}
	}
	return models.Address{}, 0, ErrNoViableBump
}

// CampaignAddress derives the ledger account address and canonical bump for owner.
func CampaignAddress(owner models.Address) (models.Address, uint8, error) {
	return FindProgramAddress(CampaignSeeds(owner), programID)
}

// VerifyBinding reports whether account is exactly the address produced by the
// proof's owner and bump.
func VerifyBinding(proof models.OwnerProof, account models.Address) bool {
	seeds := append(CampaignSeeds(proof.Owner), []byte{proof.Bump})
	addr, err := CreateProgramAddress(seeds, programID)
	if err != nil {
		return false
	}
	return addr == account
}

func onCurve(addr models.Address) bool {
	_, err := new(edwards25519.Point).SetBytes(addr[:])
	return err == nil
}

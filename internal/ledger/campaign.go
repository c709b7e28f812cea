package ledger

import "github.com/sheikh-saqib/escrow-ledger/internal/models"

// Campaign is a read model over one ledger account.
type Campaign struct {
	Address       models.Address  `json:"address"`
	FundData      models.FundData `json:"fund_data"`
	Balance       uint64          `json:"balance"`
	ReservedFloor uint64          `json:"reserved_floor"`
	Surplus       uint64          `json:"surplus"`
	TargetReached bool            `json:"target_reached"`
}

// Surplus returns balance minus floor. ok is false when balance sits below the
// floor, in which case the surplus is reported as 0.
func Surplus(balance, floor uint64) (surplus uint64, ok bool) {
	if balance < floor {
		return 0, false
	}
	return balance - floor, true
}

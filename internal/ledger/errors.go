package ledger

import "errors"

var (
	ErrInvalidTarget                  = errors.New("target fund must be greater than 0")
	ErrInvalidCampaign                = errors.New("invalid campaign metadata")
	ErrAccountAlreadyExists           = errors.New("ledger account already exists for owner")
	ErrAccountNotFound                = errors.New("ledger account not found")
	ErrNotLedgerAccount               = errors.New("account is not a ledger account")
	ErrInsufficientPayerBalance       = errors.New("owner cannot cover the reserved minimum balance")
	ErrInsufficientContributorBalance = errors.New("contributor balance too low")
	ErrInvalidContributor             = errors.New("contributor must be a system wallet other than the ledger account")
	ErrUnauthorized                   = errors.New("caller is not bound to this ledger account")
	ErrFundNotReachedYet              = errors.New("fund not reached yet")
	ErrArithmeticUnderflow            = errors.New("arithmetic underflow")
	ErrArithmeticOverflow             = errors.New("arithmetic overflow")
)

package models

// Account is the host-level record every address resolves to.
// Wallets have a zero Owner and no Data; ledger accounts are owned by the program
// and carry an encoded FundData blob.
type Account struct {
	Address  Address
	Lamports uint64  // balance held by the account itself
	Owner    Address // owning program, zero for system wallets
	Data     []byte
}

// Clone returns a deep copy so callers can't mutate store internals.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.Data != nil {
		c.Data = make([]byte, len(a.Data))
		copy(c.Data, a.Data)
	}
	return &c
}

package models

// OwnerProof is what a withdrawing caller presents: the identity the host attested
// as signer, and the bump it claims produced the ledger account's address.
type OwnerProof struct {
	Owner Address `json:"owner"`
	Bump  uint8   `json:"bump"`
}

package events

import (
	"time"

	"github.com/sheikh-saqib/escrow-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Topic-independent event type names, carried in every payload.
const (
	TypeCampaignInitialized  = "campaign_initialized"
	TypeContributionReceived = "contribution_received"
	TypeFundsWithdrawn       = "funds_withdrawn"
)

type CampaignInitialized struct {
	EventID     string          `json:"event_id"`
	Type        string          `json:"type"`
	Campaign    models.Address  `json:"campaign"`
	Owner       models.Address  `json:"owner"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	TargetFund  uint64          `json:"target_fund"`
	TargetSOL   decimal.Decimal `json:"target_sol"`
	Bump        uint8           `json:"bump"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type ContributionReceived struct {
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	TransactionID string          `json:"transaction_id"`
	Campaign      models.Address  `json:"campaign"`
	Contributor   models.Address  `json:"contributor"`
	Lamports      uint64          `json:"lamports"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type FundsWithdrawn struct {
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	TransactionID string          `json:"transaction_id"`
	Campaign      models.Address  `json:"campaign"`
	Owner         models.Address  `json:"owner"`
	Lamports      uint64          `json:"lamports"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

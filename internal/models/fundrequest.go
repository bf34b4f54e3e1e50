package models

import "github.com/shopspring/decimal"

type FundRequestStatus string

const (
	FundRequestPending  FundRequestStatus = "pending"
	FundRequestApproved FundRequestStatus = "approved"
	FundRequestRejected FundRequestStatus = "rejected"
)

type FundDirection string

const (
	FundDeposit  FundDirection = "deposit"
	FundWithdraw FundDirection = "withdraw"
)

// FundRequest transitions pending -> approved|rejected exactly once.
type FundRequest struct {
	ID        string            `json:"id" redis:"id"`
	UserID    int64             `json:"user_id" redis:"user_id"`
	Direction FundDirection     `json:"direction" redis:"direction"`
	MethodID  string            `json:"method_id" redis:"method_id"`
	Amount    decimal.Decimal   `json:"amount" redis:"amount"`
	Currency  Currency          `json:"currency" redis:"currency"`
	Status    FundRequestStatus `json:"status" redis:"status"`

	// Opaque proof reference for deposits (screenshot URL) and destination
	// account info for withdrawals.
	ProofRef    string `json:"proof_ref,omitempty" redis:"proof_ref"`
	AccountInfo string `json:"account_info,omitempty" redis:"account_info"`

	CreatedAt   int64 `json:"created_at" redis:"created_at"`
	ProcessedAt int64 `json:"processed_at,omitempty" redis:"processed_at"`
}

// PaymentMethod values are consumed by the gateway; the records themselves
// are operator-managed.
type PaymentMethod struct {
	ID       string        `json:"id" redis:"id"`
	Kind     FundDirection `json:"kind" redis:"kind"`
	Name     string        `json:"name" redis:"name"`
	Card     string        `json:"card" redis:"card"`
	Confirm  string        `json:"confirm" redis:"confirm"`
	Currency Currency      `json:"currency" redis:"currency"`

	MinAmount *decimal.Decimal `json:"min_amount,omitempty" redis:"min_amount"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty" redis:"max_amount"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
}

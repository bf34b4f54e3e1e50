package models

import "github.com/shopspring/decimal"

type TransactionType string

const (
	TransactionTypeWager    TransactionType = "wager"
	TransactionTypePrize    TransactionType = "prize"
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
	TransactionTypeTransfer TransactionType = "transfer"
	TransactionTypeReversal TransactionType = "reversal"
	TransactionTypeBonus    TransactionType = "bonus"
)

// Transaction is an audit record written alongside ledger mutations.
type Transaction struct {
	ID            string          `json:"id" redis:"id"`
	UserID        int64           `json:"user_id" redis:"user_id"`
	Type          TransactionType `json:"type" redis:"type"`
	Currency      Currency        `json:"currency" redis:"currency"`
	Amount        decimal.Decimal `json:"amount" redis:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before" redis:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after" redis:"balance_after"`
	WagerID       string          `json:"wager_id,omitempty" redis:"wager_id"`
	Description   string          `json:"description" redis:"description"`
	CreatedAt     int64           `json:"created_at" redis:"created_at"`
}

package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type BetType string

const (
	BetTypeFijo     BetType = "fijo"
	BetTypeCorridos BetType = "corridos"
	BetTypeCentena  BetType = "centena"
	BetTypeParle    BetType = "parle"
)

func (bt BetType) Valid() bool {
	switch bt {
	case BetTypeFijo, BetTypeCorridos, BetTypeCentena, BetTypeParle:
		return true
	}
	return false
}

// WagerItem is one staked code. Code is either a plain number for the bet
// type, a "NNxNN" pair for parle, or an uppercase D#/T# wildcard for fijo
// (wildcard amounts already carry the x10 expansion).
type WagerItem struct {
	Code     string          `json:"code" redis:"code"`
	Currency Currency        `json:"currency" redis:"currency"`
	Amount   decimal.Decimal `json:"amount" redis:"amount"`
}

// Wager is immutable once created, except for cancellation (full reversal)
// while its session is still open. Settlement fields are written exactly once
// by the payout engine.
type Wager struct {
	ID        string      `json:"id" redis:"id"`
	UserID    int64       `json:"user_id" redis:"user_id"`
	SessionID string      `json:"session_id" redis:"session_id"`
	Lottery   string      `json:"lottery" redis:"lottery"`
	BetType   BetType     `json:"bet_type" redis:"bet_type"`
	RawText   string      `json:"raw_text" redis:"raw_text"`
	Items     []WagerItem `json:"items" redis:"items"`

	TotalCUP decimal.Decimal `json:"total_cup" redis:"total_cup"`
	TotalUSD decimal.Decimal `json:"total_usd" redis:"total_usd"`

	// Split actually taken by the bonus-first debit, kept so cancellation
	// restores bonus to bonus and spendable to spendable.
	DebitedBonusCUP decimal.Decimal `json:"debited_bonus_cup" redis:"debited_bonus_cup"`
	DebitedUSD      decimal.Decimal `json:"debited_usd" redis:"debited_usd"`
	DebitedCUP      decimal.Decimal `json:"debited_cup" redis:"debited_cup"`

	PlacedAt int64 `json:"placed_at" redis:"placed_at"`

	Settled   bool            `json:"settled" redis:"settled"`
	PrizeCUP  decimal.Decimal `json:"prize_cup" redis:"prize_cup"`
	PrizeUSD  decimal.Decimal `json:"prize_usd" redis:"prize_usd"`
	SettledAt int64           `json:"settled_at,omitempty" redis:"settled_at"`
}

func (w *Wager) Validate() error {
	if !w.BetType.Valid() {
		return fmt.Errorf("invalid bet type: %s", w.BetType)
	}
	if len(w.Items) == 0 {
		return fmt.Errorf("wager has no items")
	}
	sumCUP, sumUSD := decimal.Zero, decimal.Zero
	for _, item := range w.Items {
		if !item.Amount.IsPositive() {
			return fmt.Errorf("item %s has non-positive amount", item.Code)
		}
		switch item.Currency {
		case CurrencyCUP:
			sumCUP = sumCUP.Add(item.Amount)
		case CurrencyUSD:
			sumUSD = sumUSD.Add(item.Amount)
		default:
			return fmt.Errorf("item %s has unsupported currency %s", item.Code, item.Currency)
		}
	}
	if !sumCUP.Equal(w.TotalCUP) || !sumUSD.Equal(w.TotalUSD) {
		return fmt.Errorf("item sums do not match wager totals")
	}
	return nil
}

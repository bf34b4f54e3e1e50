package models

import (
	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyCUP  Currency = "CUP"
	CurrencyUSD  Currency = "USD"
	CurrencyUSDT Currency = "USDT"
	CurrencyTRX  Currency = "TRX"
	CurrencyMLC  Currency = "MLC"
)

// Spendable ledger currencies. Bonus is tracked separately and is not a
// transferable currency.
func (c Currency) IsNative() bool {
	return c == CurrencyCUP || c == CurrencyUSD
}

func (c Currency) Valid() bool {
	switch c {
	case CurrencyCUP, CurrencyUSD, CurrencyUSDT, CurrencyTRX, CurrencyMLC:
		return true
	}
	return false
}

// Account balances are only ever mutated through the Ledger. All three
// balances stay >= 0 after any committed operation.
type Account struct {
	TelegramID int64  `json:"telegram_id" redis:"telegram_id"`
	FirstName  string `json:"first_name" redis:"first_name"`
	Username   string `json:"username" redis:"username"`

	CUP      decimal.Decimal `json:"cup" redis:"cup"`
	USD      decimal.Decimal `json:"usd" redis:"usd"`
	BonusCUP decimal.Decimal `json:"bonus_cup" redis:"bonus_cup"`

	ReferredBy int64 `json:"referred_by,omitempty" redis:"referred_by"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
}

// Balance returns the spendable balance in the given native currency.
func (a *Account) Balance(currency Currency) decimal.Decimal {
	switch currency {
	case CurrencyCUP:
		return a.CUP
	case CurrencyUSD:
		return a.USD
	}
	return decimal.Zero
}

func (a *Account) AddBalance(currency Currency, amount decimal.Decimal) {
	switch currency {
	case CurrencyCUP:
		a.CUP = a.CUP.Add(amount)
	case CurrencyUSD:
		a.USD = a.USD.Add(amount)
	}
}

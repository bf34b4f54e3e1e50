package models

import "github.com/shopspring/decimal"

// PlayPrice carries the operator-configured payout multiplier and the stake
// bounds per bet type. Nil max means unbounded.
type PlayPrice struct {
	BetType          BetType          `json:"bet_type" redis:"bet_type"`
	PayoutMultiplier decimal.Decimal  `json:"payout_multiplier" redis:"payout_multiplier"`
	MinCUP           decimal.Decimal  `json:"min_cup" redis:"min_cup"`
	MinUSD           decimal.Decimal  `json:"min_usd" redis:"min_usd"`
	MaxCUP           *decimal.Decimal `json:"max_cup,omitempty" redis:"max_cup"`
	MaxUSD           *decimal.Decimal `json:"max_usd,omitempty" redis:"max_usd"`
}

// ExchangeRates are point-in-time values; every conversion uses the rates
// current at the moment of the operation.
type ExchangeRates struct {
	USD  decimal.Decimal `json:"rate"`
	USDT decimal.Decimal `json:"rate_usdt"`
	TRX  decimal.Decimal `json:"rate_trx"`
}

// ToCUP converts an amount in the given currency into CUP. MLC is treated
// as USD.
func (r ExchangeRates) ToCUP(amount decimal.Decimal, currency Currency) decimal.Decimal {
	switch currency {
	case CurrencyCUP:
		return amount
	case CurrencyUSD, CurrencyMLC:
		return amount.Mul(r.USD)
	case CurrencyUSDT:
		return amount.Mul(r.USDT)
	case CurrencyTRX:
		return amount.Mul(r.TRX)
	}
	return decimal.Zero
}

// FromCUP converts a CUP amount into the target currency.
func (r ExchangeRates) FromCUP(amountCUP decimal.Decimal, target Currency) decimal.Decimal {
	switch target {
	case CurrencyCUP:
		return amountCUP
	case CurrencyUSD, CurrencyMLC:
		return amountCUP.Div(r.USD)
	case CurrencyUSDT:
		return amountCUP.Div(r.USDT)
	case CurrencyTRX:
		return amountCUP.Div(r.TRX)
	}
	return decimal.Zero
}

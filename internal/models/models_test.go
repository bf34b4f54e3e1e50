package models_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/models"
)

func TestParseAmountWithCurrency(t *testing.T) {
	amount, currency, ok := models.ParseAmountWithCurrency("500 cup")
	if !ok {
		t.Fatal("Expected parse to succeed")
	}
	if !amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected 500, got %s", amount)
	}
	if currency != models.CurrencyCUP {
		t.Errorf("Expected CUP, got %s", currency)
	}

	amount, currency, ok = models.ParseAmountWithCurrency("2,5 USDT")
	if !ok {
		t.Fatal("Expected comma decimal to parse")
	}
	if !amount.Equal(decimal.NewFromFloat(2.5)) {
		t.Errorf("Expected 2.5, got %s", amount)
	}
	if currency != models.CurrencyUSDT {
		t.Errorf("Expected USDT, got %s", currency)
	}

	for _, bad := range []string{"", "cup", "500", "500 eur", "-5 cup", "0 cup"} {
		if _, _, ok := models.ParseAmountWithCurrency(bad); ok {
			t.Errorf("Expected %q to fail", bad)
		}
	}
}

func TestCurrencyIsNative(t *testing.T) {
	if !models.CurrencyCUP.IsNative() || !models.CurrencyUSD.IsNative() {
		t.Error("CUP and USD are ledger currencies")
	}
	if models.CurrencyUSDT.IsNative() || models.CurrencyTRX.IsNative() || models.CurrencyMLC.IsNative() {
		t.Error("Convertible currencies are not ledger currencies")
	}
}

func TestAccountBalance(t *testing.T) {
	account := &models.Account{
		TelegramID: 123456789,
		CUP:        decimal.NewFromInt(100),
		USD:        decimal.NewFromInt(5),
		BonusCUP:   decimal.NewFromInt(70),
	}

	if !account.Balance(models.CurrencyCUP).Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected 100 CUP, got %s", account.Balance(models.CurrencyCUP))
	}

	account.AddBalance(models.CurrencyUSD, decimal.NewFromInt(3))
	if !account.USD.Equal(decimal.NewFromInt(8)) {
		t.Errorf("Expected 8 USD, got %s", account.USD)
	}
}

func TestWagerValidate(t *testing.T) {
	wager := &models.Wager{
		ID:      models.GenerateWagerID(),
		UserID:  123456789,
		BetType: models.BetTypeFijo,
		Items: []models.WagerItem{
			{Code: "17", Currency: models.CurrencyCUP, Amount: decimal.NewFromInt(10)},
			{Code: "23", Currency: models.CurrencyUSD, Amount: decimal.NewFromInt(2)},
		},
		TotalCUP: decimal.NewFromInt(10),
		TotalUSD: decimal.NewFromInt(2),
	}

	if err := wager.Validate(); err != nil {
		t.Errorf("Valid wager failed validation: %v", err)
	}

	wager.TotalCUP = decimal.NewFromInt(99)
	if err := wager.Validate(); err == nil {
		t.Error("Mismatched totals should fail validation")
	}
}

func TestExchangeRatesRoundTrip(t *testing.T) {
	rates := models.ExchangeRates{
		USD:  decimal.NewFromInt(110),
		USDT: decimal.NewFromInt(110),
		TRX:  decimal.NewFromInt(1),
	}

	cup := rates.ToCUP(decimal.NewFromInt(2), models.CurrencyUSD)
	if !cup.Equal(decimal.NewFromInt(220)) {
		t.Errorf("Expected 220 CUP, got %s", cup)
	}

	// MLC converts at the USD rate.
	if !rates.ToCUP(decimal.NewFromInt(1), models.CurrencyMLC).Equal(decimal.NewFromInt(110)) {
		t.Error("MLC should convert at the USD rate")
	}

	back := rates.FromCUP(cup, models.CurrencyUSD)
	if !back.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected 2 USD back, got %s", back)
	}
}

func TestWinningNumberFormatted(t *testing.T) {
	win := &models.WinningNumber{Number: "5173262"}
	if win.Formatted() != "517 3262" {
		t.Errorf("Expected \"517 3262\", got %q", win.Formatted())
	}
}

func TestSessionNaturalKey(t *testing.T) {
	session := &models.Session{
		Lottery:  "Florida",
		Date:     "2026-03-10",
		TimeSlot: "Mañana",
	}
	if session.NaturalKey() != "Florida|2026-03-10|Mañana" {
		t.Errorf("Unexpected natural key: %s", session.NaturalKey())
	}
}

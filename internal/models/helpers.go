package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func GenerateWagerID() string {
	return fmt.Sprintf("wager_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateSessionID() string {
	return fmt.Sprintf("session_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateRequestID() string {
	return fmt.Sprintf("req_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateMethodID() string {
	return uuid.New().String()
}

var amountWithCurrencyRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(cup|usd|usdt|trx|mlc)$`)

// ParseAmountWithCurrency reads strings like "500 cup" or "10 usdt".
func ParseAmountWithCurrency(text string) (decimal.Decimal, Currency, bool) {
	lower := strings.TrimSpace(strings.ReplaceAll(strings.ToLower(text), ",", "."))
	m := amountWithCurrencyRe.FindStringSubmatch(lower)
	if m == nil {
		return decimal.Zero, "", false
	}
	amount, err := decimal.NewFromString(m[1])
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, "", false
	}
	return amount, Currency(strings.ToUpper(m[2])), true
}

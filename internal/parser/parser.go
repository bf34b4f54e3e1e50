// Package parser turns free-text wager messages into structured stake items.
// A message is parsed line by line; lines or tokens that do not fit the
// grammar are dropped silently, and only a message yielding no items at all
// is rejected.
package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/models"
)

// Line shape: number tokens, then "con" or "*", then the stake, then an
// optional currency code (USD when omitted). Matched against the lowercased
// line; the token class admits the fijo wildcard letters and the parle "x".
var (
	lineRe     = regexp.MustCompile(`^([0-9dtx\s,]+?)\s*(?:con|\*)\s*([0-9]+(?:[.,][0-9]+)?)\s*(cup|usd)?$`)
	twoDigits  = regexp.MustCompile(`^\d{2}$`)
	threeDigit = regexp.MustCompile(`^\d{3}$`)
	parlePair  = regexp.MustCompile(`^\d{2}x\d{2}$`)
	wildcard   = regexp.MustCompile(`^[dt]\d$`)
)

var ten = decimal.NewFromInt(10)

type Result struct {
	Items    []models.WagerItem
	TotalCUP decimal.Decimal
	TotalUSD decimal.Decimal
}

// ParseMessage parses a multi-line wager message for the given bet type.
// Returns models.ErrParseRejected when no line produced any item.
func ParseMessage(text string, betType models.BetType) (*Result, error) {
	result := &Result{
		TotalCUP: decimal.Zero,
		TotalUSD: decimal.Zero,
	}

	for _, line := range strings.Split(text, "\n") {
		for _, item := range parseLine(line, betType) {
			result.Items = append(result.Items, item)
			switch item.Currency {
			case models.CurrencyCUP:
				result.TotalCUP = result.TotalCUP.Add(item.Amount)
			case models.CurrencyUSD:
				result.TotalUSD = result.TotalUSD.Add(item.Amount)
			}
		}
	}

	if len(result.Items) == 0 {
		return nil, models.ErrParseRejected
	}
	return result, nil
}

func parseLine(line string, betType models.BetType) []models.WagerItem {
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return nil
	}

	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}

	currency := models.CurrencyUSD
	if m[3] != "" {
		currency = models.Currency(strings.ToUpper(m[3]))
	}

	base, err := decimal.NewFromString(strings.ReplaceAll(m[2], ",", "."))
	if err != nil || !base.IsPositive() {
		return nil
	}

	var items []models.WagerItem
	for _, token := range strings.FieldsFunc(m[1], func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	}) {
		code, amount, ok := validateToken(token, betType, base)
		if !ok {
			continue
		}
		items = append(items, models.WagerItem{
			Code:     code,
			Currency: currency,
			Amount:   amount,
		})
	}
	return items
}

// validateToken applies the bet-type-specific shape rules. Fijo wildcards
// (D#/T#) stand for ten simultaneous sub-bets, so their stake is the base
// stake times ten and the code is stored uppercase.
func validateToken(token string, betType models.BetType, base decimal.Decimal) (string, decimal.Decimal, bool) {
	switch betType {
	case models.BetTypeFijo:
		if twoDigits.MatchString(token) {
			return token, base, true
		}
		if wildcard.MatchString(token) {
			return strings.ToUpper(token), base.Mul(ten), true
		}
	case models.BetTypeCorridos:
		if twoDigits.MatchString(token) {
			return token, base, true
		}
	case models.BetTypeCentena:
		if threeDigit.MatchString(token) {
			return token, base, true
		}
	case models.BetTypeParle:
		if parlePair.MatchString(token) {
			return token, base, true
		}
	}
	return "", decimal.Zero, false
}

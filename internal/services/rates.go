package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/models"
)

// Default rates and prices seeded on first read. The operator overwrites
// them through the admin endpoints.
var (
	defaultRateUSD  = decimal.NewFromInt(110)
	defaultRateUSDT = decimal.NewFromInt(110)
	defaultRateTRX  = decimal.NewFromInt(1)

	defaultMultipliers = map[models.BetType]decimal.Decimal{
		models.BetTypeFijo:     decimal.NewFromInt(75),
		models.BetTypeCorridos: decimal.NewFromInt(25),
		models.BetTypeCentena:  decimal.NewFromInt(400),
		models.BetTypeParle:    decimal.NewFromInt(1000),
	}
)

// GetExchangeRates reads the current rates, falling back to defaults for
// fields the operator has not set yet.
func (s *RedisService) GetExchangeRates() (models.ExchangeRates, error) {
	rates := models.ExchangeRates{
		USD:  defaultRateUSD,
		USDT: defaultRateUSDT,
		TRX:  defaultRateTRX,
	}

	fields, err := s.client.HGetAll(s.ctx, KeyExchangeRates).Result()
	if err != nil {
		return rates, fmt.Errorf("failed to get exchange rates: %v", err)
	}

	if v, ok := fields["usd"]; ok {
		if d, err := decimal.NewFromString(v); err == nil {
			rates.USD = d
		}
	}
	if v, ok := fields["usdt"]; ok {
		if d, err := decimal.NewFromString(v); err == nil {
			rates.USDT = d
		}
	}
	if v, ok := fields["trx"]; ok {
		if d, err := decimal.NewFromString(v); err == nil {
			rates.TRX = d
		}
	}

	return rates, nil
}

func (s *RedisService) SetExchangeRate(field string, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("rate must be positive")
	}
	switch field {
	case "usd", "usdt", "trx":
	default:
		return fmt.Errorf("unknown rate field: %s", field)
	}
	return s.client.HSet(s.ctx, KeyExchangeRates, field, rate.String()).Err()
}

// GetPlayPrice returns the configured price row for a bet type, with the
// default multiplier and zero minimums when unset.
func (s *RedisService) GetPlayPrice(betType models.BetType) (*models.PlayPrice, error) {
	price := &models.PlayPrice{
		BetType:          betType,
		PayoutMultiplier: defaultMultipliers[betType],
		MinCUP:           decimal.Zero,
		MinUSD:           decimal.Zero,
	}

	fields, err := s.client.HGetAll(s.ctx, fmt.Sprintf(KeyPlayPrice, betType)).Result()
	if err != nil {
		return price, fmt.Errorf("failed to get play price: %v", err)
	}

	if v, ok := fields["payout_multiplier"]; ok {
		if d, err := decimal.NewFromString(v); err == nil {
			price.PayoutMultiplier = d
		}
	}
	if v, ok := fields["min_cup"]; ok {
		if d, err := decimal.NewFromString(v); err == nil {
			price.MinCUP = d
		}
	}
	if v, ok := fields["min_usd"]; ok {
		if d, err := decimal.NewFromString(v); err == nil {
			price.MinUSD = d
		}
	}
	if v, ok := fields["max_cup"]; ok {
		if d, err := decimal.NewFromString(v); err == nil {
			price.MaxCUP = &d
		}
	}
	if v, ok := fields["max_usd"]; ok {
		if d, err := decimal.NewFromString(v); err == nil {
			price.MaxUSD = &d
		}
	}

	return price, nil
}

// SetPlayPrice writes only the provided fields; a nil max clears the bound.
func (s *RedisService) SetPlayPrice(price *models.PlayPrice) error {
	if !price.BetType.Valid() {
		return fmt.Errorf("invalid bet type: %s", price.BetType)
	}

	key := fmt.Sprintf(KeyPlayPrice, price.BetType)
	fields := map[string]interface{}{
		"payout_multiplier": price.PayoutMultiplier.String(),
		"min_cup":           price.MinCUP.String(),
		"min_usd":           price.MinUSD.String(),
	}
	if err := s.client.HSet(s.ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to set play price: %v", err)
	}

	if price.MaxCUP != nil {
		s.client.HSet(s.ctx, key, "max_cup", price.MaxCUP.String())
	} else {
		s.client.HDel(s.ctx, key, "max_cup")
	}
	if price.MaxUSD != nil {
		s.client.HSet(s.ctx, key, "max_usd", price.MaxUSD.String())
	} else {
		s.client.HDel(s.ctx, key, "max_usd")
	}

	return nil
}

func (s *RedisService) ListPlayPrices() ([]*models.PlayPrice, error) {
	betTypes := []models.BetType{
		models.BetTypeFijo,
		models.BetTypeCorridos,
		models.BetTypeCentena,
		models.BetTypeParle,
	}

	var prices []*models.PlayPrice
	for _, bt := range betTypes {
		price, err := s.GetPlayPrice(bt)
		if err != nil {
			return nil, err
		}
		prices = append(prices, price)
	}
	return prices, nil
}

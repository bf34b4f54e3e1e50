package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/models"
	"bolita-miniapp-backend/internal/parser"
)

// WagerService orchestrates placement and cancellation: parse, price
// limits, session gate re-checked right before the debit, bonus-first
// funding, persistence with compensation on failure.
type WagerService struct {
	store    *RedisService
	ledger   *Ledger
	registry *SessionRegistry
}

func NewWagerService(store *RedisService, ledger *Ledger, registry *SessionRegistry) *WagerService {
	return &WagerService{
		store:    store,
		ledger:   ledger,
		registry: registry,
	}
}

func (w *WagerService) PlaceWager(ctx context.Context, userID int64, sessionID string, betType models.BetType, rawText string) (*models.Wager, error) {
	if !betType.Valid() {
		return nil, fmt.Errorf("invalid bet type: %s", betType)
	}

	parsed, err := parser.ParseMessage(rawText, betType)
	if err != nil {
		return nil, err
	}

	price, err := w.store.GetPlayPrice(betType)
	if err != nil {
		return nil, err
	}
	if err := checkPriceLimits(parsed.Items, price); err != nil {
		return nil, err
	}

	session, err := w.registry.RequireOpen(sessionID, time.Now())
	if err != nil {
		return nil, err
	}

	wager := &models.Wager{
		ID:        models.GenerateWagerID(),
		UserID:    userID,
		SessionID: session.ID,
		Lottery:   session.Lottery,
		BetType:   betType,
		RawText:   rawText,
		Items:     parsed.Items,
		TotalCUP:  parsed.TotalCUP,
		TotalUSD:  parsed.TotalUSD,

		DebitedBonusCUP: decimal.Zero,
		DebitedUSD:      decimal.Zero,
		DebitedCUP:      decimal.Zero,

		PrizeCUP: decimal.Zero,
		PrizeUSD: decimal.Zero,
		PlacedAt: time.Now().Unix(),
	}

	// The session may have expired while parsing; the gate holds only if it
	// is still open immediately before funds move.
	if _, err := w.registry.RequireOpen(sessionID, time.Now()); err != nil {
		return nil, err
	}

	if parsed.TotalUSD.IsPositive() {
		split, err := w.ledger.DebitUSDBonusFirst(userID, parsed.TotalUSD)
		if err != nil {
			return nil, err
		}
		wager.DebitedBonusCUP = split.BonusCUP
		wager.DebitedUSD = split.USD
	}

	if parsed.TotalCUP.IsPositive() {
		if err := w.ledger.DebitCUP(userID, parsed.TotalCUP); err != nil {
			// Undo the USD leg so the failed wager leaves no trace.
			if wager.DebitedBonusCUP.IsPositive() || wager.DebitedUSD.IsPositive() {
				w.ledger.ReverseWagerDebit(wager)
			}
			return nil, err
		}
		wager.DebitedCUP = parsed.TotalCUP
	}

	if err := w.store.SaveWager(wager); err != nil {
		w.ledger.ReverseWagerDebit(wager)
		return nil, fmt.Errorf("failed to save wager: %v", err)
	}

	if wager.DebitedUSD.IsPositive() {
		w.ledger.record(userID, models.TransactionTypeWager, models.CurrencyUSD,
			wager.DebitedUSD.Neg(), wager.ID, fmt.Sprintf("Wager %s placed", betType))
	}
	if wager.DebitedCUP.IsPositive() {
		w.ledger.record(userID, models.TransactionTypeWager, models.CurrencyCUP,
			wager.DebitedCUP.Neg(), wager.ID, fmt.Sprintf("Wager %s placed", betType))
	}

	return wager, nil
}

// CancelWager fully reverses a wager while its session is still open.
func (w *WagerService) CancelWager(ctx context.Context, userID int64, wagerID string) error {
	wager, err := w.store.GetWager(wagerID)
	if err != nil {
		return err
	}
	if wager.UserID != userID {
		return models.ErrWagerNotFound
	}
	if wager.Settled {
		return models.ErrAlreadySettled
	}

	session, err := w.registry.Get(wager.SessionID)
	if err != nil {
		return err
	}
	if session.Status != models.SessionOpen {
		return models.ErrSessionNotOpen
	}

	// The settled marker arbitrates against a settlement run racing the
	// session close: whoever claims it first owns the wager. Losing the
	// claim means a payout already handled it.
	first, err := w.store.MarkWagerSettled(ctx, wager.SessionID, wager.ID)
	if err != nil {
		return err
	}
	if !first {
		return models.ErrAlreadySettled
	}

	if err := w.ledger.ReverseWagerDebit(wager); err != nil {
		return err
	}

	return w.store.DeleteWager(wager)
}

func (w *WagerService) History(userID int64, limit int64) ([]*models.Wager, error) {
	return w.store.GetUserWagers(userID, limit)
}

// checkPriceLimits enforces the operator's per-item stake bounds in each
// currency.
func checkPriceLimits(items []models.WagerItem, price *models.PlayPrice) error {
	for _, item := range items {
		switch item.Currency {
		case models.CurrencyCUP:
			if item.Amount.LessThan(price.MinCUP) {
				return fmt.Errorf("minimum stake is %s CUP", price.MinCUP)
			}
			if price.MaxCUP != nil && item.Amount.GreaterThan(*price.MaxCUP) {
				return fmt.Errorf("maximum stake is %s CUP", price.MaxCUP)
			}
		case models.CurrencyUSD:
			if item.Amount.LessThan(price.MinUSD) {
				return fmt.Errorf("minimum stake is %s USD", price.MinUSD)
			}
			if price.MaxUSD != nil && item.Amount.GreaterThan(*price.MaxUSD) {
				return fmt.Errorf("maximum stake is %s USD", price.MaxUSD)
			}
		}
	}
	return nil
}

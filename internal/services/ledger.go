package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/models"
)

// Ledger owns every balance mutation. All operations are all-or-nothing:
// a precondition failure aborts before any write, and concurrent mutations
// of one account are serialized by the store's optimistic transaction.
type Ledger struct {
	store *RedisService
}

func NewLedger(store *RedisService) *Ledger {
	return &Ledger{store: store}
}

// BonusFirstDebit is the split actually taken from an account by
// DebitUSDBonusFirst, recorded on the wager so cancellation can restore
// bonus to bonus and spendable to spendable.
type BonusFirstDebit struct {
	BonusCUP decimal.Decimal
	USD      decimal.Decimal
}

func (l *Ledger) Credit(userID int64, currency models.Currency, amount decimal.Decimal) error {
	if err := requireNativePositive(currency, amount); err != nil {
		return err
	}

	_, err := l.store.UpdateAccount(userID, func(a *models.Account) error {
		a.AddBalance(currency, amount)
		return nil
	})
	return err
}

func (l *Ledger) Debit(userID int64, currency models.Currency, amount decimal.Decimal) error {
	if err := requireNativePositive(currency, amount); err != nil {
		return err
	}

	_, err := l.store.UpdateAccount(userID, func(a *models.Account) error {
		if a.Balance(currency).LessThan(amount) {
			return models.ErrInsufficientFunds
		}
		a.AddBalance(currency, amount.Neg())
		return nil
	})
	return err
}

// CreditBonus restores non-withdrawable bonus balance (denominated in CUP).
func (l *Ledger) CreditBonus(userID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}

	_, err := l.store.UpdateAccount(userID, func(a *models.Account) error {
		a.BonusCUP = a.BonusCUP.Add(amount)
		return nil
	})
	return err
}

// Transfer moves spendable funds between two accounts. Bonus is never
// transferable.
func (l *Ledger) Transfer(fromID, toID int64, currency models.Currency, amount decimal.Decimal) error {
	if err := requireNativePositive(currency, amount); err != nil {
		return err
	}
	if fromID == toID {
		return fmt.Errorf("cannot transfer to self")
	}

	err := l.store.UpdateTwoAccounts(fromID, toID, func(from, to *models.Account) error {
		if from.Balance(currency).LessThan(amount) {
			return models.ErrInsufficientFunds
		}
		from.AddBalance(currency, amount.Neg())
		to.AddBalance(currency, amount)
		return nil
	})
	if err != nil {
		return err
	}

	l.record(fromID, models.TransactionTypeTransfer, currency, amount.Neg(), "",
		fmt.Sprintf("Transfer to %d", toID))
	l.record(toID, models.TransactionTypeTransfer, currency, amount, "",
		fmt.Sprintf("Transfer from %d", fromID))
	return nil
}

// DebitUSDBonusFirst consumes the requested USD amount, bonus first: the
// bonus balance is converted at the current USD rate and drawn down before
// spendable USD. Fails whole with ErrInsufficientFunds when bonus-equivalent
// plus spendable cannot cover the amount.
func (l *Ledger) DebitUSDBonusFirst(userID int64, amountUSD decimal.Decimal) (*BonusFirstDebit, error) {
	if !amountUSD.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	rates, err := l.store.GetExchangeRates()
	if err != nil {
		return nil, err
	}

	var split BonusFirstDebit
	_, err = l.store.UpdateAccount(userID, func(a *models.Account) error {
		// The min is taken in CUP space so the bonus draw is exact; dividing
		// the bonus into USD first rounds, and multiplying back can overshoot
		// the actual bonus balance.
		amountCUP := amountUSD.Mul(rates.USD)
		if a.BonusCUP.Add(a.USD.Mul(rates.USD)).LessThan(amountCUP) {
			return models.ErrInsufficientFunds
		}

		useBonusCUP := decimal.Min(a.BonusCUP, amountCUP)
		split = BonusFirstDebit{
			BonusCUP: useBonusCUP,
			USD:      amountUSD.Sub(useBonusCUP.Div(rates.USD)),
		}

		a.BonusCUP = a.BonusCUP.Sub(split.BonusCUP)
		a.USD = a.USD.Sub(split.USD)
		if a.BonusCUP.IsNegative() || a.USD.IsNegative() {
			return models.ErrInsufficientFunds
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &split, nil
}

// DebitCUP debits spendable CUP only; bonus is never touched for CUP-priced
// wagers.
func (l *Ledger) DebitCUP(userID int64, amount decimal.Decimal) error {
	return l.Debit(userID, models.CurrencyCUP, amount)
}

// ReverseWagerDebit credits back exactly what was taken when the wager was
// placed, per the split recorded on it.
func (l *Ledger) ReverseWagerDebit(wager *models.Wager) error {
	_, err := l.store.UpdateAccount(wager.UserID, func(a *models.Account) error {
		a.BonusCUP = a.BonusCUP.Add(wager.DebitedBonusCUP)
		a.USD = a.USD.Add(wager.DebitedUSD)
		a.CUP = a.CUP.Add(wager.DebitedCUP)
		return nil
	})
	if err != nil {
		return err
	}

	if wager.DebitedCUP.IsPositive() {
		l.record(wager.UserID, models.TransactionTypeReversal, models.CurrencyCUP,
			wager.DebitedCUP, wager.ID, "Wager cancelled")
	}
	if wager.DebitedUSD.IsPositive() {
		l.record(wager.UserID, models.TransactionTypeReversal, models.CurrencyUSD,
			wager.DebitedUSD, wager.ID, "Wager cancelled")
	}
	return nil
}

// CreditPrizeOnce pays winnings into spendable balances only, committing the
// session's settled marker with the credit. Returns false when the marker is
// already set, which means some run already paid this wager.
func (l *Ledger) CreditPrizeOnce(userID int64, sessionID, wagerID string, prizeCUP, prizeUSD decimal.Decimal) (bool, error) {
	credited, err := l.store.CreditPrizeAndMark(userID, sessionID, wagerID, prizeCUP, prizeUSD)
	if err != nil || !credited {
		return credited, err
	}

	if prizeCUP.IsPositive() {
		l.record(userID, models.TransactionTypePrize, models.CurrencyCUP, prizeCUP, wagerID, "Prize credited")
	}
	if prizeUSD.IsPositive() {
		l.record(userID, models.TransactionTypePrize, models.CurrencyUSD, prizeUSD, wagerID, "Prize credited")
	}
	return true, nil
}

func (l *Ledger) record(userID int64, txType models.TransactionType, currency models.Currency, amount decimal.Decimal, wagerID, description string) {
	account, err := l.store.GetAccount(userID)
	if err != nil {
		return
	}

	after := account.Balance(currency)
	tx := &models.Transaction{
		ID:            models.GenerateTransactionID(),
		UserID:        userID,
		Type:          txType,
		Currency:      currency,
		Amount:        amount,
		BalanceBefore: after.Sub(amount),
		BalanceAfter:  after,
		WagerID:       wagerID,
		Description:   description,
		CreatedAt:     time.Now().Unix(),
	}

	// Audit only; a lost record never blocks the ledger operation.
	_ = l.store.SaveTransaction(tx)
}

func requireNativePositive(currency models.Currency, amount decimal.Decimal) error {
	if !currency.IsNative() {
		return fmt.Errorf("currency %s is not a ledger currency", currency)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/models"
)

var sevenDigits = regexp.MustCompile(`^\d{7}$`)

// Decomposition is the set of matchable sub-numbers derived from a 7-digit
// winning number.
type Decomposition struct {
	Number   string
	Centena  string
	Fijo     string
	Corridos [3]string
	Parles   [3]string
}

// Decompose splits a winning number: centena = first three digits, fijo =
// last two of the centena, corridos = fijo plus the two pairs of the
// trailing cuarteta, parles = the three unordered corrido pairs.
func Decompose(number string) (*Decomposition, error) {
	cleaned := strings.Join(strings.Fields(number), "")
	if !sevenDigits.MatchString(cleaned) {
		return nil, models.ErrInvalidWinningNumber
	}

	centena := cleaned[:3]
	cuarteta := cleaned[3:]
	fijo := centena[1:]
	corridos := [3]string{fijo, cuarteta[:2], cuarteta[2:]}

	return &Decomposition{
		Number:   cleaned,
		Centena:  centena,
		Fijo:     fijo,
		Corridos: corridos,
		Parles: [3]string{
			corridos[0] + "x" + corridos[1],
			corridos[0] + "x" + corridos[2],
			corridos[1] + "x" + corridos[2],
		},
	}, nil
}

// Matches reports whether a stored wager code wins against the
// decomposition under its bet type's rules.
func (d *Decomposition) Matches(betType models.BetType, code string) bool {
	switch betType {
	case models.BetTypeFijo:
		if strings.HasPrefix(code, "D") {
			return strings.HasPrefix(d.Fijo, code[1:])
		}
		if strings.HasPrefix(code, "T") {
			return strings.HasSuffix(d.Fijo, code[1:])
		}
		return code == d.Fijo
	case models.BetTypeCorridos:
		for _, c := range d.Corridos {
			if code == c {
				return true
			}
		}
	case models.BetTypeCentena:
		return code == d.Centena
	case models.BetTypeParle:
		parts := strings.SplitN(code, "x", 2)
		if len(parts) != 2 {
			return false
		}
		for _, p := range d.Parles {
			pair := strings.SplitN(p, "x", 2)
			if (parts[0] == pair[0] && parts[1] == pair[1]) ||
				(parts[0] == pair[1] && parts[1] == pair[0]) {
				return true
			}
		}
	}
	return false
}

// WagerPrize is one wager's aggregate winnings.
type WagerPrize struct {
	Wager    *models.Wager
	PrizeCUP decimal.Decimal
	PrizeUSD decimal.Decimal
}

// PayoutEngine settles closed sessions. Publishing the winning number is
// the linearization point: it must commit before any credit, so a crashed
// run can be resumed without repeating credits (per-wager markers guard
// each individual credit).
type PayoutEngine struct {
	store       *RedisService
	ledger      *Ledger
	registry    *SessionRegistry
	broadcaster Broadcaster
}

func NewPayoutEngine(store *RedisService, ledger *Ledger, registry *SessionRegistry) *PayoutEngine {
	return &PayoutEngine{
		store:    store,
		ledger:   ledger,
		registry: registry,
	}
}

func (e *PayoutEngine) SetBroadcaster(b Broadcaster) {
	e.broadcaster = b
}

// Settle publishes the winning number for a closed session and credits all
// winning wagers exactly once.
func (e *PayoutEngine) Settle(ctx context.Context, sessionID, rawNumber string) (*models.WinningNumber, []*WagerPrize, error) {
	session, err := e.registry.Get(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.Status != models.SessionClosed {
		return nil, nil, fmt.Errorf("session must be closed before settlement")
	}

	decomp, err := Decompose(rawNumber)
	if err != nil {
		return nil, nil, err
	}

	win := &models.WinningNumber{
		Lottery:     session.Lottery,
		Date:        session.Date,
		TimeSlot:    session.TimeSlot,
		Number:      decomp.Number,
		PublishedAt: time.Now().Unix(),
	}

	published, err := e.store.SaveWinningNumberNX(win)
	if err != nil {
		return nil, nil, err
	}
	if !published {
		return nil, nil, models.ErrAlreadySettled
	}

	if e.broadcaster != nil {
		e.broadcaster.BroadcastWinningNumber(win)
	}

	winners, err := e.creditPass(ctx, session, decomp)
	if err != nil {
		return win, winners, err
	}
	return win, winners, nil
}

// Resume re-runs the credit pass for a session whose winning number is
// already published. Already-credited wagers are skipped by their markers.
func (e *PayoutEngine) Resume(ctx context.Context, sessionID string) ([]*WagerPrize, error) {
	session, err := e.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	win, err := e.store.GetWinningNumber(session.Lottery, session.Date, session.TimeSlot)
	if err != nil {
		return nil, err
	}

	decomp, err := Decompose(win.Number)
	if err != nil {
		return nil, err
	}
	return e.creditPass(ctx, session, decomp)
}

// Winners computes the prize list for a published session without touching
// any balance.
func (e *PayoutEngine) Winners(ctx context.Context, sessionID string) (*models.WinningNumber, []*WagerPrize, error) {
	session, err := e.registry.Get(sessionID)
	if err != nil {
		return nil, nil, err
	}

	win, err := e.store.GetWinningNumber(session.Lottery, session.Date, session.TimeSlot)
	if err != nil {
		return nil, nil, err
	}

	decomp, err := Decompose(win.Number)
	if err != nil {
		return nil, nil, err
	}

	multipliers, err := e.multipliers()
	if err != nil {
		return nil, nil, err
	}

	var winners []*WagerPrize
	err = e.store.ScanSessionWagers(ctx, session.ID, func(wagerID string) error {
		wager, err := e.store.GetWager(wagerID)
		if err != nil {
			return nil
		}
		prize := prizeFor(wager, decomp, multipliers)
		if prize.PrizeCUP.IsPositive() || prize.PrizeUSD.IsPositive() {
			winners = append(winners, prize)
		}
		return nil
	})
	return win, winners, err
}

func (e *PayoutEngine) creditPass(ctx context.Context, session *models.Session, decomp *Decomposition) ([]*WagerPrize, error) {
	multipliers, err := e.multipliers()
	if err != nil {
		return nil, err
	}

	var winners []*WagerPrize
	err = e.store.ScanSessionWagers(ctx, session.ID, func(wagerID string) error {
		wager, err := e.store.GetWager(wagerID)
		if err != nil {
			// A deleted (cancelled) wager may linger in the index.
			return nil
		}

		prize := prizeFor(wager, decomp, multipliers)

		// The settled marker is the idempotence guard and is never committed
		// ahead of the money: for winners it lands in the same transaction as
		// the credit, so a crash between the two cannot strand a prize.
		if prize.PrizeCUP.IsPositive() || prize.PrizeUSD.IsPositive() {
			credited, err := e.ledger.CreditPrizeOnce(wager.UserID, session.ID, wager.ID, prize.PrizeCUP, prize.PrizeUSD)
			if err != nil {
				return fmt.Errorf("failed to credit wager %s: %v", wager.ID, err)
			}
			if !credited {
				return nil
			}
			winners = append(winners, prize)
		} else {
			first, err := e.store.MarkWagerSettled(ctx, session.ID, wager.ID)
			if err != nil {
				return err
			}
			if !first {
				return nil
			}
		}

		wager.Settled = true
		wager.PrizeCUP = prize.PrizeCUP
		wager.PrizeUSD = prize.PrizeUSD
		wager.SettledAt = time.Now().Unix()
		if err := e.store.UpdateWager(wager); err != nil {
			return err
		}
		return nil
	})
	return winners, err
}

func prizeFor(wager *models.Wager, decomp *Decomposition, multipliers map[models.BetType]decimal.Decimal) *WagerPrize {
	prize := &WagerPrize{
		Wager:    wager,
		PrizeCUP: decimal.Zero,
		PrizeUSD: decimal.Zero,
	}

	multiplier := multipliers[wager.BetType]
	for _, item := range wager.Items {
		if !decomp.Matches(wager.BetType, item.Code) {
			continue
		}
		payout := item.Amount.Mul(multiplier)
		switch item.Currency {
		case models.CurrencyCUP:
			prize.PrizeCUP = prize.PrizeCUP.Add(payout)
		case models.CurrencyUSD:
			prize.PrizeUSD = prize.PrizeUSD.Add(payout)
		}
	}
	return prize
}

func (e *PayoutEngine) multipliers() (map[models.BetType]decimal.Decimal, error) {
	prices, err := e.store.ListPlayPrices()
	if err != nil {
		return nil, err
	}
	multipliers := make(map[models.BetType]decimal.Decimal, len(prices))
	for _, p := range prices {
		multipliers[p.BetType] = p.PayoutMultiplier
	}
	return multipliers, nil
}

// ========== Winning number storage ==========

// SaveWinningNumberNX publishes the number for its natural key. Returns
// false when a number already exists; the stored record never changes.
func (s *RedisService) SaveWinningNumberNX(win *models.WinningNumber) (bool, error) {
	data, err := json.Marshal(win)
	if err != nil {
		return false, fmt.Errorf("failed to marshal winning number: %v", err)
	}

	key := fmt.Sprintf(KeyWinningNumber, win.NaturalKey())
	set, err := s.client.SetNX(s.ctx, key, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to publish winning number: %v", err)
	}
	if !set {
		return false, nil
	}

	s.client.ZAdd(s.ctx, KeyWinningFeed, redis.Z{
		Score:  float64(win.PublishedAt),
		Member: win.NaturalKey(),
	})
	return true, nil
}

func (s *RedisService) GetWinningNumber(lottery, date, timeSlot string) (*models.WinningNumber, error) {
	key := fmt.Sprintf(KeyWinningNumber, models.SessionNaturalKey(lottery, date, timeSlot))
	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get winning number: %v", err)
	}

	var win models.WinningNumber
	if err := json.Unmarshal([]byte(data), &win); err != nil {
		return nil, fmt.Errorf("failed to unmarshal winning number: %v", err)
	}
	return &win, nil
}

func (s *RedisService) ListRecentWinningNumbers(limit int64) ([]*models.WinningNumber, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	keys, err := s.client.ZRevRange(s.ctx, KeyWinningFeed, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list winning numbers: %v", err)
	}

	var wins []*models.WinningNumber
	for _, naturalKey := range keys {
		data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyWinningNumber, naturalKey)).Result()
		if err != nil {
			continue
		}
		var win models.WinningNumber
		if err := json.Unmarshal([]byte(data), &win); err != nil {
			continue
		}
		wins = append(wins, &win)
	}
	return wins, nil
}

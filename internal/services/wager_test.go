package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/models"
	"bolita-miniapp-backend/internal/services"
)

// openSession creates a session dated tomorrow so its end time is in the
// future regardless of when the test runs.
func openSession(t *testing.T, redisService *services.RedisService, registry *services.SessionRegistry, schedule *services.Schedule) *models.Session {
	t.Helper()

	tomorrow := time.Now().In(schedule.Location()).Add(24 * time.Hour)
	at := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 9, 0, 0, 0, schedule.Location())

	session, err := registry.Create("Florida", "Mañana", at)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	t.Cleanup(func() {
		redisService.FlushKeys(
			"session:"+session.ID,
			"session:key:"+session.NaturalKey(),
			"session:"+session.ID+":wagers",
			"session:"+session.ID+":settled",
		)
	})
	return session
}

func TestPlaceWagerBonusFirst(t *testing.T) {
	redisService, registry, schedule := newTestRegistry(t)
	ledger := services.NewLedger(redisService)
	wagerService := services.NewWagerService(redisService, ledger, registry)

	userID := int64(900300)
	newTestAccount(t, redisService, userID)

	if err := ledger.Credit(userID, models.CurrencyUSD, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("Failed to credit USD: %v", err)
	}

	session := openSession(t, redisService, registry, schedule)

	wager, err := wagerService.PlaceWager(context.Background(), userID, session.ID,
		models.BetTypeFijo, "17 con 2 usd")
	if err != nil {
		t.Fatalf("Failed to place wager: %v", err)
	}
	t.Cleanup(func() { redisService.DeleteWager(wager) })

	if !wager.TotalUSD.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected total 2 USD, got %s", wager.TotalUSD)
	}

	// The welcome bonus (70 CUP at rate 110) is consumed before USD.
	if !wager.DebitedBonusCUP.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Expected 70 bonus CUP debited, got %s", wager.DebitedBonusCUP)
	}

	account, _ := redisService.GetAccount(userID)
	if !account.BonusCUP.IsZero() {
		t.Errorf("Expected bonus exhausted, got %s", account.BonusCUP)
	}
}

func TestPlaceWagerInsufficientFunds(t *testing.T) {
	redisService, registry, schedule := newTestRegistry(t)
	ledger := services.NewLedger(redisService)
	wagerService := services.NewWagerService(redisService, ledger, registry)

	userID := int64(900301)
	newTestAccount(t, redisService, userID)

	session := openSession(t, redisService, registry, schedule)

	// 100 USD against the 70 CUP welcome bonus only.
	_, err := wagerService.PlaceWager(context.Background(), userID, session.ID,
		models.BetTypeFijo, "17 con 100 usd")
	if err != models.ErrInsufficientFunds {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	account, _ := redisService.GetAccount(userID)
	if !account.BonusCUP.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Failed wager touched the bonus: %s", account.BonusCUP)
	}
}

func TestPlaceWagerClosedSession(t *testing.T) {
	redisService, registry, schedule := newTestRegistry(t)
	ledger := services.NewLedger(redisService)
	wagerService := services.NewWagerService(redisService, ledger, registry)

	userID := int64(900302)
	newTestAccount(t, redisService, userID)

	if err := ledger.Credit(userID, models.CurrencyCUP, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("Failed to credit: %v", err)
	}

	session := openSession(t, redisService, registry, schedule)
	if _, err := registry.Close(session.ID); err != nil {
		t.Fatalf("Failed to close session: %v", err)
	}

	_, err := wagerService.PlaceWager(context.Background(), userID, session.ID,
		models.BetTypeFijo, "17 con 20 cup")
	if err != models.ErrSessionNotOpen {
		t.Fatalf("Expected ErrSessionNotOpen, got %v", err)
	}

	account, _ := redisService.GetAccount(userID)
	if !account.CUP.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Rejected wager touched the balance: %s", account.CUP)
	}
}

func TestCancelWagerRestoresSplit(t *testing.T) {
	redisService, registry, schedule := newTestRegistry(t)
	ledger := services.NewLedger(redisService)
	wagerService := services.NewWagerService(redisService, ledger, registry)

	userID := int64(900303)
	newTestAccount(t, redisService, userID)

	if err := ledger.Credit(userID, models.CurrencyUSD, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("Failed to credit USD: %v", err)
	}

	session := openSession(t, redisService, registry, schedule)

	wager, err := wagerService.PlaceWager(context.Background(), userID, session.ID,
		models.BetTypeFijo, "17 con 2 usd")
	if err != nil {
		t.Fatalf("Failed to place wager: %v", err)
	}

	if err := wagerService.CancelWager(context.Background(), userID, wager.ID); err != nil {
		t.Fatalf("Failed to cancel wager: %v", err)
	}

	// Bonus goes back to bonus, spendable back to spendable.
	account, _ := redisService.GetAccount(userID)
	if !account.BonusCUP.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Expected bonus restored to 70, got %s", account.BonusCUP)
	}
	if !account.USD.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected USD restored to 10, got %s", account.USD)
	}

	if _, err := redisService.GetWager(wager.ID); err != models.ErrWagerNotFound {
		t.Errorf("Expected wager deleted, got %v", err)
	}
}

func TestCancelWagerLosesToSettlement(t *testing.T) {
	redisService, registry, schedule := newTestRegistry(t)
	ledger := services.NewLedger(redisService)
	wagerService := services.NewWagerService(redisService, ledger, registry)

	userID := int64(900306)
	newTestAccount(t, redisService, userID)

	if err := ledger.Credit(userID, models.CurrencyCUP, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("Failed to credit: %v", err)
	}

	session := openSession(t, redisService, registry, schedule)

	wager, err := wagerService.PlaceWager(context.Background(), userID, session.ID,
		models.BetTypeFijo, "17 con 20 cup")
	if err != nil {
		t.Fatalf("Failed to place wager: %v", err)
	}
	t.Cleanup(func() { redisService.DeleteWager(wager) })

	before, _ := redisService.GetAccount(userID)

	// A settlement run already claimed the marker for this wager. The
	// cancel must lose the race and leave the balance alone.
	if _, err := redisService.MarkWagerSettled(context.Background(), session.ID, wager.ID); err != nil {
		t.Fatalf("Failed to mark wager settled: %v", err)
	}

	if err := wagerService.CancelWager(context.Background(), userID, wager.ID); err != models.ErrAlreadySettled {
		t.Fatalf("Expected ErrAlreadySettled, got %v", err)
	}

	account, _ := redisService.GetAccount(userID)
	if !account.CUP.Equal(before.CUP) {
		t.Errorf("Balance changed by a losing cancel: %s, was %s", account.CUP, before.CUP)
	}
	if _, err := redisService.GetWager(wager.ID); err != nil {
		t.Errorf("Expected wager to survive a losing cancel, got %v", err)
	}
}

func TestCancelWagerWrongOwner(t *testing.T) {
	redisService, registry, schedule := newTestRegistry(t)
	ledger := services.NewLedger(redisService)
	wagerService := services.NewWagerService(redisService, ledger, registry)

	ownerID := int64(900304)
	otherID := int64(900305)
	newTestAccount(t, redisService, ownerID)
	newTestAccount(t, redisService, otherID)

	if err := ledger.Credit(ownerID, models.CurrencyCUP, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("Failed to credit: %v", err)
	}

	session := openSession(t, redisService, registry, schedule)

	wager, err := wagerService.PlaceWager(context.Background(), ownerID, session.ID,
		models.BetTypeFijo, "17 con 20 cup")
	if err != nil {
		t.Fatalf("Failed to place wager: %v", err)
	}
	t.Cleanup(func() { redisService.DeleteWager(wager) })

	if err := wagerService.CancelWager(context.Background(), otherID, wager.ID); err != models.ErrWagerNotFound {
		t.Errorf("Expected ErrWagerNotFound for foreign wager, got %v", err)
	}
}

package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/models"
	"bolita-miniapp-backend/internal/services"
)

func TestDecompose(t *testing.T) {
	decomp, err := services.Decompose("5173262")
	if err != nil {
		t.Fatalf("Failed to decompose: %v", err)
	}

	if decomp.Centena != "517" {
		t.Errorf("Expected centena 517, got %s", decomp.Centena)
	}
	if decomp.Fijo != "17" {
		t.Errorf("Expected fijo 17, got %s", decomp.Fijo)
	}

	expectedCorridos := [3]string{"17", "32", "62"}
	if decomp.Corridos != expectedCorridos {
		t.Errorf("Expected corridos %v, got %v", expectedCorridos, decomp.Corridos)
	}

	expectedParles := [3]string{"17x32", "17x62", "32x62"}
	if decomp.Parles != expectedParles {
		t.Errorf("Expected parles %v, got %v", expectedParles, decomp.Parles)
	}
}

func TestDecomposeWithSpaces(t *testing.T) {
	decomp, err := services.Decompose("517 3262")
	if err != nil {
		t.Fatalf("Failed to decompose spaced number: %v", err)
	}
	if decomp.Number != "5173262" {
		t.Errorf("Expected cleaned number 5173262, got %s", decomp.Number)
	}
}

func TestDecomposeRejectsBadInput(t *testing.T) {
	for _, input := range []string{"", "123456", "12345678", "51a3262"} {
		if _, err := services.Decompose(input); err != models.ErrInvalidWinningNumber {
			t.Errorf("Input %q: expected ErrInvalidWinningNumber, got %v", input, err)
		}
	}
}

func TestDecompositionMatches(t *testing.T) {
	decomp, err := services.Decompose("5173262")
	if err != nil {
		t.Fatalf("Failed to decompose: %v", err)
	}

	tests := []struct {
		betType models.BetType
		code    string
		want    bool
	}{
		{models.BetTypeFijo, "17", true},
		{models.BetTypeFijo, "18", false},
		{models.BetTypeFijo, "D1", true},  // leading digit of fijo
		{models.BetTypeFijo, "D7", false},
		{models.BetTypeFijo, "T7", true},  // trailing digit of fijo
		{models.BetTypeFijo, "T1", false},
		{models.BetTypeCorridos, "32", true},
		{models.BetTypeCorridos, "62", true},
		{models.BetTypeCorridos, "71", false},
		{models.BetTypeCentena, "517", true},
		{models.BetTypeCentena, "173", false},
		{models.BetTypeParle, "17x32", true},
		{models.BetTypeParle, "32x17", true}, // order does not matter
		{models.BetTypeParle, "62x17", true},
		{models.BetTypeParle, "17x71", false},
	}

	for _, tt := range tests {
		if got := decomp.Matches(tt.betType, tt.code); got != tt.want {
			t.Errorf("Matches(%s, %s) = %v, want %v", tt.betType, tt.code, got, tt.want)
		}
	}
}

func TestSettleIdempotent(t *testing.T) {
	redisService := newTestRedis(t)
	ledger := services.NewLedger(redisService)

	schedule, err := services.NewSchedule("America/Havana")
	if err != nil {
		t.Fatalf("Failed to load schedule: %v", err)
	}
	registry := services.NewSessionRegistry(redisService, schedule)
	engine := services.NewPayoutEngine(redisService, ledger, registry)

	userID := int64(900100)
	newTestAccount(t, redisService, userID)

	// Morning slot opens at 8 and closes at 13 local time.
	loc := schedule.Location()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, loc)

	session, err := registry.Create("Florida", "Mañana", now)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	t.Cleanup(func() {
		redisService.FlushKeys(
			"session:"+session.ID,
			"session:key:"+session.NaturalKey(),
			"session:"+session.ID+":wagers",
			"session:"+session.ID+":settled",
			"winning:"+session.NaturalKey(),
		)
	})

	wager := &models.Wager{
		ID:        models.GenerateWagerID(),
		UserID:    userID,
		SessionID: session.ID,
		Lottery:   session.Lottery,
		BetType:   models.BetTypeFijo,
		Items: []models.WagerItem{
			{Code: "17", Currency: models.CurrencyCUP, Amount: decimal.NewFromInt(10)},
		},
		TotalCUP: decimal.NewFromInt(10),
		TotalUSD: decimal.Zero,
		PlacedAt: now.Unix(),
	}
	if err := redisService.SaveWager(wager); err != nil {
		t.Fatalf("Failed to save wager: %v", err)
	}
	t.Cleanup(func() { redisService.DeleteWager(wager) })

	if _, err := registry.Close(session.ID); err != nil {
		t.Fatalf("Failed to close session: %v", err)
	}

	ctx := context.Background()
	_, winners, err := engine.Settle(ctx, session.ID, "5173262")
	if err != nil {
		t.Fatalf("Failed to settle: %v", err)
	}
	if len(winners) != 1 {
		t.Fatalf("Expected 1 winner, got %d", len(winners))
	}

	// Fijo multiplier 75 on a 10 CUP stake.
	if !winners[0].PrizeCUP.Equal(decimal.NewFromInt(750)) {
		t.Errorf("Expected prize 750 CUP, got %s", winners[0].PrizeCUP)
	}

	account, _ := redisService.GetAccount(userID)
	balanceAfterFirst := account.CUP

	// Second publish must refuse.
	_, _, err = engine.Settle(ctx, session.ID, "5173262")
	if err != models.ErrAlreadySettled {
		t.Errorf("Expected ErrAlreadySettled, got %v", err)
	}

	// Resume must skip the already-credited wager.
	winners, err = engine.Resume(ctx, session.ID)
	if err != nil {
		t.Fatalf("Failed to resume: %v", err)
	}
	if len(winners) != 0 {
		t.Errorf("Resume re-credited %d wagers", len(winners))
	}

	account, _ = redisService.GetAccount(userID)
	if !account.CUP.Equal(balanceAfterFirst) {
		t.Errorf("Balance changed on resume: %s -> %s", balanceAfterFirst, account.CUP)
	}
}

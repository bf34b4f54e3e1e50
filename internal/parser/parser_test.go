package parser_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/models"
	"bolita-miniapp-backend/internal/parser"
)

func TestParseSimpleFijo(t *testing.T) {
	result, err := parser.ParseMessage("12 con 5 cup", models.BetTypeFijo)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}

	item := result.Items[0]
	if item.Code != "12" {
		t.Errorf("expected code 12, got %s", item.Code)
	}
	if item.Currency != models.CurrencyCUP {
		t.Errorf("expected CUP, got %s", item.Currency)
	}
	if !item.Amount.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected amount 5, got %s", item.Amount)
	}
	if !result.TotalCUP.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected total CUP 5, got %s", result.TotalCUP)
	}
}

func TestParseWildcardExpansion(t *testing.T) {
	result, err := parser.ParseMessage("D2 con 5 cup", models.BetTypeFijo)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}

	item := result.Items[0]
	if item.Code != "D2" {
		t.Errorf("wildcard code should stay uppercase with letter, got %s", item.Code)
	}
	if !item.Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("wildcard stake should be x10, got %s", item.Amount)
	}
}

func TestParseTerminalWildcard(t *testing.T) {
	result, err := parser.ParseMessage("t7 con 2", models.BetTypeFijo)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if result.Items[0].Code != "T7" {
		t.Errorf("expected T7, got %s", result.Items[0].Code)
	}
	if result.Items[0].Currency != models.CurrencyUSD {
		t.Errorf("omitted currency should default to USD, got %s", result.Items[0].Currency)
	}
	if !result.TotalUSD.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected total USD 20, got %s", result.TotalUSD)
	}
}

func TestParseInvalidTokenDropped(t *testing.T) {
	result, err := parser.ParseMessage("7 12 con 1 usd", models.BetTypeCorridos)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(result.Items) != 1 {
		t.Fatalf("single-digit token should be dropped, got %d items", len(result.Items))
	}
	if result.Items[0].Code != "12" {
		t.Errorf("expected surviving code 12, got %s", result.Items[0].Code)
	}
	if !result.Items[0].Amount.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected amount 1, got %s", result.Items[0].Amount)
	}
}

func TestParseMultiLineMixedCurrencies(t *testing.T) {
	text := "12 34 con 5 cup\ngarbage line\n56 * 2 usd"
	result, err := parser.ParseMessage(text, models.BetTypeFijo)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(result.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result.Items))
	}
	if !result.TotalCUP.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected total CUP 10, got %s", result.TotalCUP)
	}
	if !result.TotalUSD.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected total USD 2, got %s", result.TotalUSD)
	}
}

func TestParseCommaDecimalSeparator(t *testing.T) {
	result, err := parser.ParseMessage("12 con 2,5 cup", models.BetTypeFijo)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want, _ := decimal.NewFromString("2.5")
	if !result.Items[0].Amount.Equal(want) {
		t.Errorf("expected 2.5, got %s", result.Items[0].Amount)
	}
}

func TestParseCentenaAndParle(t *testing.T) {
	result, err := parser.ParseMessage("517 con 3 cup", models.BetTypeCentena)
	if err != nil {
		t.Fatalf("centena parse failed: %v", err)
	}
	if result.Items[0].Code != "517" {
		t.Errorf("expected 517, got %s", result.Items[0].Code)
	}

	result, err = parser.ParseMessage("17x32 con 1 usd", models.BetTypeParle)
	if err != nil {
		t.Fatalf("parle parse failed: %v", err)
	}
	if result.Items[0].Code != "17x32" {
		t.Errorf("expected 17x32, got %s", result.Items[0].Code)
	}
}

func TestParseWholeMessageRejected(t *testing.T) {
	_, err := parser.ParseMessage("nothing valid here\n9 con 1", models.BetTypeCentena)
	if !errors.Is(err, models.ErrParseRejected) {
		t.Errorf("expected ErrParseRejected, got %v", err)
	}
}

func TestParseWildcardOnlyForFijo(t *testing.T) {
	_, err := parser.ParseMessage("D2 con 5", models.BetTypeCorridos)
	if !errors.Is(err, models.ErrParseRejected) {
		t.Errorf("wildcards outside fijo should leave no items, got %v", err)
	}
}

package services_test

import (
	"testing"
	"time"

	"bolita-miniapp-backend/internal/models"
	"bolita-miniapp-backend/internal/services"
)

func newTestRegistry(t *testing.T) (*services.RedisService, *services.SessionRegistry, *services.Schedule) {
	t.Helper()

	redisService := newTestRedis(t)
	schedule, err := services.NewSchedule("America/Havana")
	if err != nil {
		t.Fatalf("Failed to load schedule: %v", err)
	}
	return redisService, services.NewSessionRegistry(redisService, schedule), schedule
}

func cleanupSession(t *testing.T, redisService *services.RedisService, session *models.Session) {
	t.Helper()
	t.Cleanup(func() {
		redisService.FlushKeys(
			"session:"+session.ID,
			"session:key:"+session.NaturalKey(),
		)
	})
}

func TestSessionDuplicateRejected(t *testing.T) {
	redisService, registry, schedule := newTestRegistry(t)

	now := time.Date(2026, 4, 1, 9, 0, 0, 0, schedule.Location())

	session, err := registry.Create("Georgia", "Mañana", now)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	cleanupSession(t, redisService, session)

	if _, err := registry.Create("Georgia", "Mañana", now); err != models.ErrDuplicateSession {
		t.Errorf("Expected ErrDuplicateSession, got %v", err)
	}

	// A different slot of the same lottery is a different natural key.
	other, err := registry.Create("Georgia", "Tarde", now)
	if err != nil {
		t.Fatalf("Failed to create second slot: %v", err)
	}
	cleanupSession(t, redisService, other)
}

func TestSessionCreateExpiredSlot(t *testing.T) {
	_, registry, schedule := newTestRegistry(t)

	// Florida morning closes at 13; creating at 14 must refuse.
	late := time.Date(2026, 4, 1, 14, 0, 0, 0, schedule.Location())
	if _, err := registry.Create("Florida", "Mañana", late); err != models.ErrSlotExpired {
		t.Errorf("Expected ErrSlotExpired, got %v", err)
	}
}

func TestSessionCloseIsTerminal(t *testing.T) {
	redisService, registry, schedule := newTestRegistry(t)

	now := time.Date(2026, 4, 2, 9, 0, 0, 0, schedule.Location())
	session, err := registry.Create("Florida", "Mañana", now)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	cleanupSession(t, redisService, session)

	if _, err := registry.RequireOpen(session.ID, now); err != nil {
		t.Fatalf("Session should be open: %v", err)
	}

	closed, err := registry.Close(session.ID)
	if err != nil {
		t.Fatalf("Failed to close session: %v", err)
	}
	if closed.Status != models.SessionClosed {
		t.Errorf("Expected closed status, got %s", closed.Status)
	}

	// Closing again is a no-op.
	if _, err := registry.Close(session.ID); err != nil {
		t.Errorf("Second close should be a no-op: %v", err)
	}

	if _, err := registry.RequireOpen(session.ID, now); err != models.ErrSessionNotOpen {
		t.Errorf("Expected ErrSessionNotOpen, got %v", err)
	}
}

func TestSessionRequireOpenAfterEndTime(t *testing.T) {
	redisService, registry, schedule := newTestRegistry(t)

	now := time.Date(2026, 4, 3, 9, 0, 0, 0, schedule.Location())
	session, err := registry.Create("Florida", "Mañana", now)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	cleanupSession(t, redisService, session)

	// The stored status is still open, but the closing hour passed.
	afterEnd := time.Date(2026, 4, 3, 13, 0, 1, 0, schedule.Location())
	if _, err := registry.RequireOpen(session.ID, afterEnd); err != models.ErrSessionNotOpen {
		t.Errorf("Expected ErrSessionNotOpen past end time, got %v", err)
	}

	// The expiry tick then moves it to closed.
	closed, err := registry.CloseExpired(afterEnd)
	if err != nil {
		t.Fatalf("Failed to close expired: %v", err)
	}
	found := false
	for _, s := range closed {
		if s.ID == session.ID {
			found = true
		}
	}
	if !found {
		t.Error("Expired session was not closed by the tick")
	}
}

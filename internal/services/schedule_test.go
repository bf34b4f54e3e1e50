package services_test

import (
	"testing"
	"time"

	"bolita-miniapp-backend/internal/models"
	"bolita-miniapp-backend/internal/services"
)

func TestScheduleEndTime(t *testing.T) {
	schedule, err := services.NewSchedule("America/Havana")
	if err != nil {
		t.Fatalf("Failed to load schedule: %v", err)
	}
	loc := schedule.Location()

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, loc)
	end, err := schedule.EndTime("Florida", "Mañana", now)
	if err != nil {
		t.Fatalf("Failed to get end time: %v", err)
	}
	if end.Hour() != 13 {
		t.Errorf("Expected Florida morning close at 13, got %d", end.Hour())
	}

	// Same slot after closing hour.
	late := time.Date(2026, 3, 10, 13, 30, 0, 0, loc)
	if _, err := schedule.EndTime("Florida", "Mañana", late); err != models.ErrSlotExpired {
		t.Errorf("Expected ErrSlotExpired, got %v", err)
	}

	if _, err := schedule.EndTime("Florida", "Madrugada", now); err == nil {
		t.Error("Unknown slot should fail")
	}
	if _, err := schedule.EndTime("Texas", "Mañana", now); err == nil {
		t.Error("Unknown lottery should fail")
	}
}

func TestScheduleHalfHourClose(t *testing.T) {
	schedule, err := services.NewSchedule("America/Havana")
	if err != nil {
		t.Fatalf("Failed to load schedule: %v", err)
	}
	loc := schedule.Location()

	// Georgia afternoon closes at 18:30.
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, loc)
	end, err := schedule.EndTime("Georgia", "Tarde", now)
	if err != nil {
		t.Fatalf("Failed to get end time: %v", err)
	}
	if end.Hour() != 18 || end.Minute() != 30 {
		t.Errorf("Expected close 18:30, got %02d:%02d", end.Hour(), end.Minute())
	}
}

func TestScheduleWithinWindow(t *testing.T) {
	schedule, err := services.NewSchedule("America/Havana")
	if err != nil {
		t.Fatalf("Failed to load schedule: %v", err)
	}
	loc := schedule.Location()

	inside := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)
	if !schedule.WithinWindow("Nueva York", "Mañana", inside) {
		t.Error("10:00 should be inside the Nueva York morning window")
	}

	before := time.Date(2026, 3, 10, 8, 0, 0, 0, loc)
	if schedule.WithinWindow("Nueva York", "Mañana", before) {
		t.Error("8:00 should be before the Nueva York morning window")
	}
}

package services

import (
	"fmt"
	"time"

	"bolita-miniapp-backend/internal/models"
)

// Slot is one betting window of a lottery's fixed daily schedule. Hours are
// fractional local hours in the service timezone (18.5 = 18:30).
type Slot struct {
	Name  string
	Open  float64
	Close float64
}

// Schedule resolves lottery slots and their closing instants in the service
// timezone. The slot tables are fixed; only their values are consumed here.
type Schedule struct {
	location  *time.Location
	lotteries map[string][]Slot
}

func NewSchedule(timezone string) (*Schedule, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %v", timezone, err)
	}

	return &Schedule{
		location: loc,
		lotteries: map[string][]Slot{
			"Florida": {
				{Name: "Mañana", Open: 8, Close: 13},
				{Name: "Noche", Open: 14, Close: 21},
			},
			"Georgia": {
				{Name: "Mañana", Open: 8, Close: 12},
				{Name: "Tarde", Open: 13, Close: 18.5},
				{Name: "Noche", Open: 19, Close: 23},
			},
			"Nueva York": {
				{Name: "Mañana", Open: 9, Close: 14},
				{Name: "Noche", Open: 15, Close: 22},
			},
		},
	}, nil
}

func (s *Schedule) Location() *time.Location {
	return s.location
}

// Today returns the current date in the service timezone as YYYY-MM-DD.
func (s *Schedule) Today(now time.Time) string {
	return now.In(s.location).Format("2006-01-02")
}

func (s *Schedule) Lotteries() []string {
	names := make([]string, 0, len(s.lotteries))
	for name := range s.lotteries {
		names = append(names, name)
	}
	return names
}

func (s *Schedule) Slots(lottery string) ([]Slot, bool) {
	slots, ok := s.lotteries[lottery]
	return slots, ok
}

// EndTime computes the slot's closing instant today. Returns ErrSlotExpired
// when that instant has already passed.
func (s *Schedule) EndTime(lottery, slotName string, now time.Time) (time.Time, error) {
	slots, ok := s.lotteries[lottery]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown lottery: %s", lottery)
	}

	for _, slot := range slots {
		if slot.Name != slotName {
			continue
		}
		end := s.atHour(now, slot.Close)
		if !now.Before(end) {
			return time.Time{}, models.ErrSlotExpired
		}
		return end, nil
	}

	return time.Time{}, fmt.Errorf("unknown slot %s for lottery %s", slotName, lottery)
}

// WithinWindow reports whether now falls inside the slot's open window.
func (s *Schedule) WithinWindow(lottery, slotName string, now time.Time) bool {
	slots, ok := s.lotteries[lottery]
	if !ok {
		return false
	}
	for _, slot := range slots {
		if slot.Name != slotName {
			continue
		}
		open := s.atHour(now, slot.Open)
		close := s.atHour(now, slot.Close)
		return !now.Before(open) && now.Before(close)
	}
	return false
}

func (s *Schedule) atHour(now time.Time, hour float64) time.Time {
	local := now.In(s.location)
	h := int(hour)
	m := int((hour - float64(h)) * 60)
	return time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, s.location)
}

package models

import "fmt"

type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

// Session is a betting window for one lottery slot on one date. Closed is
// terminal; the same slot on a later date is a distinct session.
type Session struct {
	ID       string        `json:"id" redis:"id"`
	Lottery  string        `json:"lottery" redis:"lottery"`
	Date     string        `json:"date" redis:"date"` // YYYY-MM-DD in service TZ
	TimeSlot string        `json:"time_slot" redis:"time_slot"`
	Status   SessionStatus `json:"status" redis:"status"`

	// No new wagers after this instant, even if status is still open.
	EndTime int64 `json:"end_time" redis:"end_time"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
}

// NaturalKey identifies the session's slot independent of its ID.
func (s *Session) NaturalKey() string {
	return SessionNaturalKey(s.Lottery, s.Date, s.TimeSlot)
}

func SessionNaturalKey(lottery, date, timeSlot string) string {
	return fmt.Sprintf("%s|%s|%s", lottery, date, timeSlot)
}

// WinningNumber is immutable once published; at most one per natural key.
type WinningNumber struct {
	Lottery     string `json:"lottery" redis:"lottery"`
	Date        string `json:"date" redis:"date"`
	TimeSlot    string `json:"time_slot" redis:"time_slot"`
	Number      string `json:"number" redis:"number"` // 7 ASCII digits
	PublishedAt int64  `json:"published_at" redis:"published_at"`
}

// Formatted renders the number the way it is announced: "ddd dddd".
func (w *WinningNumber) Formatted() string {
	if len(w.Number) != 7 {
		return w.Number
	}
	return w.Number[:3] + " " + w.Number[3:]
}

func (w *WinningNumber) NaturalKey() string {
	return SessionNaturalKey(w.Lottery, w.Date, w.TimeSlot)
}

package models

import "errors"

// Core failure taxonomy. Callers branch on these with errors.Is; anything
// else is an infrastructure failure.
var (
	// ErrParseRejected means a wager message produced no items at all.
	ErrParseRejected = errors.New("wager text produced no valid items")

	// ErrSlotExpired means the slot's closing hour already passed today.
	ErrSlotExpired = errors.New("slot closing time already passed")

	// ErrDuplicateSession means a session already exists for the
	// (lottery, date, time_slot) natural key.
	ErrDuplicateSession = errors.New("session already exists for this slot")

	// ErrSessionNotOpen means the session is closed or absent.
	ErrSessionNotOpen = errors.New("session is not open")

	// ErrInsufficientFunds is returned before any balance is touched.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadySettled means a winning number was already published for
	// the session's natural key.
	ErrAlreadySettled = errors.New("session already settled")

	// ErrInvalidWinningNumber means the number is not exactly 7 digits.
	ErrInvalidWinningNumber = errors.New("winning number must be exactly 7 digits")

	// ErrRequestAlreadyProcessed means the fund request left pending already.
	ErrRequestAlreadyProcessed = errors.New("request already processed")

	// ErrMustReject tells the operator a withdraw can no longer be honored.
	ErrMustReject = errors.New("insufficient funds at approval time, reject the request")

	ErrSessionNotFound = errors.New("session not found")
	ErrWagerNotFound   = errors.New("wager not found")
	ErrRequestNotFound = errors.New("request not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrMethodNotFound  = errors.New("payment method not found")
)

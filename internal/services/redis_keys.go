package services

import "time"

const (
	KeyAccount          = "account:%d"
	KeyReferrals        = "referrals:%d"
	KeySession          = "session:%s"
	KeySessionByKey     = "session:key:%s" // natural key -> session ID
	KeySessionsOpen     = "sessions:open"
	KeySessionsByDate   = "sessions:date:%s"
	KeyWager            = "wager:%s"
	KeySessionWagers    = "session:%s:wagers"
	KeySessionSettled   = "session:%s:settled"
	KeyUserWagers       = "user:%d:wagers"
	KeyWinningNumber    = "winning:%s" // natural key
	KeyWinningFeed      = "winning:feed"
	KeyFundRequest      = "fundreq:%s"
	KeyPendingRequests  = "fundreqs:pending:%s" // by direction
	KeyPaymentMethod    = "method:%s"
	KeyPaymentMethods   = "methods:%s" // by direction
	KeyExchangeRates    = "exchange_rates"
	KeyPlayPrice        = "play_price:%s"
	KeyTransaction      = "transaction:%s"
	KeyUserTransactions = "user:%d:transactions"
	KeyRateLimit        = "ratelimit:%d:%s"

	TTLTransaction = 30 * 24 * time.Hour

	// Bounded optimistic retries for per-account read-modify-write.
	MaxTxRetries = 10

	// Page size for the settlement scan over a session's wagers.
	SettleScanCount = 100
)

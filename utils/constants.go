package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Currency codes
const (
	CurrencyNGN = "NGN"
	CurrencyUSD = "USD"
)

// Reference prefixes
const (
	DepositReferencePrefix    = "#DEP"
	WithdrawalReferencePrefix = "#WDR"
	CryptoReferencePrefix     = "CRY"
	RefundReferencePrefix     = "#RFD"
	TransferReferencePrefix   = "#TRF"
)

// MaxProofImageSize bounds uploaded deposit proof images (5MB)
const MaxProofImageSize = 5 * 1024 * 1024

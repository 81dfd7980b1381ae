package config

import (
	"os"
	"strings"
	"time"
)

const (
	DefaultRecentSalesLimit = 50
	MaxRecentSalesLimit     = 200
)

// SaleTransactionMaxAttempts bounds how often a sale is re-run after a deadlock or lock wait timeout.
//
// Set via env:
// - SALE_TX_MAX_ATTEMPTS=3
func SaleTransactionMaxAttempts() int {
	n := intFromEnv("SALE_TX_MAX_ATTEMPTS", 3)
	if n < 1 {
		return 1
	}
	return n
}

// RecentSalesCacheTTL is the lifetime of cached recent-sales pages. Zero disables the cache.
//
// Set via env:
// - RECENT_SALES_CACHE_SECONDS=60
func RecentSalesCacheTTL() time.Duration {
	n := intFromEnv("RECENT_SALES_CACHE_SECONDS", 60)
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

// IdempotencyLockTTL caps how long a resubmitted sale waits on the one already in flight.
//
// Set via env:
// - IDEMPOTENCY_LOCK_SECONDS=30
func IdempotencyLockTTL() time.Duration {
	n := intFromEnv("IDEMPOTENCY_LOCK_SECONDS", 30)
	if n < 1 {
		n = 1
	}
	return time.Duration(n) * time.Second
}

// DefaultPhoneRegion is the region used to parse customer phone numbers written without a country code.
//
// Set via env:
// - DEFAULT_PHONE_REGION=US
func DefaultPhoneRegion() string {
	v := strings.ToUpper(strings.TrimSpace(os.Getenv("DEFAULT_PHONE_REGION")))
	if v == "" {
		return "US"
	}
	return v
}

func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

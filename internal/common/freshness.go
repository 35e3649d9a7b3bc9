package common

import "time"

// Freshness TTLs for synced source data.
const (
	FreshnessFresh  = 24 * time.Hour     // synced within the last day
	FreshnessRecent = 7 * 24 * time.Hour // synced within the last week
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}

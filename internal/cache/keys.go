package cache

import "time"

// KeyInventoryList is the cache key for the active catalog listing.
const KeyInventoryList = "pos:inventory:list"

// KeyDailySummary returns the cache key for a day's ledger summary.
// The day is rendered in the stall's local calendar so a summary cached
// before midnight never bleeds into the next trading day.
func KeyDailySummary(day time.Time) string {
	return KeySummaryDay(day.Format("2006-01-02"))
}

// KeySummaryDay is the string-keyed variant used by queue payloads that
// already carry the day as text.
func KeySummaryDay(day string) string {
	return "pos:summary:" + day
}

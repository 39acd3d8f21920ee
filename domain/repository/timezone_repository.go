package repository

import (
	"time"
)

// TimezoneService defines the interface for timezone-related operations
type TimezoneService interface {
	// GetUserTimezone returns the user's local timezone
	GetUserTimezone() (*time.Location, error)

	// GetConfiguredTimezone returns the configured restart window timezone or the user's local timezone
	GetConfiguredTimezone() (*time.Location, error)

	// ConvertToUserTime converts a time to the configured timezone
	ConvertToUserTime(t time.Time) time.Time

	// FormatTimeForUser formats time according to the configured timezone
	FormatTimeForUser(t time.Time, layout string) string

	// GetTimezoneInfo returns timezone information for logging/metrics
	GetTimezoneInfo() TimezoneInfo
}

// TimezoneInfo contains timezone information for logging and metrics
type TimezoneInfo struct {
	// Name is the timezone name (e.g., "America/New_York", "Asia/Tokyo")
	Name string

	// Offset is the UTC offset in the format "+09:00" or "-05:00"
	Offset string

	// OffsetSeconds is the offset from UTC in seconds
	OffsetSeconds int

	// IsDST indicates whether daylight saving time is currently active
	IsDST bool

	// DetectionMethod indicates how the timezone was determined
	// Values: "system", "config", "fallback"
	DetectionMethod string
}

package delta

import (
	"strconv"
	"strings"
	"time"
)

// Type classifies a sync response.
type Type string

const (
	TypeFull    Type = "full"
	TypePartial Type = "partial"
	TypeDelta   Type = "delta"
	TypeNone    Type = "none"
)

// ParseLastSync accepts RFC3339 timestamps, calendar dates, and unix milliseconds.
func ParseLastSync(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed, true
	}
	if parsed, err := time.Parse(time.DateOnly, value); err == nil {
		return parsed, true
	}
	if millis, err := strconv.ParseInt(value, 10, 64); err == nil && millis > 0 {
		return time.UnixMilli(millis).UTC(), true
	}
	return time.Time{}, false
}

// FormatTimestamp renders t the way clients echo it back as lastSync.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

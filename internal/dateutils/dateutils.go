// Package dateutils holds the fixed timestamp layout shared by the transfer
// stages, the watermark resolver and the configuration.
package dateutils

import (
	"fmt"
	"strings"
	"time"
)

// Date layouts used across the transfer.
const (
	// DateLayoutFull is the "yyyy-MM-dd HH:mm:ss" layout written into the
	// watermark custom field and accepted for the lookback date.
	DateLayoutFull = "2006-01-02 15:04:05"
	// DateLayoutISO is the calendar date sent as the ledger transaction date.
	DateLayoutISO = "2006-01-02"
)

// ParseFull parses s with DateLayoutFull in UTC.
func ParseFull(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayoutFull, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date %q with layout %q: %w", s, DateLayoutFull, err)
	}
	return t, nil
}

// FormatFull formats t with DateLayoutFull.
func FormatFull(t time.Time) string {
	return t.Format(DateLayoutFull)
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// ShiftHours moves t by a signed number of hours.
func ShiftHours(t time.Time, hours int) time.Time {
	if hours == 0 {
		return t
	}
	return t.Add(time.Duration(hours) * time.Hour)
}

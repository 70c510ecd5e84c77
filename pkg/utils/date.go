package utils

import (
	"time"
)

// TimeNowUTC returns the current time in UTC.
func TimeNowUTC() time.Time {
	return time.Now().UTC()
}

// FromUnixMilli converts an exchange millisecond timestamp to UTC time.
func FromUnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

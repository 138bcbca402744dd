package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidExpiry is returned for strings outside the <digits><s|m|h|d> grammar.
var ErrInvalidExpiry = errors.New("invalid expiry format")

var expiryPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

var expiryUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseExpiry parses compact durations such as "30s", "15m", "12h" or "7d".
func ParseExpiry(s string) (time.Duration, error) {
	m := expiryPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpiry, s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpiry, s)
	}
	unit := expiryUnits[m[2]]
	if n > int64((1<<63-1)/unit) {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidExpiry, s)
	}
	return time.Duration(n) * unit, nil
}

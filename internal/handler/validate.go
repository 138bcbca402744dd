package handler

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/nexura/internal/apperr"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	clockRe = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
	colorRe = regexp.MustCompile(`(?i)^#[0-9a-f]{6}$`)
)

// length records a problem when s, trimmed, is outside [min, max] runes.
func length(fe apperr.FieldErrors, field, s string, min, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	switch {
	case n < min && min == 1:
		fe.Add(field, "is required")
	case n < min:
		fe.Add(field, "must be at least "+strconv.Itoa(min)+" characters")
	case max > 0 && n > max:
		fe.Add(field, "must be at most "+strconv.Itoa(max)+" characters")
	}
}

// optLength is length for optional fields.
func optLength(fe apperr.FieldErrors, field string, s *string, min, max int) {
	if s != nil {
		length(fe, field, *s, min, max)
	}
}

func oneOf(fe apperr.FieldErrors, field, v string, allowed []string) {
	if !slices.Contains(allowed, v) {
		fe.Add(field, "must be one of "+strings.Join(allowed, ", "))
	}
}

func optColor(fe apperr.FieldErrors, field string, v *string) {
	if v != nil && !colorRe.MatchString(*v) {
		fe.Add(field, "must be a hex color like #10B981")
	}
}

func optClock(fe apperr.FieldErrors, field string, v *string) {
	if v != nil && !clockRe.MatchString(*v) {
		fe.Add(field, "must be a time of day (HH:MM)")
	}
}

// timestamp parses an optional RFC 3339 timestamp, recording a problem
// when it is malformed.
func timestamp(fe apperr.FieldErrors, field string, v *string) *time.Time {
	if v == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *v)
	if err != nil {
		fe.Add(field, "must be an ISO 8601 date-time")
		return nil
	}
	t = t.UTC()
	return &t
}

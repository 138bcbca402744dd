package service

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	fallbackHandlePrefix = "USER"
	maxHandlePrefix      = 32
)

// handlePrefix takes the first word of name, upper-cases it and keeps the
// ASCII letters only.
func handlePrefix(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return fallbackHandlePrefix
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(fields[0]) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	p := b.String()
	if p == "" {
		return fallbackHandlePrefix
	}
	if utf8.RuneCountInString(p) > maxHandlePrefix {
		p = p[:maxHandlePrefix]
	}
	return p
}

// nextHandle returns the handle following latest, the current holder of
// the largest suffix for prefix ("" when there is none). Suffixes are
// zero-padded to two digits and grow past 99.
func nextHandle(prefix, latest string) string {
	n := 1
	if latest != "" {
		if v, err := strconv.Atoi(strings.TrimPrefix(latest, prefix+"-")); err == nil && v >= 0 {
			n = v + 1
		}
	}
	return fmt.Sprintf("%s-%02d", prefix, n)
}

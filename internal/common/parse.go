// Package common provides shared utilities for Stakd
package common

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseFloatDefault parses a settings value, returning def for blank or
// malformed input. NaN and infinities also fall back to def.
func ParseFloatDefault(raw string, def float64) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	if v != v || v > 1e300 || v < -1e300 {
		return def
	}
	return v
}

// ParseIntDefault parses a settings value as an integer, accepting float
// notation (rounded), returning def for blank or malformed input.
func ParseIntDefault(raw string, def int) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(math.Round(f))
	}
	return def
}

// ParseBoolFlag interprets a settings toggle. "1", "true", "yes" and "on"
// (any case) are true; everything else, including blank, is false.
func ParseBoolFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// ParseDateFlexible parses RFC 3339 or YYYY-MM-DD, returning the zero time
// when the value does not parse.
func ParseDateFlexible(raw string) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}

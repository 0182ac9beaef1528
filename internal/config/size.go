package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteSize is a byte count parsed from PHP-style shorthand ("64M", "512K").
type ByteSize int64

// ParseByteSize parses a PHP ini size value. A bare number is bytes.
func ParseByteSize(value string) (ByteSize, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("empty size value")
	}
	multiplier := int64(1)
	switch trimmed[len(trimmed)-1] {
	case 'k', 'K':
		multiplier = 1 << 10
		trimmed = trimmed[:len(trimmed)-1]
	case 'm', 'M':
		multiplier = 1 << 20
		trimmed = trimmed[:len(trimmed)-1]
	case 'g', 'G':
		multiplier = 1 << 30
		trimmed = trimmed[:len(trimmed)-1]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(trimmed), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative size %q", value)
	}
	return ByteSize(n * multiplier), nil
}

// Bytes returns the size as int64.
func (s ByteSize) Bytes() int64 { return int64(s) }

// String renders the size in PHP ini shorthand, using the largest exact unit.
func (s ByteSize) String() string {
	n := int64(s)
	switch {
	case n >= 1<<30 && n%(1<<30) == 0:
		return strconv.FormatInt(n>>30, 10) + "G"
	case n >= 1<<20 && n%(1<<20) == 0:
		return strconv.FormatInt(n>>20, 10) + "M"
	case n >= 1<<10 && n%(1<<10) == 0:
		return strconv.FormatInt(n>>10, 10) + "K"
	default:
		return strconv.FormatInt(n, 10)
	}
}

package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/shopspring/decimal"
)

// ParseAPIValue parses a wire-encoded decimal string. Empty values are
// rejected, callers decide whether an absent field means zero.
func ParseAPIValue(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid value %q: %w", value, err)
	}
	return d, nil
}

// ParseOptionalAPIValue is ParseAPIValue with empty values mapped to zero.
func ParseOptionalAPIValue(value string) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero, nil
	}
	return ParseAPIValue(value)
}

// ParseTimestamp accepts unix seconds or an RFC3339 date.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}

// ToUint64 converts an integral non-negative decimal.
func ToUint64(value decimal.Decimal) (uint64, error) {
	if !value.IsInteger() {
		return 0, fmt.Errorf("%s is not an integer", value)
	}
	if !value.BigInt().IsInt64() {
		return 0, fmt.Errorf("%s out of range", value)
	}
	return safecast.ToUint64(value.IntPart())
}

// ToUint32 converts an integral decimal in [0, 2^32).
func ToUint32(value decimal.Decimal) (uint32, error) {
	n, err := ToUint64(value)
	if err != nil {
		return 0, err
	}
	return safecast.ToUint32(n)
}

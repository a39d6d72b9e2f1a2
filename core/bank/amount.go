package bank

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a currency value in minor units (cents). Balances and payment
// amounts are kept in minor units so ledger arithmetic stays exact.
type Amount int64

// ErrInvalidAmount marks user input that does not parse to a positive amount.
var ErrInvalidAmount = errors.New("bank: invalid amount")

// ParseAmount parses a user-entered decimal amount such as "20" or "12.50".
// Non-positive and unparsable values are rejected, never coerced to zero.
func ParseAmount(text string) (Amount, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	cents := int64(math.Round(v * 100))
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return Amount(cents), nil
}

// String renders the amount with two decimal places, e.g. "20.00".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

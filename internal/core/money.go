// Package core provides money parsing and handling utilities.
//
// Amounts travel as JSON numbers in rupees and are held as integer paise
// (cents) so sums and comparisons stay exact.
package core

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// maxIntDigits keeps cents*100 inside int64.
const maxIntDigits = 16

// ParseDecimalToCents converts a positive decimal string to cents.
//
// Dot and comma separators are both accepted; the third decimal is rounded
// half-up. Empty, signed, zero or malformed input is rejected.
//
//	ParseDecimalToCents("12.34")  -> 1234
//	ParseDecimalToCents("12,345") -> 1235
func ParseDecimalToCents(s string) (int64, error) {
	cents, err := parseCents(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseNonNegativeDecimalToCents is ParseDecimalToCents that also accepts
// zero and treats an empty string as zero. Used for balances such as a
// goal's saved amount.
func ParseNonNegativeDecimalToCents(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return parseCents(s)
}

func parseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	if len(parts[0]) > maxIntDigits {
		return 0, ErrInvalidAmount
	}
	digits := 0
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return 0, ErrInvalidAmount
			}
			digits++
		}
	}
	if digits == 0 {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return toCents(d), nil
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// NewMoney builds Money from a decimal amount, rounding to the cent.
func NewMoney(d decimal.Decimal) Money {
	return Money{Cents: toCents(d)}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount in whole currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two decimals, e.g. "1234.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Input renders the amount for a form field, without trailing zeros.
func (m Money) Input() string {
	if m.Cents == 0 {
		return ""
	}
	return m.Decimal().String()
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Money{}
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*m = Money{}
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ErrInvalidAmount
	}
	*m = NewMoney(d)
	return nil
}

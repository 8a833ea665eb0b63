package valueobject

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	CNY Currency = "CNY" // 人民币, also accepted as "RMB"
	USD Currency = "USD"
	EUR Currency = "EUR"
	HKD Currency = "HKD"
)

// DefaultCurrency is the base currency used when none is configured
const DefaultCurrency = CNY

// ParseCurrency normalises and validates a currency code.
// The colloquial "RMB" is accepted as an alias for CNY.
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("currency cannot be empty")
	}
	if code == "RMB" {
		return CNY, nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("invalid currency %q: %w", code, err)
	}
	return Currency(unit.String()), nil
}

// MustParseCurrency is ParseCurrency for constants and tests
func MustParseCurrency(code string) Currency {
	c, err := ParseCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the ISO code
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether c is a known ISO 4217 code
func (c Currency) IsValid() bool {
	_, err := ParseCurrency(string(c))
	return err == nil
}

package enums

import (
	"fmt"
	"strings"
)

// Currency represents monetary denominations accepted from the payment provider.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

var validCurrencies = []Currency{
	CurrencyUSD,
	CurrencyEUR,
	CurrencyGBP,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// NormalizeCurrency upper-cases provider input and falls back to USD when the
// value is empty, matching how the payment provider reports currency codes.
func NormalizeCurrency(value string) Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return CurrencyUSD
	}
	return Currency(trimmed)
}

// ParseCurrency converts a raw string into a known Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == strings.ToUpper(value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}

package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Money is a positive amount with at most two decimal places in an ISO 4217 currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if !amount.IsPositive() {
		return Money{}, NewValidationError("amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return Money{}, NewValidationError("amount %s has more than two decimal places", amount.String())
	}
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, Currency: code}, nil
}

// ParseMoney parses a decimal string such as "1000.00".
func ParseMoney(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, NewValidationError("amount %q is not a decimal number", amount)
	}
	return NewMoney(d, currency)
}

func NormalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return "", NewMissingRequiredFieldError("currency")
	}
	if !currencyPattern.MatchString(code) {
		return "", NewValidationError("currency %q is not a three letter code", currency)
	}
	return code, nil
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, NewBusinessRuleError("currency mismatch")
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}

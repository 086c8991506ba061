package domain

import (
	"regexp"
	"strings"
)

var ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]+$`)

// ValidateIBAN checks structure and the ISO 13616 mod-97 checksum.
func ValidateIBAN(raw string) bool {
	iban := compactIBAN(raw)
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	if !ibanPattern.MatchString(iban) {
		return false
	}

	rearranged := iban[4:] + iban[:4]
	remainder := 0
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			remainder = (remainder*10 + int(r-'0')) % 97
		default:
			v := int(r-'A') + 10
			remainder = (remainder*10 + v/10) % 97
			remainder = (remainder*10 + v%10) % 97
		}
	}
	return remainder == 1
}

// NormalizeIBAN returns the compact upper-case form of a valid IBAN.
func NormalizeIBAN(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", NewMissingRequiredFieldError("iban")
	}
	if !ValidateIBAN(raw) {
		return "", NewValidationError("iban %q is invalid", raw)
	}
	return compactIBAN(raw), nil
}

func compactIBAN(raw string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
}

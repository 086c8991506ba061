package domain

import (
	"math"
	"strings"
	"unicode"
)

type NameMatch string

const (
	NameMatchExact NameMatch = "MATCH"
	NameMatchClose NameMatch = "CLOSE_MATCH"
	NameMatchNone  NameMatch = "NO_MATCH"
)

// NormalizeName lower-cases, drops punctuation and collapses whitespace.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NameSimilarity scores two names 0..100 from the Levenshtein distance of
// their normalized forms. Two empty names score 100.
func NameSimilarity(a, b string) int {
	left := []rune(NormalizeName(a))
	right := []rune(NormalizeName(b))

	maxLen := max(len(left), len(right))
	if maxLen == 0 {
		return 100
	}

	distance := levenshtein(left, right)
	score := int(math.Round((1 - float64(distance)/float64(maxLen)) * 100))
	return min(max(score, 0), 100)
}

// DecideNameMatch maps a similarity score onto a confirmation-of-payee outcome.
func DecideNameMatch(score, closeMatchThreshold int) (NameMatch, error) {
	if score < 0 || score > 100 {
		return "", NewValidationError("similarity score %d is outside 0..100", score)
	}
	if closeMatchThreshold < 1 || closeMatchThreshold > 99 {
		return "", NewValidationError("close match threshold %d is outside 1..99", closeMatchThreshold)
	}

	switch {
	case score == 100:
		return NameMatchExact, nil
	case score >= closeMatchThreshold:
		return NameMatchClose, nil
	default:
		return NameMatchNone, nil
	}
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

package domain

import (
	"strings"
	"time"
)

// IdempotencyRecord remembers the outcome of the first successful mutation made
// with a given key by a given principal. The same key used by two principals
// yields two independent records.
type IdempotencyRecord struct {
	Key         string
	PrincipalID string
	RequestHash string
	ResultRef   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

func NewIdempotencyRecord(key, principalID, requestHash, resultRef string, now time.Time, ttl time.Duration) (IdempotencyRecord, error) {
	if strings.TrimSpace(key) == "" {
		return IdempotencyRecord{}, NewMissingRequiredFieldError("idempotency key")
	}
	if principalID == "" {
		return IdempotencyRecord{}, NewMissingRequiredFieldError("principal id")
	}
	if requestHash == "" {
		return IdempotencyRecord{}, NewMissingRequiredFieldError("request hash")
	}
	if ttl <= 0 {
		return IdempotencyRecord{}, NewValidationError("idempotency ttl must be positive, got %s", ttl)
	}

	return IdempotencyRecord{
		Key:         key,
		PrincipalID: principalID,
		RequestHash: requestHash,
		ResultRef:   resultRef,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}, nil
}

func (r IdempotencyRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

func (r IdempotencyRecord) Matches(requestHash string) bool {
	return r.RequestHash == requestHash
}

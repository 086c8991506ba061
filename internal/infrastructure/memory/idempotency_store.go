package memory

import (
	"context"
	"sync"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

type recordKey struct {
	key         string
	principalID string
}

// IdempotencyStore keeps records in a bounded LRU. The same key used by two
// principals yields two independent records.
type IdempotencyStore struct {
	mu      sync.Mutex
	records *lru.Cache[recordKey, domain.IdempotencyRecord]
}

func NewIdempotencyStore(capacity int) (*IdempotencyStore, error) {
	records, err := lru.New[recordKey, domain.IdempotencyRecord](capacity)
	if err != nil {
		return nil, err
	}
	return &IdempotencyStore{records: records}, nil
}

func (s *IdempotencyStore) Find(_ context.Context, key, principalID string, now time.Time) (domain.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := recordKey{key: key, principalID: principalID}
	record, ok := s.records.Get(k)
	if !ok {
		return domain.IdempotencyRecord{}, false, nil
	}
	if record.IsExpired(now) {
		s.records.Remove(k)
		return domain.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *IdempotencyStore) Save(_ context.Context, record domain.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records.Add(recordKey{key: record.Key, principalID: record.PrincipalID}, record)
	return nil
}

// DeleteExpired drops every record whose expiry has passed.
func (s *IdempotencyStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, k := range s.records.Keys() {
		record, ok := s.records.Peek(k)
		if ok && record.IsExpired(now) {
			s.records.Remove(k)
			deleted++
		}
	}
	return deleted, nil
}

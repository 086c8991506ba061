package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/memory"
	"github.com/DanielPopoola/openfinance-gateway/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	clock    *domain.FixedClock
	store    *memory.IdempotencyStore
	locker   *memory.KeyedLocker
	registry *prometheus.Registry
	idem     *application.Idempotency

	mu       sync.Mutex
	results  map[string]string
	executed atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := memory.NewIdempotencyStore(100)
	require.NoError(t, err)

	f := &fixture{
		clock:    domain.NewFixedClock(t0),
		store:    store,
		locker:   memory.NewKeyedLocker(),
		registry: prometheus.NewRegistry(),
		results:  make(map[string]string),
	}
	f.idem = application.NewIdempotency(f.store, f.locker, f.clock, application.IdempotencyConfig{
		TTL:         24 * time.Hour,
		LockTimeout: 50 * time.Millisecond,
	}, metrics.New(f.registry), discardLogger())
	return f
}

func (f *fixture) run(ctx context.Context, principal, key, hash, value string) (application.Result[string], error) {
	req := application.IdempotentRequest{Operation: "test.create", Key: key, PrincipalID: principal, RequestHash: hash}
	return application.Execute(ctx, f.idem, req,
		func(_ context.Context, ref string) (string, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			v, ok := f.results[ref]
			if !ok {
				return "", domain.NewNotFoundError("result", ref)
			}
			return v, nil
		},
		func(_ context.Context) (string, string, error) {
			n := f.executed.Add(1)
			ref := fmt.Sprintf("RES-%d", n)
			f.mu.Lock()
			f.results[ref] = value
			f.mu.Unlock()
			return value, ref, nil
		},
	)
}

func TestExecute_ReplaysSameRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.run(ctx, "tpp-a", "key-1", "hash-1", "v1")
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.Equal(t, "v1", first.Value)

	second, err := f.run(ctx, "tpp-a", "key-1", "hash-1", "v2")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, "v1", second.Value, "replay returns the original result")
	assert.Equal(t, int32(1), f.executed.Load())

	assert.Equal(t, 1.0, outcomeCount(t, f.registry, metrics.OutcomeExecuted))
	assert.Equal(t, 1.0, outcomeCount(t, f.registry, metrics.OutcomeReplayed))
}

func TestExecute_ConflictOnDifferentPayload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.run(ctx, "tpp-a", "key-1", "hash-1", "v1")
	require.NoError(t, err)

	_, err = f.run(ctx, "tpp-a", "key-1", "hash-2", "v2")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIdempotencyConflict)
	assert.Equal(t, 409, application.ToHTTPStatus(err))
	assert.Equal(t, int32(1), f.executed.Load())
}

func TestExecute_KeysAreScopedPerPrincipal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.run(ctx, "tpp-a", "key-1", "hash-1", "from-a")
	require.NoError(t, err)
	b, err := f.run(ctx, "tpp-b", "key-1", "hash-other", "from-b")
	require.NoError(t, err)

	assert.False(t, b.Replayed)
	assert.Equal(t, "from-a", a.Value)
	assert.Equal(t, "from-b", b.Value)
	assert.Equal(t, int32(2), f.executed.Load())
}

func TestExecute_ExpiredRecordRunsAgain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.run(ctx, "tpp-a", "key-1", "hash-1", "v1")
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)

	again, err := f.run(ctx, "tpp-a", "key-1", "hash-2", "v2")
	require.NoError(t, err)
	assert.False(t, again.Replayed)
	assert.Equal(t, "v2", again.Value)
}

func TestExecute_FailureIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := application.IdempotentRequest{Operation: "test.create", Key: "key-1", PrincipalID: "tpp-a", RequestHash: "hash-1"}

	boom := domain.NewBusinessRuleError("insufficient funds")
	_, err := application.Execute(ctx, f.idem, req,
		func(context.Context, string) (string, error) { return "", nil },
		func(context.Context) (string, string, error) { return "", "", boom },
	)
	require.ErrorIs(t, err, domain.ErrBusinessRule)

	_, found, err := f.store.Find(ctx, "key-1", "tpp-a", t0)
	require.NoError(t, err)
	assert.False(t, found)

	retry, err := f.run(ctx, "tpp-a", "key-1", "hash-1", "v1")
	require.NoError(t, err)
	assert.False(t, retry.Replayed)
}

func TestExecute_ConcurrentSameKeyExecutesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.idem = application.NewIdempotency(f.store, f.locker, f.clock, application.IdempotencyConfig{
		TTL:         time.Hour,
		LockTimeout: 5 * time.Second,
	}, nil, discardLogger())

	const callers = 16
	var wg sync.WaitGroup
	var replayed atomic.Int32
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.run(ctx, "tpp-a", "key-1", "hash-1", "v1")
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, "v1", res.Value)
			if res.Replayed {
				replayed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.executed.Load())
	assert.Equal(t, int32(callers-1), replayed.Load())
}

func TestExecute_LockTimeout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	unlock, err := f.locker.Lock(ctx, "idem:5:tpp-a:key-1")
	require.NoError(t, err)
	defer unlock()

	_, err = f.run(ctx, "tpp-a", "key-1", "hash-1", "v1")
	require.Error(t, err)
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeRequestProcessing, svcErr.Code)
	assert.Equal(t, int32(0), f.executed.Load())
}

func TestExecute_PrincipalAndKeyDoNotCollide(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		req := application.IdempotentRequest{Operation: "test.create", Key: "b:c", PrincipalID: "a", RequestHash: "hash-1"}
		_, err := application.Execute(ctx, f.idem, req,
			func(context.Context, string) (string, error) { return "", nil },
			func(context.Context) (string, string, error) {
				close(entered)
				<-release
				return "held", "RES-held", nil
			},
		)
		done <- err
	}()
	<-entered

	res, err := f.run(ctx, "a:b", "c", "hash-1", "v1")
	require.NoError(t, err, "a different pair must not wait on the held lock")
	assert.Equal(t, "v1", res.Value)

	close(release)
	require.NoError(t, <-done)
}

func TestExecute_RejectsIncompleteRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name      string
		principal string
		key       string
		hash      string
	}{
		{"missing key", "tpp-a", "  ", "hash"},
		{"missing principal", "", "key", "hash"},
		{"missing fingerprint", "tpp-a", "key", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.run(ctx, tt.principal, tt.key, tt.hash, "v")
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Equal(t, int32(0), f.executed.Load())
}

type failingStore struct {
	application.IdempotencyStore
}

func (failingStore) Save(context.Context, domain.IdempotencyRecord) error {
	return errors.New("disk full")
}

func TestExecute_SaveFailureStillReturnsResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	idem := application.NewIdempotency(failingStore{f.store}, f.locker, f.clock, application.IdempotencyConfig{
		TTL:         time.Hour,
		LockTimeout: time.Second,
	}, nil, discardLogger())

	req := application.IdempotentRequest{Operation: "test.create", Key: "key-1", PrincipalID: "tpp-a", RequestHash: "hash-1"}
	res, err := application.Execute(ctx, idem, req,
		func(context.Context, string) (string, error) { return "", nil },
		func(context.Context) (string, string, error) { return "done", "RES-1", nil },
	)
	require.NoError(t, err)
	assert.Equal(t, "done", res.Value)
}

func outcomeCount(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != "openfinance_idempotent_requests_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

package ledger_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/config"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Reserve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/reservations", r.URL.Path)
		assert.Equal(t, "idem-key", r.Header.Get("Idempotency-Key"))

		var req ledger.ReservationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ACC-1", req.AccountID)
		assert.Equal(t, "100.00", req.Amount)
		assert.Equal(t, "AED", req.Currency)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(ledger.ReservationResponse{
			ReservationID: "RSV-1",
			AccountID:     "ACC-1",
			Amount:        "100.00",
			Currency:      "AED",
			Status:        "HELD",
		})
	}))
	defer server.Close()

	client := ledger.NewHTTPClient(config.LedgerConfig{BaseURL: server.URL, ConnTimeout: time.Second})
	res, err := client.Reserve(context.Background(), "ACC-1", aed(t, "100.00"), "idem-key")

	require.NoError(t, err)
	assert.Equal(t, "RSV-1", res.ReservationID)
	assert.Equal(t, "ACC-1", res.AccountID)
}

func TestHTTPClient_MapsErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"insufficient_funds","message":"balance too low"}`))
	}))
	defer server.Close()

	client := ledger.NewHTTPClient(config.LedgerConfig{BaseURL: server.URL, ConnTimeout: time.Second})
	_, err := client.Reserve(context.Background(), "ACC-1", aed(t, "100.00"), "idem-key")

	require.Error(t, err)
	ledgerErr, ok := ledger.IsLedgerError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, ledgerErr.StatusCode)
	assert.False(t, ledgerErr.IsRetryable())
	assert.ErrorIs(t, err, application.ErrInsufficientFunds)
}

func TestInMemoryLedger(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewInMemoryLedger()
	l.Credit("ACC-1", aed(t, "150.00").Amount)

	first, err := l.Reserve(ctx, "ACC-1", aed(t, "100.00"), "key-1")
	require.NoError(t, err)

	again, err := l.Reserve(ctx, "ACC-1", aed(t, "100.00"), "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ReservationID, again.ReservationID)
	assert.Equal(t, 1, l.Reservations())
	assert.Equal(t, "50", l.Balance("ACC-1").String())

	_, err = l.Reserve(ctx, "ACC-1", aed(t, "100.00"), "key-2")
	assert.ErrorIs(t, err, application.ErrInsufficientFunds)

	_, err = l.Reserve(ctx, "ACC-404", aed(t, "1.00"), "key-3")
	ledgerErr, ok := ledger.IsLedgerError(err)
	require.True(t, ok)
	assert.False(t, ledgerErr.IsRetryable())
}

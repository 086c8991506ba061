package ledger

import (
	"errors"
	"fmt"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
)

const CodeInsufficientFunds = "insufficient_funds"

type LedgerError struct {
	Code       string
	Message    string
	StatusCode int
}

type LedgerErrorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

// Unwrap lets callers match a declined reservation with application.ErrInsufficientFunds.
func (e *LedgerError) Unwrap() error {
	if e.Code == CodeInsufficientFunds {
		return application.ErrInsufficientFunds
	}
	return nil
}

func (e *LedgerError) IsRetryable() bool {
	return e.StatusCode >= 500
}

func IsLedgerError(err error) (*LedgerError, bool) {
	var ledgerErr *LedgerError
	ok := errors.As(err, &ledgerErr)
	return ledgerErr, ok
}

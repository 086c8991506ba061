package services

import "time"

type GrantConsentCommand struct {
	PrincipalID string   `validate:"required"`
	Scopes      []string `validate:"required,min=1"`
	ResourceIDs []string
	ExpiresAt   time.Time `validate:"required"`
}

type SubmitPaymentCommand struct {
	PrincipalID     string `validate:"required"`
	IdempotencyKey  string `validate:"required"`
	ConsentID       string `validate:"required"`
	InstructionID   string `validate:"required"`
	EndToEndID      string
	DebtorAccountID string `validate:"required"`
	Amount          string `validate:"required"`
	Currency        string `validate:"required"`
	CreditorIBAN    string `validate:"required"`
	CreditorName    string `validate:"required"`
	// RequestedExecutionDate is a calendar date (2006-01-02); empty means now.
	RequestedExecutionDate string
}

type CreateQuoteCommand struct {
	PrincipalID    string `validate:"required"`
	IdempotencyKey string `validate:"required"`
	ConsentID      string `validate:"required"`
	SourceCurrency string `validate:"required"`
	TargetCurrency string `validate:"required"`
	Amount         string `validate:"required"`
}

type ExecuteDealCommand struct {
	PrincipalID    string `validate:"required"`
	IdempotencyKey string `validate:"required"`
	QuoteID        string `validate:"required"`
}

type CreatePayRequestCommand struct {
	PrincipalID    string `validate:"required"`
	IdempotencyKey string `validate:"required"`
	ConsentID      string `validate:"required"`
	PayerIBAN      string
	PayeeName      string `validate:"required"`
	Amount         string `validate:"required"`
	Currency       string `validate:"required"`
}

type ConsumePayRequestCommand struct {
	PrincipalID    string `validate:"required"`
	IdempotencyKey string `validate:"required"`
	PayRequestID   string `validate:"required"`
	PaymentID      string `validate:"required"`
}

type RejectPayRequestCommand struct {
	PrincipalID    string `validate:"required"`
	IdempotencyKey string `validate:"required"`
	PayRequestID   string `validate:"required"`
}

type CreateVrpConsentCommand struct {
	PrincipalID        string    `validate:"required"`
	IdempotencyKey     string    `validate:"required"`
	PsuID              string    `validate:"required"`
	MaxAmountPerPeriod string    `validate:"required"`
	Currency           string    `validate:"required"`
	ExpiresAt          time.Time `validate:"required"`
}

type RevokeVrpConsentCommand struct {
	PrincipalID string `validate:"required"`
	ConsentID   string `validate:"required"`
	Reason      string
}

type SubmitCollectionCommand struct {
	PrincipalID    string `validate:"required"`
	IdempotencyKey string `validate:"required"`
	ConsentID      string `validate:"required"`
	Amount         string `validate:"required"`
	Currency       string `validate:"required"`
}

type CreateAccountCommand struct {
	PrincipalID      string `validate:"required"`
	IdempotencyKey   string `validate:"required"`
	EncryptedProfile string `validate:"required"`
	Currency         string `validate:"required"`
}

type CreateInsuranceQuoteCommand struct {
	PrincipalID    string `validate:"required"`
	IdempotencyKey string `validate:"required"`
	ConsentID      string `validate:"required"`
	ProductCode    string `validate:"required"`
	CoverageAmount string `validate:"required"`
	Currency       string `validate:"required"`
}

type AcceptInsuranceQuoteCommand struct {
	PrincipalID    string `validate:"required"`
	IdempotencyKey string `validate:"required"`
	QuoteID        string `validate:"required"`
}

type SubmitBulkFileCommand struct {
	PrincipalID    string `validate:"required"`
	IdempotencyKey string `validate:"required"`
	ConsentID      string `validate:"required"`
	FileName       string `validate:"required"`
	Content        []byte
	FileHash       string `validate:"required"`
	IntegrityMode  string
}

type ConfirmPayeeQuery struct {
	PrincipalID string `validate:"required"`
	ConsentID   string `validate:"required"`
	IBAN        string `validate:"required"`
	Name        string `validate:"required"`
}

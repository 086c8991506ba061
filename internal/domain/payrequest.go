package domain

import (
	"strings"
	"time"
)

type PayRequestStatus string

const (
	PayRequestAwaitingAuthorisation PayRequestStatus = "AWAITING_AUTHORISATION"
	PayRequestConsumed              PayRequestStatus = "CONSUMED"
	PayRequestRejected              PayRequestStatus = "REJECTED"
)

var payRequestLifecycle = lifecycle[PayRequestStatus]{
	PayRequestAwaitingAuthorisation: false,
	PayRequestConsumed:              true,
	PayRequestRejected:              true,
}

func (s PayRequestStatus) IsTerminal() bool {
	return payRequestLifecycle.terminal(s)
}

// PayRequest asks a payer to authorise a payment to the requesting payee.
type PayRequest struct {
	Meta
	ConsentID string
	PayeeName string
	PayerIBAN string
	Amount    Money
	Status    PayRequestStatus
	PaymentID string
}

func NewPayRequest(id, ownerID, consentID, payeeName, payerIBAN string, amount Money, now time.Time) (PayRequest, error) {
	meta, err := newMeta(id, ownerID, now)
	if err != nil {
		return PayRequest{}, err
	}
	if strings.TrimSpace(payeeName) == "" {
		return PayRequest{}, NewMissingRequiredFieldError("payee name")
	}
	if payerIBAN != "" {
		if payerIBAN, err = NormalizeIBAN(payerIBAN); err != nil {
			return PayRequest{}, err
		}
	}
	return PayRequest{
		Meta:      meta,
		ConsentID: consentID,
		PayeeName: strings.TrimSpace(payeeName),
		PayerIBAN: payerIBAN,
		Amount:    amount,
		Status:    PayRequestAwaitingAuthorisation,
	}, nil
}

func (r PayRequest) Consume(paymentID string, now time.Time) (PayRequest, error) {
	if err := ensureOpen(payRequestLifecycle, "pay request", r.ID, r.Status); err != nil {
		return PayRequest{}, err
	}
	if strings.TrimSpace(paymentID) == "" {
		return PayRequest{}, NewMissingRequiredFieldError("payment id")
	}
	r.Status = PayRequestConsumed
	r.PaymentID = paymentID
	r.Meta = r.touched(now)
	return r, nil
}

func (r PayRequest) Reject(now time.Time) (PayRequest, error) {
	if err := ensureOpen(payRequestLifecycle, "pay request", r.ID, r.Status); err != nil {
		return PayRequest{}, err
	}
	r.Status = PayRequestRejected
	r.Meta = r.touched(now)
	return r, nil
}

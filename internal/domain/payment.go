// Package domain holds the open finance resources, their state machines and
// the pure decision policies that drive them.
package domain

import (
	"slices"
	"strings"
	"time"
)

// PaymentStatus represents the current state of a payment in its lifecycle
type PaymentStatus string

const (
	PaymentPending                    PaymentStatus = "PENDING"
	PaymentAcceptedSettlementInProcess PaymentStatus = "ACCEPTED_SETTLEMENT_IN_PROCESS"
	PaymentRejected                   PaymentStatus = "REJECTED"
)

var paymentLifecycle = lifecycle[PaymentStatus]{
	PaymentPending:                    false,
	PaymentAcceptedSettlementInProcess: true,
	PaymentRejected:                   true,
}

func (s PaymentStatus) IsTerminal() bool {
	return paymentLifecycle.terminal(s)
}

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	return paymentLifecycle.parse("payment", raw)
}

type RiskDecision string

const (
	RiskPass   RiskDecision = "PASS"
	RiskReject RiskDecision = "REJECT"
)

// DecidePaymentStatus applies the initiation policy: a risk rejection wins,
// then a requested execution date strictly after the processing date defers
// the payment, otherwise it settles immediately. Dates compare by UTC calendar day.
func DecidePaymentStatus(processingDate time.Time, requestedExecutionDate *time.Time, risk RiskDecision) PaymentStatus {
	if risk == RiskReject {
		return PaymentRejected
	}
	if requestedExecutionDate != nil && DateOf(*requestedExecutionDate).After(DateOf(processingDate)) {
		return PaymentPending
	}
	return PaymentAcceptedSettlementInProcess
}

type PaymentDetails struct {
	ConsentID              string
	InstructionID          string
	EndToEndID             string
	DebtorAccountID        string
	Amount                 Money
	CreditorIBAN           string
	CreditorName           string
	RequestedExecutionDate *time.Time
}

type Payment struct {
	Meta
	PaymentDetails
	Status          PaymentStatus
	RiskDecision    RiskDecision
	ReservationID   string
	RejectionReason string
}

// NewPayment validates the details and assigns the initial status chosen by
// DecidePaymentStatus.
func NewPayment(id, ownerID string, details PaymentDetails, risk RiskDecision, now time.Time) (Payment, error) {
	meta, err := newMeta(id, ownerID, now)
	if err != nil {
		return Payment{}, err
	}
	if details.ConsentID == "" {
		return Payment{}, NewMissingRequiredFieldError("consent id")
	}
	if strings.TrimSpace(details.InstructionID) == "" {
		return Payment{}, NewMissingRequiredFieldError("instruction id")
	}
	if strings.TrimSpace(details.DebtorAccountID) == "" {
		return Payment{}, NewMissingRequiredFieldError("debtor account id")
	}
	if strings.TrimSpace(details.CreditorName) == "" {
		return Payment{}, NewMissingRequiredFieldError("creditor name")
	}
	iban, err := NormalizeIBAN(details.CreditorIBAN)
	if err != nil {
		return Payment{}, err
	}
	details.CreditorIBAN = iban

	if details.RequestedExecutionDate != nil && DateOf(*details.RequestedExecutionDate).Before(DateOf(now)) {
		return Payment{}, NewValidationError("requested execution date is in the past")
	}

	status := DecidePaymentStatus(now, details.RequestedExecutionDate, risk)
	p := Payment{
		Meta:           meta,
		PaymentDetails: details,
		Status:         status,
		RiskDecision:   risk,
	}
	if status == PaymentRejected {
		p.RejectionReason = "rejected by risk assessment"
	}
	return p, nil
}

// WithReservation records the funds reservation backing an accepted payment.
func (p Payment) WithReservation(reservationID string) Payment {
	p.ReservationID = reservationID
	return p
}

// IsDue reports whether a deferred payment should be released at now.
func (p Payment) IsDue(now time.Time) bool {
	if p.Status != PaymentPending || p.RequestedExecutionDate == nil {
		return false
	}
	return !DateOf(*p.RequestedExecutionDate).After(DateOf(now))
}

// Release settles a pending payment once its execution date is reached.
func (p Payment) Release(reservationID string, now time.Time) (Payment, error) {
	next, err := p.transition(PaymentAcceptedSettlementInProcess, now)
	if err != nil {
		return Payment{}, err
	}
	next.ReservationID = reservationID
	return next, nil
}

func (p Payment) Reject(reason string, now time.Time) (Payment, error) {
	next, err := p.transition(PaymentRejected, now)
	if err != nil {
		return Payment{}, err
	}
	next.RejectionReason = reason
	return next, nil
}

func (p Payment) transition(target PaymentStatus, now time.Time) (Payment, error) {
	if err := p.canTransitionTo(target); err != nil {
		return Payment{}, err
	}
	p.Status = target
	p.Meta = p.touched(now)
	return p, nil
}

// defines various payment statuses that can be transitioned to
func (p Payment) canTransitionTo(target PaymentStatus) error {
	if err := ensureOpen(paymentLifecycle, "payment", p.ID, p.Status); err != nil {
		return err
	}
	switch p.Status {
	case PaymentPending:
		return p.allow(target, PaymentAcceptedSettlementInProcess, PaymentRejected)
	}
	return NewValidationError("payment %s cannot move from %s to %s", p.ID, p.Status, target)
}

// Helper to check allowed state transitions
func (p Payment) allow(target PaymentStatus, allowed ...PaymentStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewValidationError("payment %s cannot move from %s to %s", p.ID, p.Status, target)
}

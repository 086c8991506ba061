package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

// Resource kinds as stored in the resources.kind column.
const (
	kindConsent        = "consent"
	kindPayment        = "payment"
	kindQuote          = "fx_quote"
	kindDeal           = "fx_deal"
	kindPayRequest     = "pay_request"
	kindVrpConsent     = "vrp_consent"
	kindVrpPayment     = "vrp_payment"
	kindAccount        = "account"
	kindInsuranceQuote = "insurance_quote"
	kindBulkFile       = "bulk_file"
)

// columns are the queryable projections of a stored document.
type columns struct {
	Status   string
	DueAt    *time.Time
	GroupKey string
	Amount   string
}

// resourceRow is the database representation of one resource version.
type resourceRow struct {
	Kind      string
	ID        string
	OwnerID   string
	Columns   columns
	Payload   []byte
	UpdatedAt time.Time
}

func toRow[T domain.Entity](kind string, resource T, project func(T) columns, now time.Time) (resourceRow, error) {
	payload, err := json.Marshal(resource)
	if err != nil {
		return resourceRow{}, fmt.Errorf("encode %s %s: %w", kind, resource.ResourceID(), err)
	}
	var cols columns
	if project != nil {
		cols = project(resource)
	}
	return resourceRow{
		Kind:      kind,
		ID:        resource.ResourceID(),
		OwnerID:   resource.Owner(),
		Columns:   cols,
		Payload:   payload,
		UpdatedAt: now,
	}, nil
}

func fromPayload[T domain.Entity](kind string, payload []byte) (T, error) {
	var resource T
	if err := json.Unmarshal(payload, &resource); err != nil {
		return resource, fmt.Errorf("decode %s: %w", kind, err)
	}
	return resource, nil
}

func dayOf(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.DateOf(*t)
	return &d
}

func projectPayment(p domain.Payment) columns {
	return columns{Status: string(p.Status), DueAt: dayOf(p.RequestedExecutionDate)}
}

func projectQuote(q domain.Quote) columns {
	due := q.ValidUntil
	return columns{Status: string(q.Status), DueAt: &due}
}

func projectInsuranceQuote(q domain.InsuranceQuote) columns {
	due := q.ValidUntil
	return columns{Status: string(q.Status), DueAt: &due}
}

func projectVrpPayment(p domain.VrpPayment) columns {
	return columns{
		Status:   string(p.Status),
		GroupKey: domain.Fingerprint(p.ConsentID, p.PeriodKey),
		Amount:   p.Amount.Amount.String(),
	}
}

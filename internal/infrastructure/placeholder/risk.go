package placeholder

import (
	"context"
	"strings"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

// ThresholdRisk rejects payments above a single-payment limit or to
// creditors on a deny list.
type ThresholdRisk struct {
	limit  decimal.Decimal
	denied map[string]bool
}

func NewThresholdRisk(limit decimal.Decimal, deniedCreditors ...string) *ThresholdRisk {
	denied := make(map[string]bool, len(deniedCreditors))
	for _, name := range deniedCreditors {
		denied[domain.NormalizeName(name)] = true
	}
	return &ThresholdRisk{limit: limit, denied: denied}
}

func (r *ThresholdRisk) Assess(_ context.Context, _ string, details domain.PaymentDetails) (domain.RiskDecision, error) {
	if details.Amount.Amount.GreaterThan(r.limit) {
		return domain.RiskReject, nil
	}
	if r.denied[domain.NormalizeName(strings.TrimSpace(details.CreditorName))] {
		return domain.RiskReject, nil
	}
	return domain.RiskPass, nil
}

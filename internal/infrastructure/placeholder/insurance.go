package placeholder

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

// RatedPremiums prices a policy as a fixed percentage of coverage per product.
type RatedPremiums struct {
	rates map[string]decimal.Decimal
}

func NewRatedPremiums() *RatedPremiums {
	return &RatedPremiums{rates: map[string]decimal.Decimal{
		"MOTOR":  decimal.RequireFromString("0.035"),
		"HOME":   decimal.RequireFromString("0.012"),
		"TRAVEL": decimal.RequireFromString("0.020"),
		"HEALTH": decimal.RequireFromString("0.050"),
	}}
}

func (p *RatedPremiums) Premium(_ context.Context, productCode string, coverage domain.Money) (domain.Money, error) {
	rate, ok := p.rates[strings.ToUpper(strings.TrimSpace(productCode))]
	if !ok {
		return domain.Money{}, domain.NewValidationError("unknown insurance product %q", productCode)
	}
	return domain.NewMoney(coverage.Amount.Mul(rate).RoundBank(2), coverage.Currency)
}

// SequentialIssuer numbers policies in issue order.
type SequentialIssuer struct {
	next   atomic.Int64
	prefix string
}

func NewSequentialIssuer(prefix string) *SequentialIssuer {
	return &SequentialIssuer{prefix: prefix}
}

func (i *SequentialIssuer) Issue(_ context.Context, quote domain.InsuranceQuote) (string, error) {
	n := i.next.Add(1)
	return fmt.Sprintf("%s-%s-%06d", i.prefix, quote.ProductCode, n), nil
}

func (i *SequentialIssuer) Issued() int64 {
	return i.next.Load()
}

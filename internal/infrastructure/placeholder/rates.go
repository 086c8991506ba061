// Package placeholder provides deterministic stand-ins for the external
// systems the gateway talks to: rate feeds, risk engines, KYC vaults,
// sanctions lists, insurers and the account directory.
package placeholder

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// StaticRates quotes from a fixed table of rates against AED. Cross rates
// are derived through AED.
type StaticRates struct {
	perAED map[string]decimal.Decimal
}

func NewStaticRates() *StaticRates {
	return &StaticRates{perAED: map[string]decimal.Decimal{
		"AED": decimal.NewFromInt(1),
		"USD": decimal.RequireFromString("0.2723"),
		"EUR": decimal.RequireFromString("0.2510"),
		"GBP": decimal.RequireFromString("0.2150"),
		"SAR": decimal.RequireFromString("1.0210"),
		"INR": decimal.RequireFromString("22.6500"),
	}}
}

func (r *StaticRates) Rate(_ context.Context, source, target string) (decimal.Decimal, error) {
	src, ok := r.perAED[strings.ToUpper(source)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s", source)
	}
	tgt, ok := r.perAED[strings.ToUpper(target)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s", target)
	}
	return tgt.DivRound(src, 6), nil
}

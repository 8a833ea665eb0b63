package settlement

import (
	"strings"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

var maxRebateRate = decimal.NewFromInt(100)

// Agency is an advertising agency; RebateRate is a percentage of net spend
type Agency struct {
	shared.BaseAggregateRoot
	Name       string
	RebateRate decimal.Decimal
	Currency   valueobject.Currency
	Active     bool
}

// NewAgency creates an active agency
func NewAgency(name string, rebateRate decimal.Decimal, currency valueobject.Currency) (*Agency, error) {
	a := &Agency{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		RebateRate:        rebateRate,
		Currency:          currency,
		Active:            true,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the agency fields
func (a *Agency) Validate() error {
	if a.Name == "" {
		return shared.NewValidationError("agency name is required")
	}
	if a.RebateRate.IsNegative() || a.RebateRate.GreaterThan(maxRebateRate) {
		return shared.NewValidationError("rebate rate must be between 0 and 100")
	}
	if a.Currency != "" && !a.Currency.IsValid() {
		return shared.NewValidationError("invalid currency %q", a.Currency)
	}
	return nil
}

// RebateFor computes net × rate / 100 rounded to places, in net's currency
func (a *Agency) RebateFor(net valueobject.Money, places int32) valueobject.Money {
	return net.Percentage(a.RebateRate, places)
}

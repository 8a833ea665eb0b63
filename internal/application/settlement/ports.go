package settlement

import (
	"context"

	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ExchangeRateProvider stores and returns caller-resolved live exchange rates.
// Rates are expressed as base-currency units per one unit of the keyed currency.
type ExchangeRateProvider interface {
	GetRates(ctx context.Context, base valueobject.Currency) (map[valueobject.Currency]decimal.Decimal, error)
	SetRates(ctx context.Context, base valueobject.Currency, rates map[valueobject.Currency]decimal.Decimal) error
}

// VoucherVerifier checks that an opaque voucher reference points at an uploaded file
type VoucherVerifier interface {
	Verify(ctx context.Context, reference string) error
}

// Options carries the settlement settings the services need
type Options struct {
	BaseCurrency valueobject.Currency
	// RebatePlaces is the rounding precision of accrued rebates
	RebatePlaces int32
}

// DefaultOptions returns CNY base currency and 2 decimal places
func DefaultOptions() Options {
	return Options{BaseCurrency: valueobject.DefaultCurrency, RebatePlaces: 2}
}

func (o Options) normalized() Options {
	if o.BaseCurrency == "" {
		o.BaseCurrency = valueobject.DefaultCurrency
	}
	if o.RebatePlaces <= 0 {
		o.RebatePlaces = 2
	}
	return o
}

// noopVerifier accepts every reference
type noopVerifier struct{}

func (noopVerifier) Verify(context.Context, string) error { return nil }

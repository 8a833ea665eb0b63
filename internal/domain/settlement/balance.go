package settlement

import (
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateSource says which exchange rate converted an account balance
type RateSource string

const (
	RateSourceBase   RateSource = "BASE"
	RateSourceLive   RateSource = "LIVE"
	RateSourceStatic RateSource = "STATIC"
)

// BalanceOptions configures currency conversion during aggregation
type BalanceOptions struct {
	BaseCurrency valueobject.Currency
	// LiveRates are base-currency units per one unit of the keyed currency
	LiveRates map[valueobject.Currency]decimal.Decimal
}

// AccountBalance is the derived balance of one account
type AccountBalance struct {
	AccountID       uuid.UUID            `json:"account_id"`
	Name            string               `json:"name"`
	Currency        valueobject.Currency `json:"currency"`
	Category        AccountCategory      `json:"category"`
	ParentID        *uuid.UUID           `json:"parent_id,omitempty"`
	InitialCapital  decimal.Decimal      `json:"initial_capital"`
	OriginalBalance decimal.Decimal      `json:"original_balance"`
	BaseBalance     decimal.Decimal      `json:"base_balance"`
	ExchangeRate    decimal.Decimal      `json:"exchange_rate"`
	RateSource      RateSource           `json:"rate_source"`
	Aggregated      bool                 `json:"aggregated"`
}

// ComputeBalances derives every account balance from initial capital and the
// confirmed, non-reversed events. It is a pure function of its inputs.
//
// Pass one resets PRIMARY accounts with children to zero and everything else
// to initial capital, then applies events to accounts that are not
// PRIMARY-with-children. Pass two sets each such parent to the sum of its
// children, which is why it must run after every leaf has been settled.
func ComputeBalances(accounts []Account, events []CashFlowEvent, opts BalanceOptions) []AccountBalance {
	base := opts.BaseCurrency
	if base == "" {
		base = valueobject.DefaultCurrency
	}
	parents := ParentsWithChildren(accounts)

	working := make(map[uuid.UUID]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		if parents[a.ID] {
			working[a.ID] = decimal.Zero
		} else {
			working[a.ID] = a.InitialCapital
		}
	}

	for i := range events {
		e := &events[i]
		if !e.CountsTowardBalance() || parents[e.AccountID] {
			continue
		}
		current, ok := working[e.AccountID]
		if !ok {
			continue
		}
		working[e.AccountID] = current.Add(e.SignedAmount())
	}

	result := make([]AccountBalance, len(accounts))
	index := make(map[uuid.UUID]int, len(accounts))
	for i, a := range accounts {
		rate, source := conversionRate(a, base, opts.LiveRates)
		original := working[a.ID]
		result[i] = AccountBalance{
			AccountID:       a.ID,
			Name:            a.Name,
			Currency:        a.Currency,
			Category:        a.Category,
			ParentID:        a.ParentID,
			InitialCapital:  a.InitialCapital,
			OriginalBalance: original,
			BaseBalance:     original.Mul(rate),
			ExchangeRate:    rate,
			RateSource:      source,
		}
		index[a.ID] = i
	}

	for parentID := range parents {
		p := index[parentID]
		original, converted := decimal.Zero, decimal.Zero
		for _, child := range result {
			if child.ParentID != nil && *child.ParentID == parentID {
				original = original.Add(child.OriginalBalance)
				converted = converted.Add(child.BaseBalance)
			}
		}
		result[p].OriginalBalance = original
		result[p].BaseBalance = converted
		result[p].Aggregated = true
	}
	return result
}

func conversionRate(a Account, base valueobject.Currency, live map[valueobject.Currency]decimal.Decimal) (decimal.Decimal, RateSource) {
	if a.Currency == base {
		return decimal.NewFromInt(1), RateSourceBase
	}
	if rate, ok := live[a.Currency]; ok && rate.IsPositive() {
		return rate, RateSourceLive
	}
	return a.rateOrOne(), RateSourceStatic
}

// ApplyBalances copies derived balances onto the account records
func ApplyBalances(accounts []Account, balances []AccountBalance) {
	byID := make(map[uuid.UUID]AccountBalance, len(balances))
	for _, b := range balances {
		byID[b.AccountID] = b
	}
	for i := range accounts {
		if b, ok := byID[accounts[i].ID]; ok {
			accounts[i].OriginalBalance = b.OriginalBalance
			accounts[i].BaseBalance = b.BaseBalance
		}
	}
}

// FindBalance returns the derived balance for one account
func FindBalance(balances []AccountBalance, accountID uuid.UUID) (AccountBalance, bool) {
	for _, b := range balances {
		if b.AccountID == accountID {
			return b, true
		}
	}
	return AccountBalance{}, false
}

// TotalBaseBalance sums the base-currency balance of top-level accounts
// (children are already included in their parents).
func TotalBaseBalance(balances []AccountBalance) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		if b.ParentID == nil {
			total = total.Add(b.BaseBalance)
		}
	}
	return total
}

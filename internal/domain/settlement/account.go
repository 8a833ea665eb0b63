package settlement

import (
	"strings"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountCategory places an account in the two-level hierarchy
type AccountCategory string

const (
	AccountCategoryPrimary    AccountCategory = "PRIMARY"    // 主账户
	AccountCategoryVirtual    AccountCategory = "VIRTUAL"    // 虚拟子账户
	AccountCategoryStandalone AccountCategory = "STANDALONE" // 独立账户
)

// IsValid checks if the category is a valid AccountCategory
func (c AccountCategory) IsValid() bool {
	return c == AccountCategoryPrimary || c == AccountCategoryVirtual || c == AccountCategoryStandalone
}

// Account is a bank or virtual account.
// OriginalBalance and BaseBalance are derived by ComputeBalances and stored
// only as a cache that is refreshed after every posting.
type Account struct {
	shared.BaseAggregateRoot
	Name            string
	Currency        valueobject.Currency
	ExchangeRate    decimal.Decimal
	Category        AccountCategory
	ParentID        *uuid.UUID
	InitialCapital  decimal.Decimal
	OriginalBalance decimal.Decimal
	BaseBalance     decimal.Decimal
}

// NewAccount creates an account with its balances set to the initial capital
func NewAccount(name string, currency valueobject.Currency, category AccountCategory, parentID *uuid.UUID, initialCapital, exchangeRate decimal.Decimal) (*Account, error) {
	a := &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Currency:          currency,
		ExchangeRate:      exchangeRate,
		Category:          category,
		ParentID:          parentID,
		InitialCapital:    initialCapital,
		OriginalBalance:   initialCapital,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	a.BaseBalance = initialCapital.Mul(a.rateOrOne())
	return a, nil
}

// Validate checks the account's own fields; hierarchy rules need the full
// list and live in ValidateHierarchy.
func (a *Account) Validate() error {
	if a.Name == "" {
		return shared.NewValidationError("account name is required")
	}
	if !a.Currency.IsValid() {
		return shared.NewValidationError("invalid currency %q", a.Currency)
	}
	if !a.Category.IsValid() {
		return shared.NewValidationError("invalid account category %q", a.Category)
	}
	if !a.ExchangeRate.IsPositive() {
		return shared.NewValidationError("exchange rate of account %s must be positive", a.Name)
	}
	if a.Category == AccountCategoryVirtual && (a.ParentID == nil || *a.ParentID == uuid.Nil) {
		return shared.NewValidationError("virtual account %s requires a primary parent", a.Name)
	}
	if a.Category != AccountCategoryVirtual && a.ParentID != nil {
		return shared.NewValidationError("only virtual accounts may have a parent")
	}
	return nil
}

func (a *Account) rateOrOne() decimal.Decimal {
	if a.ExchangeRate.IsPositive() {
		return a.ExchangeRate
	}
	return decimal.NewFromInt(1)
}

// AcceptsCurrency reports whether postings in currency may target this account:
// the currencies match, or the account holds the base currency.
func (a *Account) AcceptsCurrency(currency, base valueobject.Currency) bool {
	return a.Currency == currency || a.Currency == base
}

// ValidateHierarchy checks the parent links across a complete account list
func ValidateHierarchy(accounts []Account) error {
	byID := make(map[uuid.UUID]*Account, len(accounts))
	for i := range accounts {
		if err := accounts[i].Validate(); err != nil {
			return err
		}
		if _, dup := byID[accounts[i].ID]; dup {
			return shared.NewValidationError("duplicate account id %s", accounts[i].ID)
		}
		byID[accounts[i].ID] = &accounts[i]
	}
	for _, a := range accounts {
		if a.ParentID == nil {
			continue
		}
		parent, ok := byID[*a.ParentID]
		if !ok {
			return shared.NewValidationError("account %s references unknown parent %s", a.Name, *a.ParentID)
		}
		if parent.Category != AccountCategoryPrimary {
			return shared.NewValidationError("account %s must have a PRIMARY parent, got %s", a.Name, parent.Category)
		}
	}
	return nil
}

// ParentsWithChildren returns the ids of PRIMARY accounts that have at least one child
func ParentsWithChildren(accounts []Account) map[uuid.UUID]bool {
	primaries := make(map[uuid.UUID]bool)
	for _, a := range accounts {
		if a.Category == AccountCategoryPrimary {
			primaries[a.ID] = true
		}
	}
	out := make(map[uuid.UUID]bool)
	for _, a := range accounts {
		if a.ParentID != nil && primaries[*a.ParentID] {
			out[*a.ParentID] = true
		}
	}
	return out
}

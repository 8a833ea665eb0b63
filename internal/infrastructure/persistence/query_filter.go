package persistence

import (
	"strings"

	"github.com/erp/settlement/internal/domain/shared"
	"gorm.io/gorm"
)

// defaultSortColumn is used whenever the requested column is not allowed
const defaultSortColumn = "created_at"

// sortColumns is the set of columns a list query may be ordered by.
// Requested names are matched exactly so nothing user-supplied reaches the
// ORDER BY clause unchecked.
type sortColumns map[string]struct{}

func newSortColumns(names ...string) sortColumns {
	cols := sortColumns{"id": {}, "created_at": {}, "updated_at": {}}
	for _, n := range names {
		cols[n] = struct{}{}
	}
	return cols
}

// column resolves a requested sort column, falling back to created_at
func (c sortColumns) column(requested string) string {
	requested = strings.TrimSpace(requested)
	if _, ok := c[requested]; ok {
		return requested
	}
	return defaultSortColumn
}

// direction maps anything but "asc" to DESC so the newest rows come first
func direction(requested string) string {
	if strings.EqualFold(strings.TrimSpace(requested), "asc") {
		return "ASC"
	}
	return "DESC"
}

var (
	billSortColumns    = newSortColumns("bill_number", "month", "status", "total_amount", "net_amount", "approved_at")
	requestSortColumns = newSortColumns("request_number", "status", "amount", "approved_at")
	rebateSortColumns  = newSortColumns("month", "active_from", "rebate_amount", "current_balance", "status")
)

// applyFilter orders and pages a query; PageSize 0 returns every row
func applyFilter(query *gorm.DB, filter shared.Filter, allowed sortColumns) *gorm.DB {
	query = query.Order(allowed.column(filter.OrderBy) + " " + direction(filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

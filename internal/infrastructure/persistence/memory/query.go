package memory

import (
	"bytes"
	"slices"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ordering maps a sort field name to a comparator
type ordering[T any] map[string]func(a, b *T) int

// collect returns the values kept by keep in a deterministic order
func collect[T any](m map[uuid.UUID]T, keep func(*T) bool) []T {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v := m[id]
		if keep == nil || keep(&v) {
			out = append(out, v)
		}
	}
	return out
}

// sortAndPage orders items like the SQL repositories do: unknown fields fall
// back to created_at, anything but "asc" sorts descending, PageSize 0 returns all
func sortAndPage[T any](items []T, filter shared.Filter, by ordering[T]) []T {
	compare, ok := by[strings.TrimSpace(filter.OrderBy)]
	if !ok {
		compare = by["created_at"]
	}
	desc := !strings.EqualFold(strings.TrimSpace(filter.OrderDir), "asc")
	slices.SortStableFunc(items, func(a, b T) int {
		if desc {
			return compare(&b, &a)
		}
		return compare(&a, &b)
	})

	if filter.PageSize <= 0 {
		return items
	}
	start := filter.Offset()
	if start >= len(items) {
		return []T{}
	}
	return items[start:min(start+filter.PageSize, len(items))]
}

func compareTime(a, b time.Time) int {
	return a.Compare(b)
}

func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func compareDecimal(a, b decimal.Decimal) int {
	return a.Cmp(b)
}

func containsFold(search string, fields ...string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

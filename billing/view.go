// view.go - Pure projections of the invoice collection.
//
// Sort, Filter, and Project are synchronous, side-effect free, and never
// touch the store. They always return a fresh slice; the input is never
// reordered or mutated. Sort runs before Filter so ties within a status
// group keep the requested order.
package billing

import (
	"sort"
	"strings"
)

// =============================================================================
// SORT
// =============================================================================

type SortKey string

const (
	SortDateAsc    SortKey = "date_asc"
	SortDateDesc   SortKey = "date_desc"
	SortAmountAsc  SortKey = "amount_asc"
	SortAmountDesc SortKey = "amount_desc"
)

// Sort returns a stably sorted copy of invoices. An unrecognized key is
// identity: the copy keeps the input order. Sort never errors.
func Sort(invoices []Invoice, key SortKey) []Invoice {
	out := make([]Invoice, len(invoices))
	copy(out, invoices)

	var less func(a, b Invoice) bool
	switch key {
	case SortDateAsc:
		less = func(a, b Invoice) bool { return a.Date.Before(b.Date) }
	case SortDateDesc:
		less = func(a, b Invoice) bool { return b.Date.Before(a.Date) }
	case SortAmountAsc:
		less = func(a, b Invoice) bool { return a.Amount.LessThan(b.Amount) }
	case SortAmountDesc:
		less = func(a, b Invoice) bool { return b.Amount.LessThan(a.Amount) }
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// =============================================================================
// FILTER
// =============================================================================

type StatusFilter string

const (
	FilterAll    StatusFilter = "all"
	FilterPaid   StatusFilter = "paid"
	FilterUnpaid StatusFilter = "unpaid"
)

// Filter returns a copy of invoices whose status matches f,
// case-insensitively. FilterAll passes every record through.
func Filter(invoices []Invoice, f StatusFilter) []Invoice {
	if strings.EqualFold(string(f), string(FilterAll)) {
		out := make([]Invoice, len(invoices))
		copy(out, invoices)
		return out
	}
	out := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if strings.EqualFold(string(inv.Status), string(f)) {
			out = append(out, inv)
		}
	}
	return out
}

// =============================================================================
// PROJECT
// =============================================================================

// Project is the displayed view: sort first, then filter.
func Project(invoices []Invoice, key SortKey, f StatusFilter) []Invoice {
	return Filter(Sort(invoices, key), f)
}

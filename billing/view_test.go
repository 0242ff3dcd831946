package billing_test

import (
	"testing"
	"time"

	"github.com/landflow/billing-engine/billing"
	"github.com/shopspring/decimal"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func inv(id int64, client string, amount float64, date string, status billing.Status) billing.Invoice {
	d, err := billing.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return billing.Invoice{
		ID:     billing.InvoiceID(id),
		Client: client,
		Amount: decimal.NewFromFloat(amount),
		Date:   d,
		Status: status,
		Owner:  "user-1",
	}
}

func ids(invoices []billing.Invoice) []int64 {
	out := make([]int64, len(invoices))
	for i, v := range invoices {
		out[i] = int64(v.ID)
	}
	return out
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sampleInvoices() []billing.Invoice {
	return []billing.Invoice{
		inv(1, "Acme", 150.50, "2025-06-01", billing.StatusUnpaid),
		inv(2, "Globex", 75.00, "2025-05-10", billing.StatusPaid),
		inv(3, "Initech", 300.00, "2025-07-20", billing.StatusUnpaid),
		inv(4, "Umbrella", 75.00, "2025-04-02", billing.StatusPaid),
	}
}

// =============================================================================
// SORT TESTS
// =============================================================================

func TestSort_ByDate(t *testing.T) {
	// GIVEN: Invoices with mixed dates
	// WHEN: Sorting ascending and descending
	// THEN: Calendar order in both directions

	xs := sampleInvoices()

	asc := billing.Sort(xs, billing.SortDateAsc)
	if !sameIDs(ids(asc), []int64{4, 2, 1, 3}) {
		t.Errorf("date_asc: got ids %v", ids(asc))
	}

	desc := billing.Sort(xs, billing.SortDateDesc)
	if !sameIDs(ids(desc), []int64{3, 1, 2, 4}) {
		t.Errorf("date_desc: got ids %v", ids(desc))
	}
}

func TestSort_ByAmount_Stable(t *testing.T) {
	// GIVEN: Two invoices with the same amount (ids 2 and 4)
	// WHEN: Sorting by amount ascending
	// THEN: The tie keeps input order (2 before 4)

	xs := sampleInvoices()
	got := billing.Sort(xs, billing.SortAmountAsc)
	if !sameIDs(ids(got), []int64{2, 4, 1, 3}) {
		t.Errorf("amount_asc: got ids %v", ids(got))
	}
}

func TestSort_IsTotalFunctionOfKey(t *testing.T) {
	// GIVEN: Any collection
	// WHEN: Sorting date_desc then re-sorting that result date_asc
	// THEN: Identical to sorting date_asc directly

	xs := sampleInvoices()
	direct := billing.Sort(xs, billing.SortDateAsc)
	chained := billing.Sort(billing.Sort(xs, billing.SortDateDesc), billing.SortDateAsc)
	if !sameIDs(ids(direct), ids(chained)) {
		t.Errorf("chained sort diverged: direct %v, chained %v", ids(direct), ids(chained))
	}
}

func TestSort_UnrecognizedKeyIsIdentity(t *testing.T) {
	xs := sampleInvoices()
	got := billing.Sort(xs, billing.SortKey("client_asc"))
	if !sameIDs(ids(got), ids(xs)) {
		t.Errorf("unknown key reordered: got ids %v", ids(got))
	}
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	xs := sampleInvoices()
	before := ids(xs)
	_ = billing.Sort(xs, billing.SortAmountDesc)
	if !sameIDs(before, ids(xs)) {
		t.Errorf("input mutated: now %v", ids(xs))
	}
}

// =============================================================================
// FILTER TESTS
// =============================================================================

func TestFilter_PartitionsCollection(t *testing.T) {
	// GIVEN: Any collection
	// WHEN: Filtering paid and unpaid separately
	// THEN: Their union is exactly filter "all" - no duplicates, no omissions

	xs := sampleInvoices()
	all := billing.Filter(xs, billing.FilterAll)
	paid := billing.Filter(xs, billing.FilterPaid)
	unpaid := billing.Filter(xs, billing.FilterUnpaid)

	if len(paid)+len(unpaid) != len(all) {
		t.Fatalf("partition size mismatch: %d + %d != %d", len(paid), len(unpaid), len(all))
	}
	seen := make(map[billing.InvoiceID]bool)
	for _, v := range append(paid, unpaid...) {
		if seen[v.ID] {
			t.Errorf("invoice %d appears in both partitions", v.ID)
		}
		seen[v.ID] = true
	}
	for _, v := range all {
		if !seen[v.ID] {
			t.Errorf("invoice %d missing from both partitions", v.ID)
		}
	}
}

func TestFilter_CaseInsensitive(t *testing.T) {
	xs := sampleInvoices()
	got := billing.Filter(xs, billing.StatusFilter("PAID"))
	if !sameIDs(ids(got), []int64{2, 4}) {
		t.Errorf("uppercase filter: got ids %v", ids(got))
	}
}

func TestFilter_AllPassesEverythingThrough(t *testing.T) {
	xs := sampleInvoices()
	got := billing.Filter(xs, billing.FilterAll)
	if !sameIDs(ids(got), ids(xs)) {
		t.Errorf("filter all changed the collection: got ids %v", ids(got))
	}
}

// =============================================================================
// PROJECT TESTS
// =============================================================================

func TestProject_SortsBeforeFiltering(t *testing.T) {
	// GIVEN: invA(amount=10, paid), invB(amount=20, unpaid)
	// WHEN: Projecting amount_desc, unpaid
	// THEN: [invB]

	xs := []billing.Invoice{
		inv(1, "A", 10, "2025-01-01", billing.StatusPaid),
		inv(2, "B", 20, "2025-01-02", billing.StatusUnpaid),
	}
	got := billing.Project(xs, billing.SortAmountDesc, billing.FilterUnpaid)
	if !sameIDs(ids(got), []int64{2}) {
		t.Errorf("got ids %v", ids(got))
	}
}

func TestProject_IsPure(t *testing.T) {
	// GIVEN: The same inputs
	// WHEN: Projecting twice
	// THEN: Identical output, input untouched

	xs := sampleInvoices()
	before := ids(xs)

	first := billing.Project(xs, billing.SortDateDesc, billing.FilterUnpaid)
	second := billing.Project(xs, billing.SortDateDesc, billing.FilterUnpaid)

	if !sameIDs(ids(first), ids(second)) {
		t.Errorf("projection not deterministic: %v vs %v", ids(first), ids(second))
	}
	if !sameIDs(before, ids(xs)) {
		t.Errorf("projection mutated its input: now %v", ids(xs))
	}
}

func TestProject_TiesKeepRequestedOrder(t *testing.T) {
	// GIVEN: Paid invoices with equal amounts but distinct dates
	// WHEN: Projecting date_desc, paid
	// THEN: Ties within the status group retain the sort order

	xs := sampleInvoices()
	got := billing.Project(xs, billing.SortDateDesc, billing.FilterPaid)
	if !sameIDs(ids(got), []int64{2, 4}) {
		t.Errorf("got ids %v", ids(got))
	}
}

// Date comparison is by calendar value, not by timestamp.
func TestDate_CalendarComparison(t *testing.T) {
	a := billing.Date{Time: time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)}
	b := billing.Date{Time: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	if !a.Equal(b) {
		t.Error("same calendar day compared unequal")
	}
}

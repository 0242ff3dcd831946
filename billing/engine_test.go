package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/landflow/billing-engine/billing"
	"github.com/landflow/billing-engine/billing/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// countingStore wraps the memory store and records how often each store
// operation is reached. gate, when set, blocks Update calls until released
// so tests can interleave a session Close with an in-flight write.
type countingStore struct {
	*store.Memory

	mu      sync.Mutex
	inserts int
	updates int
	deletes int
	gate    chan struct{}
}

func (c *countingStore) Insert(ctx context.Context, owner billing.OwnerID, draft billing.Validated) (billing.Invoice, error) {
	c.mu.Lock()
	c.inserts++
	c.mu.Unlock()
	return c.Memory.Insert(ctx, owner, draft)
}

func (c *countingStore) Update(ctx context.Context, id billing.InvoiceID, owner billing.OwnerID, patch billing.Patch) (billing.Invoice, error) {
	c.mu.Lock()
	c.updates++
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return c.Memory.Update(ctx, id, owner, patch)
}

func (c *countingStore) Delete(ctx context.Context, id billing.InvoiceID, owner billing.OwnerID) error {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.Memory.Delete(ctx, id, owner)
}

func (c *countingStore) updateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates
}

func newTestSession(t *testing.T) (*billing.Session, *countingStore) {
	t.Helper()
	cs := &countingStore{Memory: store.NewMemory()}
	cs.SetUser(&billing.User{ID: "user-1", Email: "owner@example.com"})

	s, err := billing.OpenSession(context.Background(), cs)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s, cs
}

func acmeDraft() billing.Draft {
	return billing.Draft{Client: "Acme", Amount: "150.5", Date: "2025-06-01"}
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestOpenSession_NoIdentity_Unauthenticated(t *testing.T) {
	// GIVEN: A store with no signed-in user
	// WHEN: Opening a session
	// THEN: ErrUnauthenticated, no session

	m := store.NewMemory()
	_, err := billing.OpenSession(context.Background(), m)
	if !errors.Is(err, billing.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_LifecycleScenario(t *testing.T) {
	// GIVEN: A fresh session
	// WHEN: create {Acme, 150.5, 2025-06-01} -> markPaid -> delete
	// THEN: Unpaid with generated id, then Paid, then absent from list

	s, cs := newTestSession(t)
	ctx := context.Background()

	inv, err := s.Create(ctx, acmeDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.ID == 0 {
		t.Error("expected store-assigned id")
	}
	if inv.Status != billing.StatusUnpaid {
		t.Errorf("expected Unpaid on creation, got %s", inv.Status)
	}
	if inv.Owner != "user-1" {
		t.Errorf("expected owner scoping, got %q", inv.Owner)
	}

	paid, err := s.MarkPaid(ctx, inv.ID)
	if err != nil {
		t.Fatalf("markPaid: %v", err)
	}
	if paid.Status != billing.StatusPaid {
		t.Errorf("expected Paid, got %s", paid.Status)
	}

	if err := s.Delete(ctx, inv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rows, err := cs.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected empty list after delete, got %d rows", len(rows))
	}
	if len(s.Snapshot()) != 0 {
		t.Errorf("expected empty snapshot after delete, got %d rows", len(s.Snapshot()))
	}
}

func TestCreate_EmptyClient_FailsBeforeStore(t *testing.T) {
	// GIVEN: A draft with client=""
	// WHEN: Creating
	// THEN: ErrValidation and the store is never called

	s, cs := newTestSession(t)

	_, err := s.Create(context.Background(), billing.Draft{Client: "", Amount: "10", Date: "2025-01-01"})
	if !errors.Is(err, billing.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if cs.inserts != 0 {
		t.Errorf("store reached %d times for an invalid draft", cs.inserts)
	}
}

func TestCreate_BadAmounts_Rejected(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	for _, amount := range []string{"", "abc", "-5"} {
		_, err := s.Create(ctx, billing.Draft{Client: "Acme", Amount: amount, Date: "2025-01-01"})
		if !errors.Is(err, billing.ErrValidation) {
			t.Errorf("amount %q: expected ErrValidation, got %v", amount, err)
		}
	}
}

func TestCreate_PendingPlaceholderClearedAfterConfirmation(t *testing.T) {
	s, _ := newTestSession(t)
	if _, err := s.Create(context.Background(), acmeDraft()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n := len(s.PendingCreates()); n != 0 {
		t.Errorf("expected no pending creates after confirmation, got %d", n)
	}
}

// =============================================================================
// UPDATE / MARK PAID
// =============================================================================

func TestUpdate_NonexistentID_CollectionUnchanged(t *testing.T) {
	// GIVEN: A session with one invoice
	// WHEN: Updating an id that matches no row
	// THEN: ErrNotFound and the snapshot is unchanged

	s, _ := newTestSession(t)
	ctx := context.Background()
	if _, err := s.Create(ctx, acmeDraft()); err != nil {
		t.Fatalf("create: %v", err)
	}
	before := s.Snapshot()

	client := "Nobody"
	_, err := s.Update(ctx, 9999, billing.Patch{Client: &client})
	if !errors.Is(err, billing.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	after := s.Snapshot()
	if len(before) != len(after) {
		t.Fatalf("collection size changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("record %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestUpdate_FieldsMutableWhilePaid(t *testing.T) {
	// Client/amount/date stay editable after the Paid transition.
	s, _ := newTestSession(t)
	ctx := context.Background()

	inv, err := s.Create(ctx, acmeDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.MarkPaid(ctx, inv.ID); err != nil {
		t.Fatalf("markPaid: %v", err)
	}

	client := "Acme Corp"
	got, err := s.Update(ctx, inv.ID, billing.Patch{Client: &client})
	if err != nil {
		t.Fatalf("update after paid: %v", err)
	}
	if got.Client != "Acme Corp" || got.Status != billing.StatusPaid {
		t.Errorf("got %+v", got)
	}
}

func TestUpdate_PaidToUnpaid_Rejected(t *testing.T) {
	// The reversal is deliberately unsupported.
	s, _ := newTestSession(t)
	ctx := context.Background()

	inv, err := s.Create(ctx, acmeDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.MarkPaid(ctx, inv.ID); err != nil {
		t.Fatalf("markPaid: %v", err)
	}

	unpaid := billing.StatusUnpaid
	_, err = s.Update(ctx, inv.ID, billing.Patch{Status: &unpaid})
	if !errors.Is(err, billing.ErrValidation) {
		t.Fatalf("expected ErrValidation for Paid -> Unpaid, got %v", err)
	}
}

func TestMarkPaid_Idempotent(t *testing.T) {
	// GIVEN: A paid invoice
	// WHEN: Marking it paid again
	// THEN: No-op success, no second store round-trip

	s, cs := newTestSession(t)
	ctx := context.Background()

	inv, err := s.Create(ctx, acmeDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.MarkPaid(ctx, inv.ID); err != nil {
		t.Fatalf("first markPaid: %v", err)
	}
	updatesAfterFirst := cs.updateCount()

	again, err := s.MarkPaid(ctx, inv.ID)
	if err != nil {
		t.Fatalf("second markPaid: %v", err)
	}
	if again.Status != billing.StatusPaid {
		t.Errorf("expected Paid, got %s", again.Status)
	}
	if cs.updateCount() != updatesAfterFirst {
		t.Errorf("second markPaid reached the store")
	}
}

func TestMarkPaid_DoubleClick_SingleStoreWrite(t *testing.T) {
	// GIVEN: Two concurrent markPaid calls for the same id
	// WHEN: Both resolve
	// THEN: The per-id guard serializes them and only one reaches the store

	s, cs := newTestSession(t)
	ctx := context.Background()

	inv, err := s.Create(ctx, acmeDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.MarkPaid(ctx, inv.ID); err != nil {
				t.Errorf("markPaid: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := cs.updateCount(); got != 1 {
		t.Errorf("expected exactly 1 store update, got %d", got)
	}
}

// =============================================================================
// SESSION CLOSE - Stale results are discarded
// =============================================================================

func TestClose_InFlightResultDiscarded(t *testing.T) {
	// GIVEN: An update blocked inside the store
	// WHEN: The session closes before the store resolves
	// THEN: The late result is not applied to the collection

	s, cs := newTestSession(t)
	ctx := context.Background()

	inv, err := s.Create(ctx, acmeDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cs.mu.Lock()
	cs.gate = make(chan struct{})
	cs.mu.Unlock()

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		client := "Late Result"
		close(started)
		_, _ = s.Update(ctx, inv.ID, billing.Patch{Client: &client})
	}()

	<-started
	s.Close()
	close(cs.gate)
	<-done

	// The store applied the write; the closed session must not have.
	rows, _ := cs.List(ctx, "user-1")
	if rows[0].Client != "Late Result" {
		t.Fatalf("store row unexpectedly %q", rows[0].Client)
	}
	snap := s.Snapshot()
	if snap[0].Client != "Acme" {
		t.Errorf("stale result applied to closed session: %q", snap[0].Client)
	}
}

func TestClose_NewOperationsRejected(t *testing.T) {
	s, _ := newTestSession(t)
	s.Close()

	_, err := s.Create(context.Background(), acmeDraft())
	if !errors.Is(err, billing.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

// =============================================================================
// OWNER SCOPING
// =============================================================================

func TestSessions_DoNotSeeEachOthersInvoices(t *testing.T) {
	// GIVEN: Two owners sharing one store
	// WHEN: Owner A creates an invoice
	// THEN: Owner B's session cannot see or delete it

	m := store.NewMemory()
	ctx := context.Background()

	m.SetUser(&billing.User{ID: "owner-a"})
	a, err := billing.OpenSession(ctx, m)
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	inv, err := a.Create(ctx, acmeDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	m.SetUser(&billing.User{ID: "owner-b"})
	b, err := billing.OpenSession(ctx, m)
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	if len(b.Snapshot()) != 0 {
		t.Errorf("owner-b sees owner-a rows")
	}
	if err := b.Delete(ctx, inv.ID); !errors.Is(err, billing.ErrNotFound) {
		t.Errorf("cross-owner delete: expected ErrNotFound, got %v", err)
	}
}

/*
engine.go - Session-scoped invoice operations

PURPOSE:
  The Session owns one user's in-memory invoice collection and every
  mutation of it: create, update, mark-paid, delete. It validates input
  locally, calls the record store, and only applies confirmed server
  state to the collection.

SESSION MODEL:
  One Session per user session. Opening a session resolves the
  authenticated owner and fetches that owner's invoices. No shared
  mutable state exists across sessions.

CONSISTENCY RULES:
  - No optimistic mutation: the collection is not touched until the
    store call resolves. The one exception is the pending-create
    placeholder, visible only through PendingCreates and removed on
    confirmation or failure.
  - Per-id serialization: two in-flight mutations of the same invoice
    id cannot interleave (a lock table keyed by id absorbs the
    double-click case).
  - Close discards: a store result that resolves after Close is
    returned to the caller but never applied to the collection, so a
    stale write cannot corrupt the user's next view.

SEE ALSO:
  - store.go: RecordStore contract (the only suspension points)
  - view.go: Read-side projections over Snapshot()
*/
package billing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is one user's view of their invoices plus the operations that
// mutate it. Safe for concurrent use.
type Session struct {
	id    string
	store RecordStore
	owner OwnerID
	log   *slog.Logger

	mu       sync.Mutex
	invoices []Invoice
	creates  []pendingCreate
	closed   bool

	locks lockTable
}

type pendingCreate struct {
	op    string
	draft Draft
}

// OpenSession resolves the authenticated owner and loads their invoices.
// Returns ErrUnauthenticated when no identity is established.
func OpenSession(ctx context.Context, store RecordStore) (*Session, error) {
	user, err := store.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	s := &Session{
		id:    uuid.NewString(),
		store: store,
		owner: user.ID,
		log:   slog.Default(),
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session identifier, used for log correlation.
func (s *Session) ID() string { return s.id }

// Owner returns the authenticated owner this session is scoped to.
func (s *Session) Owner() OwnerID { return s.owner }

// Close marks the session stale. Operations already in flight complete
// against the store, but their results are no longer applied locally.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Refresh replaces the collection with the store's current rows.
func (s *Session) Refresh(ctx context.Context) error {
	rows, err := s.store.List(ctx, s.owner)
	if err != nil {
		s.log.Error("invoice list failed", "session", s.id, "error", err)
		return fmt.Errorf("list invoices: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.invoices = rows
	return nil
}

// =============================================================================
// READ SIDE
// =============================================================================

// Snapshot returns a copy of the confirmed collection, insertion-ordered.
// Feed it to Sort/Filter/Project.
func (s *Session) Snapshot() []Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Invoice, len(s.invoices))
	copy(out, s.invoices)
	return out
}

// PendingCreates returns the drafts currently in flight, oldest first.
// The presentation layer may render these as placeholder rows.
func (s *Session) PendingCreates() []Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Draft, len(s.creates))
	for i, p := range s.creates {
		out[i] = p.draft
	}
	return out
}

// Get returns the locally held invoice for id.
func (s *Session) Get(id InvoiceID) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.invoices[i], nil
	}
	return Invoice{}, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create validates the draft, inserts it, and appends the authoritative
// row (with the store-assigned id) to the collection. Validation failures
// never reach the store.
func (s *Session) Create(ctx context.Context, draft Draft) (Invoice, error) {
	if err := s.ensureOpen(); err != nil {
		return Invoice{}, err
	}

	validated, err := draft.Validate()
	if err != nil {
		return Invoice{}, err
	}

	op := s.trackCreate(draft)
	inv, err := s.store.Insert(ctx, s.owner, validated)
	s.untrackCreate(op)
	if err != nil {
		s.log.Error("invoice create failed", "session", s.id, "error", err)
		return Invoice{}, fmt.Errorf("insert invoice: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.invoices = append(s.invoices, inv)
	}
	return inv, nil
}

// Update sends the patch to the store scoped to (id, owner) and merges
// the returned authoritative row into the collection. On any failure the
// collection is left unchanged.
func (s *Session) Update(ctx context.Context, id InvoiceID, patch Patch) (Invoice, error) {
	if err := s.ensureOpen(); err != nil {
		return Invoice{}, err
	}

	unlock := s.locks.acquire(id)
	defer unlock()

	if err := patch.validate(s.localStatus(id)); err != nil {
		return Invoice{}, err
	}

	inv, err := s.store.Update(ctx, id, s.owner, patch)
	if err != nil {
		if !IsClientError(err) {
			s.log.Error("invoice update failed", "session", s.id, "invoice", id, "error", err)
		}
		return Invoice{}, fmt.Errorf("update invoice %d: %w", id, err)
	}

	s.apply(inv)
	return inv, nil
}

// MarkPaid transitions the invoice to Paid. Calling it on an already-Paid
// invoice is a no-op success: no store round-trip, no error.
func (s *Session) MarkPaid(ctx context.Context, id InvoiceID) (Invoice, error) {
	if err := s.ensureOpen(); err != nil {
		return Invoice{}, err
	}

	unlock := s.locks.acquire(id)
	defer unlock()

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 && s.invoices[i].Status == StatusPaid {
		inv := s.invoices[i]
		s.mu.Unlock()
		return inv, nil
	}
	s.mu.Unlock()

	paid := StatusPaid
	inv, err := s.store.Update(ctx, id, s.owner, Patch{Status: &paid})
	if err != nil {
		if !IsClientError(err) {
			s.log.Error("invoice mark-paid failed", "session", s.id, "invoice", id, "error", err)
		}
		return Invoice{}, fmt.Errorf("mark invoice %d paid: %w", id, err)
	}

	s.apply(inv)
	return inv, nil
}

// Delete removes the row from the store, then from the collection. The
// local record is only removed after the store confirms.
func (s *Session) Delete(ctx context.Context, id InvoiceID) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}

	unlock := s.locks.acquire(id)
	defer unlock()

	if err := s.store.Delete(ctx, id, s.owner); err != nil {
		if !IsClientError(err) {
			s.log.Error("invoice delete failed", "session", s.id, "invoice", id, "error", err)
		}
		return fmt.Errorf("delete invoice %d: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if i := s.indexOf(id); i >= 0 {
		s.invoices = append(s.invoices[:i], s.invoices[i+1:]...)
	}
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Session) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == "" {
		return ErrUnauthenticated
	}
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// indexOf requires s.mu held.
func (s *Session) indexOf(id InvoiceID) int {
	for i, inv := range s.invoices {
		if inv.ID == id {
			return i
		}
	}
	return -1
}

// localStatus returns the locally known status for id, or the zero value
// when the row is not held locally (the store then decides not-found).
func (s *Session) localStatus(id InvoiceID) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.invoices[i].Status
	}
	return ""
}

// apply replaces the local record with the authoritative row, unless the
// session closed while the store call was in flight.
func (s *Session) apply(inv Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if i := s.indexOf(inv.ID); i >= 0 {
		s.invoices[i] = inv
	}
}

func (s *Session) trackCreate(draft Draft) string {
	op := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, pendingCreate{op: op, draft: draft})
	return op
}

func (s *Session) untrackCreate(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.creates {
		if p.op == op {
			s.creates = append(s.creates[:i], s.creates[i+1:]...)
			return
		}
	}
}

// =============================================================================
// LOCK TABLE - Per-invoice serialization
// =============================================================================

// lockTable hands out one mutex per invoice id so mutations of the same
// id run one at a time. Entries live for the session's lifetime.
type lockTable struct {
	mu    sync.Mutex
	locks map[InvoiceID]*sync.Mutex
}

func (lt *lockTable) acquire(id InvoiceID) (unlock func()) {
	lt.mu.Lock()
	if lt.locks == nil {
		lt.locks = make(map[InvoiceID]*sync.Mutex)
	}
	l, ok := lt.locks[id]
	if !ok {
		l = &sync.Mutex{}
		lt.locks[id] = l
	}
	lt.mu.Unlock()

	l.Lock()
	return l.Unlock
}

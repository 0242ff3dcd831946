/*
store.go - Record store contract for invoice persistence

PURPOSE:
  Defines the narrow interface between the engine and the remote
  relational table. Different implementations can use SQLite,
  PostgreSQL, or in-memory storage.

OWNER SCOPING CONTRACT:
  Every read and write is scoped to the owner the engine passes in.
  A mutation that matches zero rows (wrong id OR wrong owner) reports
  ErrNotFound; the store never reveals whether the row exists under a
  different owner.

ID AUTHORITY:
  Insert assigns the id server-side and returns the authoritative row.
  The engine never synthesizes ids.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - billing/store: In-memory store for testing

SEE ALSO:
  - engine.go: The only consumer of this interface
*/
package billing

import "context"

// =============================================================================
// CREDENTIAL CONTEXT - How callers hand their credential to CurrentUser
// =============================================================================

type credentialKey struct{}

// WithCredential attaches the caller's credential (e.g. a bearer token) to
// the context. Store implementations resolve it in CurrentUser.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey{}, credential)
}

// CredentialFromContext returns the attached credential, if any.
func CredentialFromContext(ctx context.Context) (string, bool) {
	c, ok := ctx.Value(credentialKey{}).(string)
	return c, ok && c != ""
}

// RecordStore is the persistence boundary for invoices.
type RecordStore interface {
	// CurrentUser resolves the authenticated identity for this context.
	// Returns ErrUnauthenticated when none is established.
	CurrentUser(ctx context.Context) (User, error)

	// List returns all invoices belonging to owner.
	// Returns ErrStore on transport failure.
	List(ctx context.Context, owner OwnerID) ([]Invoice, error)

	// Insert persists a new invoice for owner and returns the
	// authoritative row with the server-assigned id.
	// Returns ErrStore or ErrValidation (constraint violation).
	Insert(ctx context.Context, owner OwnerID, draft Validated) (Invoice, error)

	// Update applies patch to the row matching (id, owner) and returns
	// the updated row. Returns ErrNotFound when zero rows matched,
	// ErrStore on transport failure.
	Update(ctx context.Context, id InvoiceID, owner OwnerID, patch Patch) (Invoice, error)

	// Delete removes the row matching (id, owner). Returns ErrNotFound
	// when zero rows matched, ErrStore on transport failure.
	Delete(ctx context.Context, id InvoiceID, owner OwnerID) error
}

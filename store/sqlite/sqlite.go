/*
Package sqlite provides a SQLite-backed implementation of billing.RecordStore.

PURPOSE:
  Implements the record store contract over a relational invoices table.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

OWNER SCOPING:
  Every statement filters on user_id. A mutation that matches zero rows
  reports billing.ErrNotFound whether the id is wrong or belongs to
  someone else; the store never distinguishes the two.

IDENTITY:
  CurrentUser resolves the credential attached to the context (see
  billing.WithCredential) against the users table. Tokens are opaque;
  issuing them is outside this package.

ID AUTHORITY:
  The invoices table is INTEGER PRIMARY KEY; SQLite assigns ids on
  insert and Insert returns the authoritative row.

AMOUNTS:
  Stored as exact decimal text, never as floating point.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/invoices.db")   // ":memory:" for tests
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - billing/store.go: Interface definition and error contract
  - billing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/landflow/billing-engine/billing"
)

// Store implements billing.RecordStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		api_token TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client TEXT NOT NULL CHECK (client <> ''),
		amount TEXT NOT NULL CHECK (CAST(amount AS NUMERIC) >= 0),
		date TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('Unpaid', 'Paid')),
		user_id TEXT NOT NULL REFERENCES users(id)
	);

	-- Every query is owner-scoped; this is the hot path.
	CREATE INDEX IF NOT EXISTS idx_invoices_user ON invoices(user_id);
	CREATE INDEX IF NOT EXISTS idx_users_token ON users(api_token);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// IDENTITY
// =============================================================================

// CurrentUser resolves the context credential against the users table.
func (s *Store) CurrentUser(ctx context.Context) (billing.User, error) {
	token, ok := billing.CredentialFromContext(ctx)
	if !ok {
		return billing.User{}, billing.ErrUnauthenticated
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var u billing.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email FROM users WHERE api_token = ?`, token,
	).Scan(&u.ID, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.User{}, billing.ErrUnauthenticated
	}
	if err != nil {
		return billing.User{}, storeErr("resolve user", err)
	}
	return u, nil
}

// EnsureUser creates a user with the given token if the email is not
// already registered, and returns the user's id either way. Used for dev
// seeding and tests.
func (s *Store) EnsureUser(ctx context.Context, email, token string) (billing.OwnerID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&id)
	if err == nil {
		return billing.OwnerID(id), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", storeErr("lookup user", err)
	}

	id = uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, api_token) VALUES (?, ?, ?)`, id, email, token,
	); err != nil {
		return "", storeErr("create user", err)
	}
	return billing.OwnerID(id), nil
}

// =============================================================================
// INVOICES
// =============================================================================

const invoiceColumns = `id, client, amount, date, status, user_id`

func (s *Store) List(ctx context.Context, owner billing.OwnerID) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE user_id = ? ORDER BY id`, string(owner))
	if err != nil {
		return nil, storeErr("list invoices", err)
	}
	defer rows.Close()

	var out []billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, storeErr("scan invoice", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list invoices", err)
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, owner billing.OwnerID, draft billing.Validated) (billing.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO invoices (client, amount, date, status, user_id) VALUES (?, ?, ?, ?, ?)`,
		draft.Client, draft.Amount.String(), draft.Date.String(), string(billing.StatusUnpaid), string(owner))
	if err != nil {
		if isConstraintViolation(err) {
			return billing.Invoice{}, fmt.Errorf("insert invoice: %w", billing.ErrValidation)
		}
		return billing.Invoice{}, storeErr("insert invoice", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return billing.Invoice{}, storeErr("insert invoice", err)
	}
	return s.readRow(ctx, billing.InvoiceID(id), owner)
}

func (s *Store) Update(ctx context.Context, id billing.InvoiceID, owner billing.OwnerID, patch billing.Patch) (billing.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, args := buildPatch(patch)
	if len(set) == 0 {
		return s.readRow(ctx, id, owner)
	}
	args = append(args, int64(id), string(owner))

	res, err := s.db.ExecContext(ctx,
		`UPDATE invoices SET `+strings.Join(set, ", ")+` WHERE id = ? AND user_id = ?`, args...)
	if err != nil {
		if isConstraintViolation(err) {
			return billing.Invoice{}, fmt.Errorf("update invoice: %w", billing.ErrValidation)
		}
		return billing.Invoice{}, storeErr("update invoice", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return billing.Invoice{}, storeErr("update invoice", err)
	}
	if n == 0 {
		return billing.Invoice{}, billing.ErrNotFound
	}
	return s.readRow(ctx, id, owner)
}

func (s *Store) Delete(ctx context.Context, id billing.InvoiceID, owner billing.OwnerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM invoices WHERE id = ? AND user_id = ?`, int64(id), string(owner))
	if err != nil {
		return storeErr("delete invoice", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete invoice", err)
	}
	if n == 0 {
		return billing.ErrNotFound
	}
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

// readRow requires s.mu held (read or write).
func (s *Store) readRow(ctx context.Context, id billing.InvoiceID, owner billing.OwnerID) (billing.Invoice, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ? AND user_id = ?`, int64(id), string(owner))
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Invoice{}, billing.ErrNotFound
	}
	if err != nil {
		return billing.Invoice{}, storeErr("read invoice", err)
	}
	return inv, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row scanner) (billing.Invoice, error) {
	var (
		inv    billing.Invoice
		amount string
		date   string
		status string
		owner  string
	)
	if err := row.Scan(&inv.ID, &inv.Client, &amount, &date, &status, &owner); err != nil {
		return billing.Invoice{}, err
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return billing.Invoice{}, fmt.Errorf("amount %q: %w", amount, err)
	}
	day, err := billing.ParseDate(date)
	if err != nil {
		return billing.Invoice{}, fmt.Errorf("date %q: %w", date, err)
	}

	inv.Amount = d
	inv.Date = day
	inv.Status = billing.Status(status)
	inv.Owner = billing.OwnerID(owner)
	return inv, nil
}

func buildPatch(patch billing.Patch) (set []string, args []any) {
	if patch.Client != nil {
		set = append(set, "client = ?")
		args = append(args, *patch.Client)
	}
	if patch.Amount != nil {
		set = append(set, "amount = ?")
		args = append(args, patch.Amount.String())
	}
	if patch.Date != nil {
		set = append(set, "date = ?")
		args = append(args, patch.Date.String())
	}
	if patch.Status != nil {
		set = append(set, "status = ?")
		args = append(args, string(*patch.Status))
	}
	return set, args
}

func isConstraintViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, billing.ErrStore, err)
}

/*
Package billing provides the invoice lifecycle engine.

PURPOSE:
  This package contains the core types and rules for invoice management:
  how an invoice is created, edited, moved between payment states, and
  projected into the views an operator sees. It owns the state machine;
  persistence and rendering live behind narrow interfaces.

KEY CONCEPTS IN THIS FILE (types.go):
  - Invoice: The sole stateful entity, always owned by one user
  - Status: Two-state payment lifecycle (Unpaid -> Paid, forward only)
  - Date: A calendar date (invoice date, not necessarily today)
  - Draft/Patch: Input shapes for create and partial update

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for money, never float64
  2. Store authority: The record store assigns ids; the engine never does
  3. Owner scoping: Every record carries its owner; the store enforces it

SEE ALSO:
  - engine.go: Session-scoped create/update/transition/delete operations
  - view.go: Pure sort/filter projections
  - store.go: RecordStore contract
  - errors.go: Error taxonomy
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// InvoiceID is assigned by the record store on insert and immutable after.
type InvoiceID int64

// OwnerID identifies the authenticated user an invoice belongs to.
type OwnerID string

// User is the authenticated identity resolved by the record store.
type User struct {
	ID    OwnerID
	Email string
}

// =============================================================================
// STATUS - Two-state payment lifecycle
// =============================================================================

type Status string

const (
	StatusUnpaid Status = "Unpaid"
	StatusPaid   Status = "Paid"
)

// Valid reports whether s is one of the two known payment states.
func (s Status) Valid() bool {
	return s == StatusUnpaid || s == StatusPaid
}

// =============================================================================
// DATE - Calendar date (day granularity, UTC)
// =============================================================================

// Date is a calendar date. The wire format is ISO "2006-01-02".
type Date struct {
	Time time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) Before(other Date) bool { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool  { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool  { return d.normalize().Equal(other.normalize()) }
func (d Date) IsZero() bool           { return d.Time.IsZero() }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string { return d.Time.Format(dateLayout) }

// =============================================================================
// INVOICE - The stateful entity
// =============================================================================

type Invoice struct {
	ID     InvoiceID
	Client string
	Amount decimal.Decimal
	Date   Date
	Status Status
	Owner  OwnerID
}

// =============================================================================
// DRAFT - Input for Create
// =============================================================================

// Draft carries the raw create form: all three fields arrive as text and
// are validated before anything is sent to the store.
type Draft struct {
	Client string
	Amount string
	Date   string
}

// Validated is a Draft that passed validation: amount parsed to an exact
// decimal, date parsed to a calendar date. A created invoice always starts
// StatusUnpaid; the draft does not carry a status.
type Validated struct {
	Client string
	Amount decimal.Decimal
	Date   Date
}

// Validate checks the draft per the create rules: every field present and
// non-empty, amount a non-negative number, date a real calendar date.
func (d Draft) Validate() (Validated, error) {
	if d.Client == "" {
		return Validated{}, &ValidationError{Field: "client", Reason: "required"}
	}
	if d.Amount == "" {
		return Validated{}, &ValidationError{Field: "amount", Reason: "required"}
	}
	if d.Date == "" {
		return Validated{}, &ValidationError{Field: "date", Reason: "required"}
	}
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return Validated{}, &ValidationError{Field: "amount", Reason: "not a number"}
	}
	if amount.IsNegative() {
		return Validated{}, &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	date, err := ParseDate(d.Date)
	if err != nil {
		return Validated{}, &ValidationError{Field: "date", Reason: "not a calendar date"}
	}
	return Validated{Client: d.Client, Amount: amount, Date: date}, nil
}

// =============================================================================
// PATCH - Partial update
// =============================================================================

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Client *string
	Amount *decimal.Decimal
	Date   *Date
	Status *Status
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Client == nil && p.Amount == nil && p.Date == nil && p.Status == nil
}

// validate checks the patch fields that are present. currentStatus is the
// locally known status, used to reject the unsupported Paid -> Unpaid
// reversal; a zero value skips the transition check.
func (p Patch) validate(currentStatus Status) error {
	if p.Client != nil && *p.Client == "" {
		return &ValidationError{Field: "client", Reason: "required"}
	}
	if p.Amount != nil && p.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return &ValidationError{Field: "status", Reason: "unknown status"}
		}
		if currentStatus == StatusPaid && *p.Status == StatusUnpaid {
			return &ValidationError{Field: "status", Reason: "paid invoices cannot revert to unpaid"}
		}
	}
	return nil
}

// Apply merges the patch into inv and returns the result. The receiver and
// argument are both left unchanged.
func (p Patch) Apply(inv Invoice) Invoice {
	if p.Client != nil {
		inv.Client = *p.Client
	}
	if p.Amount != nil {
		inv.Amount = *p.Amount
	}
	if p.Date != nil {
		inv.Date = *p.Date
	}
	if p.Status != nil {
		inv.Status = *p.Status
	}
	return inv
}

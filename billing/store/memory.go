// Package store provides an in-memory RecordStore implementation
// (for testing/dev).
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/landflow/billing-engine/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	rows   map[billing.OwnerID][]billing.Invoice
	nextID billing.InvoiceID
	user   *billing.User
}

func NewMemory() *Memory {
	return &Memory{
		rows:   make(map[billing.OwnerID][]billing.Invoice),
		nextID: 1,
	}
}

// SetUser establishes the authenticated identity CurrentUser resolves.
// Pass nil to simulate a signed-out caller.
func (m *Memory) SetUser(u *billing.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = u
}

func (m *Memory) CurrentUser(_ context.Context) (billing.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return billing.User{}, billing.ErrUnauthenticated
	}
	return *m.user, nil
}

func (m *Memory) List(_ context.Context, owner billing.OwnerID) ([]billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Invoice, len(m.rows[owner]))
	copy(out, m.rows[owner])
	return out, nil
}

func (m *Memory) Insert(_ context.Context, owner billing.OwnerID, draft billing.Validated) (billing.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Same constraint the relational table enforces.
	if draft.Client == "" || draft.Amount.IsNegative() {
		return billing.Invoice{}, fmt.Errorf("insert: %w", billing.ErrValidation)
	}

	inv := billing.Invoice{
		ID:     m.nextID,
		Client: draft.Client,
		Amount: draft.Amount,
		Date:   draft.Date,
		Status: billing.StatusUnpaid,
		Owner:  owner,
	}
	m.nextID++
	m.rows[owner] = append(m.rows[owner], inv)
	return inv, nil
}

func (m *Memory) Update(_ context.Context, id billing.InvoiceID, owner billing.OwnerID, patch billing.Patch) (billing.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.rows[owner]
	for i, inv := range rows {
		if inv.ID == id {
			rows[i] = patch.Apply(inv)
			return rows[i], nil
		}
	}
	return billing.Invoice{}, billing.ErrNotFound
}

func (m *Memory) Delete(_ context.Context, id billing.InvoiceID, owner billing.OwnerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.rows[owner]
	for i, inv := range rows {
		if inv.ID == id {
			m.rows[owner] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return billing.ErrNotFound
}

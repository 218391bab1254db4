/*
ledger.go - Transaction lifecycle: create, amend, delete

PURPOSE:
  Owns the transaction state machine (Draft -> Persisted -> Amended* ->
  Deleted) and commits each operation's Plan as one atomic unit:
  quantity mutation and record write together, or neither.

COMMIT DISCIPLINE:
  Create: reserve (if any) -> insert record. A failed reserve writes no
          record; a failed insert rolls the reservation back.
  Amend:  release old -> check+reserve new -> update record. A failed
          reserve restores the release; a failed update restores both.
  Delete: release the live expense reservation -> remove the record; a
          failed removal re-takes the reservation. Removal carries the
          version the record was read at, so a concurrent amend that
          changed it (possibly attaching a reservation to a manual
          entry) surfaces as ErrStaleAllocation instead of silently
          deleting a record that holds stock.

  Callers observe either the full new state or the unchanged old state,
  never an intermediate one. Partial application is a correctness bug,
  not a degraded mode.

CONCURRENCY:
  Every operation holds the Coordinator locks for all items it touches
  across validation AND commit, so two concurrent expense reservations
  against quantity 10 of 6 units each resolve to exactly one success.
  Amends and deletes of the same record are additionally guarded by an
  optimistic version check, surfaced as ErrStaleAllocation.

CANCELLATION:
  The caller's context is checked at the commit point; an abandoned call
  that never reached it leaves no state behind. Compensating actions run
  on a fresh context because the caller may already be gone. A call that
  timed out after commit is completed; retries are the caller's concern.

SEE ALSO:
  - resolver.go: Plan computation (pure, pre-mutation validation)
  - inventory.go: store contracts the commit drives
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger orchestrates the resolver, the stores and the coordinator. It is
// the only component allowed to mutate inventory quantities; callers are
// assumed to be authorized already.
type Ledger struct {
	items InventoryStore
	txs   TransactionStore
	coord *Coordinator
}

func NewLedger(items InventoryStore, txs TransactionStore) *Ledger {
	return &Ledger{
		items: items,
		txs:   txs,
		coord: NewCoordinator(),
	}
}

// =============================================================================
// CREATE
// =============================================================================

// Create validates req, reserves stock for an expense allocation and
// persists the record, as one unit. No record is written when the
// reservation fails, and a reservation taken for a record that fails to
// persist is rolled back.
func (l *Ledger) Create(ctx context.Context, req Request) (*Transaction, error) {
	unlock := l.coord.Lock(req.ItemID)
	defer unlock()

	item, err := l.itemFor(ctx, req)
	if err != nil {
		return nil, err
	}
	plan, err := Resolve(req, NoAllocation(), item)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if plan.Reserve != nil {
		if err := l.items.TryReserve(ctx, plan.Reserve.Item, plan.Reserve.Quantity); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	tx := &Transaction{
		ID:         TransactionID(uuid.NewString()),
		BusinessID: req.BusinessID,
		Type:       req.Type,
		Amount:     plan.Amount,
		Category:   plan.Category,
		Allocation: plan.Allocation,
		InvoiceRef: req.InvoiceRef,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := l.txs.Insert(ctx, tx); err != nil {
		if plan.Reserve != nil {
			l.compensateRelease(plan.Reserve)
		}
		return nil, err
	}
	return tx, nil
}

// =============================================================================
// AMEND
// =============================================================================

// Amend replaces a transaction's type, amount and allocation. The old
// expense reservation (if any) is released and the new one taken inside
// the same lock set, so moving an allocation between items, resizing it
// on the same item, and converting to or from a manual entry all commit
// atomically.
func (l *Ledger) Amend(ctx context.Context, id TransactionID, req Request) (*Transaction, error) {
	cur, err := l.txs.Transaction(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := l.coord.Lock(lockSet(cur.Allocation, req)...)
	defer unlock()

	// Re-read under the locks: if a concurrent amend won, the lock set may
	// no longer cover the items the record now points at.
	cur, err = l.reloadAt(ctx, id, cur.Version)
	if err != nil {
		return nil, err
	}

	item, err := l.itemFor(ctx, req)
	if err != nil {
		return nil, err
	}
	plan, err := Resolve(req, cur.Allocation, item)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Commit order: release old -> check+reserve new -> update record.
	if plan.Release != nil {
		if err := l.items.Release(ctx, plan.Release.Item, plan.Release.Quantity); err != nil {
			return nil, err
		}
	}
	if plan.Reserve != nil {
		if err := l.items.TryReserve(ctx, plan.Reserve.Item, plan.Reserve.Quantity); err != nil {
			if plan.Release != nil {
				l.compensateReserve(plan.Release)
			}
			return nil, err
		}
	}

	updated := *cur
	updated.Type = req.Type
	updated.Amount = plan.Amount
	updated.Category = plan.Category
	updated.Allocation = plan.Allocation
	updated.InvoiceRef = req.InvoiceRef
	updated.Version = cur.Version + 1
	updated.UpdatedAt = time.Now().UTC()

	if err := l.txs.Update(ctx, &updated, cur.Version); err != nil {
		if plan.Reserve != nil {
			l.compensateRelease(plan.Reserve)
		}
		if plan.Release != nil {
			l.compensateReserve(plan.Release)
		}
		return nil, err
	}
	return &updated, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a transaction. A live expense allocation is released
// back to its item in the same unit that removes the record. Every
// removal is guarded by the version the record was read at: a manual
// entry that a concurrent amend turned into an expense allocation in
// the meantime must not be deleted on the old read.
func (l *Ledger) Delete(ctx context.Context, id TransactionID) error {
	cur, err := l.txs.Transaction(ctx, id)
	if err != nil {
		return err
	}

	if !cur.Allocation.ReservesStock() {
		return l.txs.Delete(ctx, id, cur.Version)
	}

	unlock := l.coord.Lock(cur.Allocation.ItemID)
	defer unlock()

	cur, err = l.reloadAt(ctx, id, cur.Version)
	if err != nil {
		return err
	}
	if !cur.Allocation.ReservesStock() {
		return l.txs.Delete(ctx, id, cur.Version)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rel := &StockOp{Item: cur.Allocation.ItemID, Quantity: cur.Allocation.Quantity}
	if err := l.items.Release(ctx, rel.Item, rel.Quantity); err != nil {
		return err
	}
	if err := l.txs.Delete(ctx, id, cur.Version); err != nil {
		l.compensateReserve(rel)
		return err
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// itemFor loads the requested item for a linked request, nil for manual.
// Items are scoped per business; another business's item reads as missing
// so its existence is not leaked.
func (l *Ledger) itemFor(ctx context.Context, req Request) (*InventoryItem, error) {
	if !req.Linked() {
		return nil, nil
	}
	item, err := l.items.Item(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item.BusinessID != req.BusinessID {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// reloadAt re-reads the record and verifies it is still at the version
// the caller based its plan on.
func (l *Ledger) reloadAt(ctx context.Context, id TransactionID, version int64) (*Transaction, error) {
	cur, err := l.txs.Transaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Version != version {
		return nil, ErrStaleAllocation
	}
	return cur, nil
}

// lockSet collects the items an amend touches: the old reservation's item
// and the newly requested one.
func lockSet(prev Allocation, req Request) []ItemID {
	ids := make([]ItemID, 0, 2)
	if prev.ReservesStock() {
		ids = append(ids, prev.ItemID)
	}
	if req.Linked() {
		ids = append(ids, req.ItemID)
	}
	return ids
}

// Compensating actions run on a fresh context: the caller that triggered
// the commit may already have abandoned it.
func (l *Ledger) compensateRelease(op *StockOp) {
	_ = l.items.Release(context.Background(), op.Item, op.Quantity)
}

func (l *Ledger) compensateReserve(op *StockOp) {
	_ = l.items.TryReserve(context.Background(), op.Item, op.Quantity)
}

/*
inventory.go - Store contracts for stock and transaction persistence

PURPOSE:
  Defines the interfaces between the ledger and its persistence layer.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  InventoryStore:   atomic per-item quantity mutation + item queries
  TransactionStore: transaction record CRUD with optimistic versioning

LINEARIZABILITY CONTRACT:
  TryReserve and Release on the same item id are linearizable with
  respect to each other: TryReserve checks quantity >= qty and decrements
  in one step, with no read-then-write window visible to a concurrent
  caller. A failed TryReserve mutates nothing.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: production SQLite (conditional UPDATE)
  - ledger/store/memory.go: in-memory for testing

SEE ALSO:
  - ledger.go: the only caller allowed to mutate quantities
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INVENTORY STORE
// =============================================================================

// InventoryStore holds each item's quantity and unit cost and exposes
// atomic read-check-mutate operations keyed by item id.
type InventoryStore interface {
	// CreateItem persists a new item.
	CreateItem(ctx context.Context, item *InventoryItem) error

	// Item returns the item or ErrItemNotFound.
	Item(ctx context.Context, id ItemID) (*InventoryItem, error)

	// ItemsForBusiness returns all items owned by a business.
	ItemsForBusiness(ctx context.Context, biz BusinessID) ([]InventoryItem, error)

	// AvailableItems returns items with quantity > 0.
	AvailableItems(ctx context.Context, biz BusinessID) ([]InventoryItem, error)

	// LowStockItems returns items with quantity below threshold.
	LowStockItems(ctx context.Context, biz BusinessID, threshold int64) ([]InventoryItem, error)

	// TryReserve atomically checks quantity >= qty and decrements by qty.
	// Fails with ErrInsufficientStock (no partial mutation) if the check
	// fails, or ErrItemNotFound if the item does not exist.
	TryReserve(ctx context.Context, id ItemID, qty int64) error

	// Release atomically increments quantity by qty.
	// Fails with ErrItemNotFound if the item does not exist.
	Release(ctx context.Context, id ItemID, qty int64) error

	// CostPrice reads the live unit cost, used for expense amount
	// recomputation.
	CostPrice(ctx context.Context, id ItemID) (decimal.Decimal, error)

	// SetCostPrice updates the live unit cost. Price drift affects future
	// allocations, not past ones.
	SetCostPrice(ctx context.Context, id ItemID, price decimal.Decimal) error
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

// TransactionStore persists transaction records. Update and Delete take
// the version the caller read; a mismatch means a concurrent writer won
// and the caller must retry with fresh state.
type TransactionStore interface {
	// Insert persists a new transaction record.
	Insert(ctx context.Context, tx *Transaction) error

	// Transaction returns the record or ErrTransactionNotFound.
	Transaction(ctx context.Context, id TransactionID) (*Transaction, error)

	// Update replaces the record if its stored version equals
	// expectedVersion, else ErrStaleAllocation.
	Update(ctx context.Context, tx *Transaction, expectedVersion int64) error

	// Delete removes the record if its stored version equals
	// expectedVersion: ErrStaleAllocation on mismatch,
	// ErrTransactionNotFound if missing.
	Delete(ctx context.Context, id TransactionID, expectedVersion int64) error

	// TransactionsForBusiness returns a business's transactions,
	// newest first.
	TransactionsForBusiness(ctx context.Context, biz BusinessID) ([]Transaction, error)
}

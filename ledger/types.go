/*
Package ledger provides the core inventory-allocation ledger.

PURPOSE:
  This package contains the types and algorithms that keep an inventory
  item's on-hand quantity consistent with the set of bookkeeping
  transactions that claim a portion of it, across create, amend and
  delete operations.

KEY CONCEPTS IN THIS FILE (types.go):
  - InventoryItem: stock record with an integer quantity and a live unit cost
  - Transaction: an income or expense entry, optionally inventory-linked
  - Allocation: the tagged association between a transaction and stock
  - Request: caller input for create/amend operations

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal, never float
  2. Explicit variants: allocation branching is a tagged value, not
     nil-checks scattered across call sites
  3. Type Safety: strong typing for item/transaction/business ids

SEE ALSO:
  - resolver.go: Plan computation and business-rule validation
  - ledger.go: atomic create/amend/delete orchestration
  - inventory.go: store contracts
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ItemID string
type TransactionID string
type BusinessID string

// =============================================================================
// TRANSACTION TYPE
// =============================================================================

type TransactionType string

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"
)

// Valid reports whether t is one of the two known transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// =============================================================================
// ALLOCATION - tagged association between a transaction and stock
// =============================================================================

// AllocationKind distinguishes the three shapes a transaction can take:
// a plain manual entry, an expense purchase backed by a stock reservation,
// and an income sale that references stock without reserving it.
type AllocationKind string

const (
	AllocNone    AllocationKind = "none"
	AllocExpense AllocationKind = "expense"
	AllocIncome  AllocationKind = "income"
)

// Allocation records which inventory item a transaction draws from and how
// many units it claims. The zero value is a manual (unlinked) allocation.
//
// INVARIANT: only AllocExpense allocations hold a live stock reservation.
// AllocIncome is a reference; it never changes the item's quantity.
type Allocation struct {
	Kind     AllocationKind
	ItemID   ItemID
	Quantity int64
}

func NoAllocation() Allocation {
	return Allocation{Kind: AllocNone}
}

func ExpenseAllocation(item ItemID, qty int64) Allocation {
	return Allocation{Kind: AllocExpense, ItemID: item, Quantity: qty}
}

func IncomeAllocation(item ItemID, qty int64) Allocation {
	return Allocation{Kind: AllocIncome, ItemID: item, Quantity: qty}
}

// Linked reports whether the allocation references an inventory item at all.
func (a Allocation) Linked() bool {
	return a.Kind == AllocExpense || a.Kind == AllocIncome
}

// ReservesStock reports whether the allocation holds units of the item.
func (a Allocation) ReservesStock() bool {
	return a.Kind == AllocExpense
}

// =============================================================================
// INVENTORY ITEM
// =============================================================================

// InventoryItem is the stock record. Quantity is mutated only through the
// InventoryStore's atomic operations and never goes negative. CostPrice is
// live: it may drift over time and affects future allocations, not past ones.
type InventoryItem struct {
	ID         ItemID
	BusinessID BusinessID
	Name       string
	Category   string
	Quantity   int64
	CostPrice  decimal.Decimal
	CreatedAt  time.Time
}

// =============================================================================
// TRANSACTION
// =============================================================================

// Transaction is a single income or expense entry in a business's books.
// Version increments on every amend and backs the optimistic stale check.
type Transaction struct {
	ID         TransactionID
	BusinessID BusinessID
	Type       TransactionType
	Amount     decimal.Decimal
	Category   string
	Allocation Allocation
	InvoiceRef string
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// =============================================================================
// REQUEST - caller input for Create and Amend
// =============================================================================

// Request describes the desired state of a transaction. ItemID empty means a
// manual entry; otherwise Quantity units of the item are requested and the
// allocation kind follows from Type. The caller is assumed to be already
// authorized; the ledger performs no role checks.
type Request struct {
	BusinessID BusinessID
	Type       TransactionType
	Amount     decimal.Decimal
	Category   string
	InvoiceRef string
	ItemID     ItemID
	Quantity   int64
}

// Linked reports whether the request asks for an inventory-linked entry.
func (r Request) Linked() bool {
	return r.ItemID != ""
}

/*
resolver.go - Pure allocation validation and plan computation

PURPOSE:
  Given a transaction's requested allocation and the allocation it
  replaces, compute the exact stock operations needed and the derived
  amount, without executing anything. The resulting Plan is what the
  ledger commits as one atomic unit.

BUSINESS RULES:
  Expense + linked: capped by effective availability; amount is
                    quantity x the item's CURRENT cost price
  Income + linked:  quantity >= 1 only, no upper bound against stock;
                    amount is the caller-supplied sale value (> 0)
  Manual (either):  amount supplied (> 0) and category required

EFFECTIVE AVAILABILITY:
  When the new allocation targets the same item the old one reserved,
  the old reservation is credited back before the cap is tested - the
  release happens as part of the same commit, so quantity + old_qty is
  the real headroom.

SEE ALSO:
  - ledger.go: executes Plans with compensation on partial failure
*/
package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// PLAN - the stock operations a commit must perform
// =============================================================================

// StockOp is a single quantity mutation against one item.
type StockOp struct {
	Item     ItemID
	Quantity int64
}

// Plan describes exactly what committing a create or amend requires:
// release the old reservation (if any), take the new one (if any), and
// write the record with the derived amount, category and allocation.
// A Plan has no side effects until the ledger executes it.
type Plan struct {
	Release    *StockOp
	Reserve    *StockOp
	Amount     decimal.Decimal
	Category   string
	Allocation Allocation
}

// =============================================================================
// RESOLVE
// =============================================================================

// Resolve validates req against the business rules and computes the Plan
// for applying it on top of prev. item is the current state of the
// requested item; it must be non-nil when req is linked and is ignored
// otherwise. Resolve is pure: it never touches a store.
func Resolve(req Request, prev Allocation, item *InventoryItem) (Plan, error) {
	if !req.Type.Valid() {
		return Plan{}, ErrInvalidType
	}

	plan := Plan{}
	if prev.ReservesStock() {
		plan.Release = &StockOp{Item: prev.ItemID, Quantity: prev.Quantity}
	}

	if !req.Linked() {
		return resolveManual(req, plan)
	}

	if req.Quantity < 1 {
		return Plan{}, ErrInvalidQuantity
	}
	if item == nil || item.ID != req.ItemID {
		return Plan{}, ErrItemNotFound
	}

	switch req.Type {
	case Expense:
		available := effectiveAvailable(item.Quantity, prev, req.ItemID)
		if req.Quantity > available {
			return Plan{}, &InsufficientStockError{
				Item:      req.ItemID,
				Available: available,
				Requested: req.Quantity,
			}
		}
		plan.Reserve = &StockOp{Item: req.ItemID, Quantity: req.Quantity}
		// Amount derives from the live cost price, not a price frozen at
		// first creation.
		plan.Amount = item.CostPrice.Mul(decimal.NewFromInt(req.Quantity))
		plan.Category = item.Category
		plan.Allocation = ExpenseAllocation(req.ItemID, req.Quantity)
		return plan, nil

	case Income:
		// Income-linked sales record the claim but never reserve stock.
		if !req.Amount.IsPositive() {
			return Plan{}, ErrInvalidAmount
		}
		plan.Amount = req.Amount
		plan.Category = item.Category
		plan.Allocation = IncomeAllocation(req.ItemID, req.Quantity)
		return plan, nil
	}

	return Plan{}, ErrInvalidType
}

func resolveManual(req Request, plan Plan) (Plan, error) {
	if !req.Amount.IsPositive() {
		return Plan{}, ErrInvalidAmount
	}
	if req.Category == "" {
		return Plan{}, ErrCategoryRequired
	}
	plan.Amount = req.Amount
	plan.Category = req.Category
	plan.Allocation = NoAllocation()
	return plan, nil
}

// effectiveAvailable is the quantity a new reservation is checked against.
// If the old reservation sits on the same item it is credited back first,
// since the commit releases it in the same atomic unit.
func effectiveAvailable(current int64, prev Allocation, item ItemID) int64 {
	if prev.ReservesStock() && prev.ItemID == item {
		return current + prev.Quantity
	}
	return current
}

/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All error kinds surfaced by the ledger in one place. Every validation
  failure is detected before any mutation and returned without side
  effects; failures after a mutation has begun trigger a compensating
  action, so callers always observe a clean before/after pair.

ERROR CATEGORIES:
  1. Validation errors - bad quantities, amounts, missing category
  2. Not-found errors - missing item or transaction (possibly deleted
     concurrently)
  3. Conflict errors - insufficient stock, stale allocation

USAGE:
  if errors.Is(err, ledger.ErrInsufficientStock) {
      // recoverable: reduce quantity or abandon
  }

SEE ALSO:
  - resolver.go: raises validation and stock errors
  - ledger.go: raises not-found and stale errors
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientStock is returned when an expense allocation requests
	// more units than are effectively available. Always recoverable.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidType is returned when the transaction type is neither
	// Income nor Expense.
	ErrInvalidType = errors.New("transaction type must be Income or Expense")

	// ErrInvalidQuantity is returned when a linked request carries a
	// quantity below 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrInvalidAmount is returned when a manual or income amount is
	// missing, zero or negative.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrCategoryRequired is returned when a manual entry has no category.
	ErrCategoryRequired = errors.New("category required for manual entries")

	// ErrItemNotFound is returned when a referenced inventory item does
	// not exist.
	ErrItemNotFound = errors.New("inventory item not found")

	// ErrTransactionNotFound is returned when a referenced transaction
	// does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrStaleAllocation is returned when a concurrent amend or delete
	// changed the transaction between read and commit. Retry with fresh
	// state.
	ErrStaleAllocation = errors.New("stale allocation: transaction changed concurrently")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError reports how far a reservation overshot.
type InsufficientStockError struct {
	Item      ItemID
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: available %d, requested %d",
		e.Item, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStaleAllocation)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrCategoryRequired)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

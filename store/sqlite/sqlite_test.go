package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brightbooks/ledger-engine/ledger"
	"github.com/brightbooks/ledger-engine/store/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedItem(t *testing.T, s *sqlite.Store, id ledger.ItemID, qty int64, cost string) {
	t.Helper()
	err := s.CreateItem(context.Background(), &ledger.InventoryItem{
		ID:         id,
		BusinessID: "biz-1",
		Name:       string(id),
		Category:   "Supplies",
		Quantity:   qty,
		CostPrice:  decimal.RequireFromString(cost),
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
}

func seedTransaction(t *testing.T, s *sqlite.Store, id ledger.TransactionID, alloc ledger.Allocation, createdAt time.Time) {
	t.Helper()
	err := s.Insert(context.Background(), &ledger.Transaction{
		ID:         id,
		BusinessID: "biz-1",
		Type:       ledger.Expense,
		Amount:     decimal.RequireFromString("10.00"),
		Category:   "Supplies",
		Allocation: alloc,
		Version:    1,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	})
	require.NoError(t, err)
}

// =============================================================================
// ITEM CRUD
// =============================================================================

func TestStore_Item_RoundTrip(t *testing.T) {
	// GIVEN: A created item
	// WHEN: Reading it back
	// THEN: All fields survive, including the decimal cost price

	s := newTestStore(t)
	seedItem(t, s, "item-a", 10, "3.25")

	item, err := s.Item(context.Background(), "item-a")
	require.NoError(t, err)

	assert.Equal(t, ledger.ItemID("item-a"), item.ID)
	assert.Equal(t, ledger.BusinessID("biz-1"), item.BusinessID)
	assert.Equal(t, int64(10), item.Quantity)
	assert.True(t, item.CostPrice.Equal(decimal.RequireFromString("3.25")))
}

func TestStore_Item_Missing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Item(context.Background(), "item-missing")
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)
}

func TestStore_ItemFilters(t *testing.T) {
	// GIVEN: Items with quantities 0, 3 and 12
	// WHEN: Listing all, available, and low-stock (threshold 5)
	// THEN: Each filter returns the right subset

	s := newTestStore(t)
	ctx := context.Background()
	seedItem(t, s, "item-empty", 0, "1.00")
	seedItem(t, s, "item-low", 3, "1.00")
	seedItem(t, s, "item-full", 12, "1.00")

	all, err := s.ItemsForBusiness(ctx, "biz-1")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	available, err := s.AvailableItems(ctx, "biz-1")
	require.NoError(t, err)
	require.Len(t, available, 2)
	for _, item := range available {
		assert.Greater(t, item.Quantity, int64(0))
	}

	low, err := s.LowStockItems(ctx, "biz-1", 5)
	require.NoError(t, err)
	require.Len(t, low, 2)
	for _, item := range low {
		assert.Less(t, item.Quantity, int64(5))
	}
}

func TestStore_SetCostPrice(t *testing.T) {
	// GIVEN: An item priced at 2.00
	// WHEN: Updating the live cost to 2.75
	// THEN: Reads observe the new price

	s := newTestStore(t)
	ctx := context.Background()
	seedItem(t, s, "item-a", 10, "2.00")

	require.NoError(t, s.SetCostPrice(ctx, "item-a", decimal.RequireFromString("2.75")))

	price, err := s.CostPrice(ctx, "item-a")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("2.75")))

	err = s.SetCostPrice(ctx, "item-missing", decimal.RequireFromString("1"))
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)
}

// =============================================================================
// ATOMIC RESERVATION
// =============================================================================

func TestStore_TryReserve_Success(t *testing.T) {
	// GIVEN: An item with 10 units
	// WHEN: Reserving 4
	// THEN: Quantity reads 6

	s := newTestStore(t)
	ctx := context.Background()
	seedItem(t, s, "item-a", 10, "1.00")

	require.NoError(t, s.TryReserve(ctx, "item-a", 4))

	item, err := s.Item(ctx, "item-a")
	require.NoError(t, err)
	assert.Equal(t, int64(6), item.Quantity)
}

func TestStore_TryReserve_Insufficient(t *testing.T) {
	// GIVEN: An item with 3 units
	// WHEN: Reserving 4
	// THEN: InsufficientStockError and the quantity is untouched

	s := newTestStore(t)
	ctx := context.Background()
	seedItem(t, s, "item-a", 3, "1.00")

	err := s.TryReserve(ctx, "item-a", 4)
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(3), stockErr.Available)
	assert.Equal(t, int64(4), stockErr.Requested)

	item, err := s.Item(ctx, "item-a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), item.Quantity)
}

func TestStore_TryReserve_MissingItem(t *testing.T) {
	s := newTestStore(t)
	err := s.TryReserve(context.Background(), "item-missing", 1)
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)
}

func TestStore_Release_RestoresQuantity(t *testing.T) {
	// GIVEN: An item with 6 units after a reservation
	// WHEN: Releasing 4
	// THEN: Quantity reads 10

	s := newTestStore(t)
	ctx := context.Background()
	seedItem(t, s, "item-a", 10, "1.00")
	require.NoError(t, s.TryReserve(ctx, "item-a", 4))

	require.NoError(t, s.Release(ctx, "item-a", 4))

	item, err := s.Item(ctx, "item-a")
	require.NoError(t, err)
	assert.Equal(t, int64(10), item.Quantity)

	assert.ErrorIs(t, s.Release(ctx, "item-missing", 1), ledger.ErrItemNotFound)
}

func TestStore_TryReserve_ConcurrentOversubscription(t *testing.T) {
	// GIVEN: An item with 10 units
	// WHEN: Two concurrent reservations of 6 units each
	// THEN: Exactly one succeeds; quantity never goes negative

	s := newTestStore(t)
	seedItem(t, s, "item-a", 10, "1.00")

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.TryReserve(context.Background(), "item-a", 6)
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ledger.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, succeeded)

	item, err := s.Item(context.Background(), "item-a")
	require.NoError(t, err)
	assert.Equal(t, int64(4), item.Quantity)
}

// =============================================================================
// TRANSACTION CRUD
// =============================================================================

func TestStore_Transaction_RoundTrip(t *testing.T) {
	// GIVEN: An inserted expense with an allocation and invoice reference
	// WHEN: Reading it back
	// THEN: The allocation columns and invoice_ref survive verbatim

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	in := &ledger.Transaction{
		ID:         "tx-1",
		BusinessID: "biz-1",
		Type:       ledger.Expense,
		Amount:     decimal.RequireFromString("12.50"),
		Category:   "Supplies",
		Allocation: ledger.ExpenseAllocation("item-a", 5),
		InvoiceRef: "INV-0042",
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.Insert(ctx, in))

	out, err := s.Transaction(ctx, "tx-1")
	require.NoError(t, err)

	assert.Equal(t, in.ID, out.ID)
	assert.True(t, out.Amount.Equal(in.Amount))
	assert.Equal(t, in.Allocation, out.Allocation)
	assert.Equal(t, "INV-0042", out.InvoiceRef)
	assert.Equal(t, int64(1), out.Version)
}

func TestStore_Transaction_ManualHasNoAllocation(t *testing.T) {
	// GIVEN: A manual entry (no allocation columns)
	// WHEN: Reading it back
	// THEN: The allocation is unlinked

	s := newTestStore(t)
	seedTransaction(t, s, "tx-manual", ledger.NoAllocation(), time.Now().UTC())

	out, err := s.Transaction(context.Background(), "tx-manual")
	require.NoError(t, err)
	assert.False(t, out.Allocation.Linked())
}

func TestStore_Update_VersionConflict(t *testing.T) {
	// GIVEN: A record at version 1
	// WHEN: Updating with a stale expected version
	// THEN: ErrStaleAllocation; a matching version succeeds

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedTransaction(t, s, "tx-1", ledger.NoAllocation(), now)

	updated := ledger.Transaction{
		ID:         "tx-1",
		BusinessID: "biz-1",
		Type:       ledger.Income,
		Amount:     decimal.RequireFromString("99"),
		Category:   "Sales",
		Allocation: ledger.NoAllocation(),
		Version:    2,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.Update(ctx, &updated, 7)
	assert.ErrorIs(t, err, ledger.ErrStaleAllocation)

	require.NoError(t, s.Update(ctx, &updated, 1))

	out, err := s.Transaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.Income, out.Type)
	assert.Equal(t, int64(2), out.Version)

	missing := updated
	missing.ID = "tx-missing"
	assert.ErrorIs(t, s.Update(ctx, &missing, 1), ledger.ErrTransactionNotFound)
}

func TestStore_Delete_VersionGuarded(t *testing.T) {
	// GIVEN: A record at version 1
	// WHEN: Deleting with a stale version, then the matching one
	// THEN: The stale attempt fails and leaves the record in place

	s := newTestStore(t)
	ctx := context.Background()
	seedTransaction(t, s, "tx-1", ledger.NoAllocation(), time.Now().UTC())

	err := s.Delete(ctx, "tx-1", 7)
	assert.ErrorIs(t, err, ledger.ErrStaleAllocation)
	_, err = s.Transaction(ctx, "tx-1")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "tx-1", 1))
	_, err = s.Transaction(ctx, "tx-1")
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "tx-1", 1), ledger.ErrTransactionNotFound)
}

func TestStore_TransactionsForBusiness_NewestFirst(t *testing.T) {
	// GIVEN: Three records created a minute apart
	// WHEN: Listing the business's transactions
	// THEN: Newest first

	s := newTestStore(t)
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	seedTransaction(t, s, "tx-old", ledger.NoAllocation(), base)
	seedTransaction(t, s, "tx-mid", ledger.NoAllocation(), base.Add(time.Minute))
	seedTransaction(t, s, "tx-new", ledger.NoAllocation(), base.Add(2*time.Minute))

	txs, err := s.TransactionsForBusiness(context.Background(), "biz-1")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, ledger.TransactionID("tx-new"), txs[0].ID)
	assert.Equal(t, ledger.TransactionID("tx-mid"), txs[1].ID)
	assert.Equal(t, ledger.TransactionID("tx-old"), txs[2].ID)
}

// =============================================================================
// FULL LEDGER OVER SQLITE
// =============================================================================

func TestStore_DrivesLedgerEndToEnd(t *testing.T) {
	// GIVEN: A ledger backed by SQLite
	// WHEN: Create 5 units, amend to 2, delete
	// THEN: Quantity tracks 10 -> 5 -> 8 -> 10

	s := newTestStore(t)
	ctx := context.Background()
	seedItem(t, s, "item-a", 10, "2.00")

	l := ledger.NewLedger(s, s)
	req := ledger.Request{
		BusinessID: "biz-1",
		Type:       ledger.Expense,
		ItemID:     "item-a",
		Quantity:   5,
	}

	tx, err := l.Create(ctx, req)
	require.NoError(t, err)
	item, _ := s.Item(ctx, "item-a")
	assert.Equal(t, int64(5), item.Quantity)

	req.Quantity = 2
	_, err = l.Amend(ctx, tx.ID, req)
	require.NoError(t, err)
	item, _ = s.Item(ctx, "item-a")
	assert.Equal(t, int64(8), item.Quantity)

	require.NoError(t, l.Delete(ctx, tx.ID))
	item, _ = s.Item(ctx, "item-a")
	assert.Equal(t, int64(10), item.Quantity)
}

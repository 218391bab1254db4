package reporting_test

import (
	"context"
	"testing"
	"time"

	"github.com/brightbooks/ledger-engine/ledger"
	"github.com/brightbooks/ledger-engine/ledger/store"
	"github.com/brightbooks/ledger-engine/reporting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*reporting.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return reporting.NewService(mem), mem
}

func record(t *testing.T, mem *store.Memory, txType ledger.TransactionType, amount, category string, at time.Time) {
	t.Helper()
	err := mem.Insert(context.Background(), &ledger.Transaction{
		ID:         ledger.TransactionID(uuid.NewString()),
		BusinessID: "biz-1",
		Type:       txType,
		Amount:     decimal.RequireFromString(amount),
		Category:   category,
		Allocation: ledger.NoAllocation(),
		Version:    1,
		CreatedAt:  at,
		UpdatedAt:  at,
	})
	require.NoError(t, err)
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestSummary_TotalsByType(t *testing.T) {
	// GIVEN: Two income entries and one expense
	// WHEN: Computing the summary
	// THEN: Income and expense totals are summed independently

	svc, mem := newTestService(t)
	now := time.Now().UTC()
	record(t, mem, ledger.Income, "100.50", "Sales", now)
	record(t, mem, ledger.Income, "49.50", "Sales", now)
	record(t, mem, ledger.Expense, "30.00", "Rent", now)

	summary, err := svc.Summary(context.Background(), "biz-1")
	require.NoError(t, err)

	assert.True(t, summary.Income.Equal(decimal.RequireFromString("150.00")))
	assert.True(t, summary.Expense.Equal(decimal.RequireFromString("30.00")))
}

func TestSummary_EmptyBusiness(t *testing.T) {
	svc, _ := newTestService(t)

	summary, err := svc.Summary(context.Background(), "biz-empty")
	require.NoError(t, err)
	assert.True(t, summary.Income.IsZero())
	assert.True(t, summary.Expense.IsZero())
}

// =============================================================================
// TIME SERIES
// =============================================================================

func TestWeekly_SevenBuckets_OldestFirst(t *testing.T) {
	// GIVEN: Entries today, three days ago, and eight days ago
	// WHEN: Computing the weekly series
	// THEN: 7 buckets; the 8-day-old entry falls outside the window

	svc, mem := newTestService(t)
	now := time.Date(2026, time.March, 15, 14, 0, 0, 0, time.UTC) // a Sunday
	record(t, mem, ledger.Income, "10", "Sales", now)
	record(t, mem, ledger.Expense, "5", "Rent", now.AddDate(0, 0, -3))
	record(t, mem, ledger.Income, "999", "Sales", now.AddDate(0, 0, -8))

	buckets, err := svc.Weekly(context.Background(), "biz-1", now)
	require.NoError(t, err)
	require.Len(t, buckets, 7)

	// Window runs Monday..Sunday for this reference date.
	assert.Equal(t, "Mon", buckets[0].Label)
	assert.Equal(t, "Sun", buckets[6].Label)

	assert.True(t, buckets[6].Income.Equal(decimal.RequireFromString("10")))
	assert.True(t, buckets[3].Expense.Equal(decimal.RequireFromString("5")))

	// The stale entry contributed nothing.
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.Income)
	}
	assert.True(t, total.Equal(decimal.RequireFromString("10")))
}

func TestMonthly_TwelveBuckets_CurrentMonthLast(t *testing.T) {
	// GIVEN: An entry this month and one eleven months back
	// WHEN: Computing the monthly series
	// THEN: 12 buckets, oldest first, both entries land in their months

	svc, mem := newTestService(t)
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	record(t, mem, ledger.Income, "20", "Sales", now)
	record(t, mem, ledger.Expense, "7", "Rent", now.AddDate(0, -11, 0))

	buckets, err := svc.Monthly(context.Background(), "biz-1", now)
	require.NoError(t, err)
	require.Len(t, buckets, 12)

	assert.Equal(t, "Apr", buckets[0].Label)
	assert.Equal(t, "Mar", buckets[11].Label)
	assert.True(t, buckets[0].Expense.Equal(decimal.RequireFromString("7")))
	assert.True(t, buckets[11].Income.Equal(decimal.RequireFromString("20")))
}

// =============================================================================
// CATEGORY BREAKDOWN
// =============================================================================

func TestExpenseByCategory_SortedLargestFirst(t *testing.T) {
	// GIVEN: Expenses across categories, one uncategorized, plus income
	// WHEN: Computing the breakdown
	// THEN: Expense-only totals, largest first, blank becomes Uncategorized

	svc, mem := newTestService(t)
	now := time.Now().UTC()
	record(t, mem, ledger.Expense, "30", "Rent", now)
	record(t, mem, ledger.Expense, "10", "Supplies", now)
	record(t, mem, ledger.Expense, "15", "Supplies", now)
	record(t, mem, ledger.Expense, "4", "", now)
	record(t, mem, ledger.Income, "500", "Sales", now)

	totals, err := svc.ExpenseByCategory(context.Background(), "biz-1")
	require.NoError(t, err)
	require.Len(t, totals, 3)

	assert.Equal(t, "Rent", totals[0].Category)
	assert.True(t, totals[0].Amount.Equal(decimal.RequireFromString("30")))
	assert.Equal(t, "Supplies", totals[1].Category)
	assert.True(t, totals[1].Amount.Equal(decimal.RequireFromString("25")))
	assert.Equal(t, "Uncategorized", totals[2].Category)
}

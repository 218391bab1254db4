/*
Package reporting aggregates committed ledger state for dashboards.

PURPOSE:
  Read-only consumer of transaction records: income/expense totals,
  weekly and monthly series, and expense breakdown by category. It never
  mutates the ledger.

AGGREGATION:
  Series are bucketed in Go rather than SQL, so the same code serves any
  TransactionStore implementation.

SEE ALSO:
  - ledger/inventory.go: the TransactionStore contract this reads from
*/
package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/brightbooks/ledger-engine/ledger"
	"github.com/shopspring/decimal"
)

// Service computes read-only aggregates over a business's transactions.
type Service struct {
	txs ledger.TransactionStore
}

func NewService(txs ledger.TransactionStore) *Service {
	return &Service{txs: txs}
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary holds total income and expense for a business.
type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Summary returns all-time income and expense totals.
func (s *Service) Summary(ctx context.Context, biz ledger.BusinessID) (Summary, error) {
	txs, err := s.txs.TransactionsForBusiness(ctx, biz)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{Income: decimal.Zero, Expense: decimal.Zero}
	for _, tx := range txs {
		switch tx.Type {
		case ledger.Income:
			out.Income = out.Income.Add(tx.Amount)
		case ledger.Expense:
			out.Expense = out.Expense.Add(tx.Amount)
		}
	}
	return out, nil
}

// =============================================================================
// TIME SERIES
// =============================================================================

// Bucket is one labeled point of an income/expense series.
type Bucket struct {
	Label   string
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Weekly returns the last 7 days as day-labeled buckets, oldest first.
func (s *Service) Weekly(ctx context.Context, biz ledger.BusinessID, now time.Time) ([]Bucket, error) {
	txs, err := s.txs.TransactionsForBusiness(ctx, biz)
	if err != nil {
		return nil, err
	}

	start := truncateDay(now.UTC()).AddDate(0, 0, -6)
	sums := make(map[time.Time]*Bucket)
	for _, tx := range txs {
		day := truncateDay(tx.CreatedAt.UTC())
		if day.Before(start) {
			continue
		}
		b, ok := sums[day]
		if !ok {
			b = &Bucket{Income: decimal.Zero, Expense: decimal.Zero}
			sums[day] = b
		}
		accumulate(b, tx)
	}

	out := make([]Bucket, 0, 7)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		b := Bucket{Label: day.Format("Mon"), Income: decimal.Zero, Expense: decimal.Zero}
		if got, ok := sums[day]; ok {
			b.Income = got.Income
			b.Expense = got.Expense
		}
		out = append(out, b)
	}
	return out, nil
}

// Monthly returns the last 12 calendar months as month-labeled buckets,
// oldest first.
func (s *Service) Monthly(ctx context.Context, biz ledger.BusinessID, now time.Time) ([]Bucket, error) {
	txs, err := s.txs.TransactionsForBusiness(ctx, biz)
	if err != nil {
		return nil, err
	}

	sums := make(map[time.Time]*Bucket)
	for _, tx := range txs {
		t := tx.CreatedAt.UTC()
		month := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		b, ok := sums[month]
		if !ok {
			b = &Bucket{Income: decimal.Zero, Expense: decimal.Zero}
			sums[month] = b
		}
		accumulate(b, tx)
	}

	n := now.UTC()
	out := make([]Bucket, 0, 12)
	for i := 11; i >= 0; i-- {
		month := time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		b := Bucket{Label: month.Format("Jan"), Income: decimal.Zero, Expense: decimal.Zero}
		if got, ok := sums[month]; ok {
			b.Income = got.Income
			b.Expense = got.Expense
		}
		out = append(out, b)
	}
	return out, nil
}

// =============================================================================
// CATEGORY BREAKDOWN
// =============================================================================

// CategoryTotal is one category's expense total.
type CategoryTotal struct {
	Category string
	Amount   decimal.Decimal
}

// ExpenseByCategory groups expense amounts by category, largest first.
// Uncategorized expenses are grouped under "Uncategorized".
func (s *Service) ExpenseByCategory(ctx context.Context, biz ledger.BusinessID) ([]CategoryTotal, error) {
	txs, err := s.txs.TransactionsForBusiness(ctx, biz)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != ledger.Expense {
			continue
		}
		cat := tx.Category
		if cat == "" {
			cat = "Uncategorized"
		}
		totals[cat] = totals[cat].Add(tx.Amount)
	}

	out := make([]CategoryTotal, 0, len(totals))
	for cat, amount := range totals {
		out = append(out, CategoryTotal{Category: cat, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Equal(out[j].Amount) {
			return out[i].Category < out[j].Category
		}
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out, nil
}

func accumulate(b *Bucket, tx ledger.Transaction) {
	switch tx.Type {
	case ledger.Income:
		b.Income = b.Income.Add(tx.Amount)
	case ledger.Expense:
		b.Expense = b.Expense.Add(tx.Amount)
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

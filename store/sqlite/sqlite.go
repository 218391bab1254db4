/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.InventoryStore and ledger.TransactionStore using
  SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

ATOMIC RESERVATION:
  TryReserve is a single conditional UPDATE:

      UPDATE items SET quantity = quantity - ?
      WHERE id = ? AND quantity >= ?

  The check and the decrement happen in one statement, so two concurrent
  reservations against the same item can never both pass the check. A
  CHECK (quantity >= 0) constraint backs the invariant at the schema
  level as well.

KEY TABLES:
  items:        stock records (quantity, live cost price)
  transactions: income/expense entries with their allocation columns

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers
  don't block, single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/books.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  led := ledger.NewLedger(store, store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/inventory.go: interface definitions
  - ledger/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brightbooks/ledger-engine/ledger"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store implements both storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite allows a single writer anyway, and pooled
	// connections against ":memory:" would each see a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Inventory items. The CHECK backs the non-negativity invariant at the
	-- schema level; the conditional UPDATE in TryReserve enforces it first.
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		item_name TEXT NOT NULL,
		category TEXT,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		cost_price TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_business
		ON items(business_id);
	CREATE INDEX IF NOT EXISTS idx_items_business_quantity
		ON items(business_id, quantity);

	-- Transactions with their allocation columns. alloc_kind is 'none',
	-- 'expense' or 'income'; item/quantity are null for manual entries.
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		category TEXT,
		alloc_kind TEXT NOT NULL DEFAULT 'none',
		alloc_item_id TEXT,
		alloc_quantity INTEGER,
		invoice_ref TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_business
		ON transactions(business_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_alloc_item
		ON transactions(alloc_item_id) WHERE alloc_item_id IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// INVENTORY STORE (ledger.InventoryStore interface)
// =============================================================================

// CreateItem persists a new inventory item.
func (s *Store) CreateItem(ctx context.Context, item *ledger.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO items (id, business_id, item_name, category, quantity, cost_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.BusinessID,
		item.Name,
		nullString(item.Category),
		item.Quantity,
		item.CostPrice.String(),
		item.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// Item returns a single item or ledger.ErrItemNotFound.
func (s *Store) Item(ctx context.Context, id ledger.ItemID) (*ledger.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanItemRow(s.db.QueryRowContext(ctx,
		`SELECT id, business_id, item_name, category, quantity, cost_price, created_at
		 FROM items WHERE id = ?`, id))
}

// ItemsForBusiness returns all items owned by a business.
func (s *Store) ItemsForBusiness(ctx context.Context, biz ledger.BusinessID) ([]ledger.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryItems(ctx,
		`SELECT id, business_id, item_name, category, quantity, cost_price, created_at
		 FROM items WHERE business_id = ? ORDER BY item_name`, biz)
}

// AvailableItems returns items with stock on hand.
func (s *Store) AvailableItems(ctx context.Context, biz ledger.BusinessID) ([]ledger.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryItems(ctx,
		`SELECT id, business_id, item_name, category, quantity, cost_price, created_at
		 FROM items WHERE business_id = ? AND quantity > 0 ORDER BY item_name`, biz)
}

// LowStockItems returns items below the given threshold.
func (s *Store) LowStockItems(ctx context.Context, biz ledger.BusinessID, threshold int64) ([]ledger.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryItems(ctx,
		`SELECT id, business_id, item_name, category, quantity, cost_price, created_at
		 FROM items WHERE business_id = ? AND quantity < ? ORDER BY quantity ASC, item_name`,
		biz, threshold)
}

// TryReserve atomically checks and decrements the item's quantity.
func (s *Store) TryReserve(ctx context.Context, id ledger.ItemID, qty int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET quantity = quantity - ? WHERE id = ? AND quantity >= ?`,
		qty, id, qty)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Nothing matched: the item is missing or the check failed.
	var available int64
	err = s.db.QueryRowContext(ctx, `SELECT quantity FROM items WHERE id = ?`, id).Scan(&available)
	if err == sql.ErrNoRows {
		return ledger.ErrItemNotFound
	}
	if err != nil {
		return err
	}
	return &ledger.InsufficientStockError{Item: id, Available: available, Requested: qty}
}

// Release atomically increments the item's quantity.
func (s *Store) Release(ctx context.Context, id ledger.ItemID, qty int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET quantity = quantity + ? WHERE id = ?`, qty, id)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrItemNotFound
	}
	return nil
}

// CostPrice reads the live unit cost.
func (s *Store) CostPrice(ctx context.Context, id ledger.ItemID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT cost_price FROM items WHERE id = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Zero, ledger.ErrItemNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return parseDecimal(raw), nil
}

// SetCostPrice updates the live unit cost.
func (s *Store) SetCostPrice(ctx context.Context, id ledger.ItemID, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET cost_price = ? WHERE id = ?`, price.String(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrItemNotFound
	}
	return nil
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]ledger.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []ledger.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanItemRow(row *sql.Row) (*ledger.InventoryItem, error) {
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func scanItem(row rowScanner) (ledger.InventoryItem, error) {
	var (
		item      ledger.InventoryItem
		category  sql.NullString
		costPrice string
		createdAt string
	)
	err := row.Scan(&item.ID, &item.BusinessID, &item.Name, &category,
		&item.Quantity, &costPrice, &createdAt)
	if err != nil {
		return item, err
	}
	item.Category = category.String
	item.CostPrice = parseDecimal(costPrice)
	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return item, nil
}

// =============================================================================
// TRANSACTION STORE (ledger.TransactionStore interface)
// =============================================================================

// Insert persists a new transaction record.
func (s *Store) Insert(ctx context.Context, tx *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO transactions
		(id, business_id, tx_type, amount, category, alloc_kind, alloc_item_id,
		 alloc_quantity, invoice_ref, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.BusinessID,
		tx.Type,
		tx.Amount.String(),
		nullString(tx.Category),
		allocKind(tx.Allocation),
		allocItem(tx.Allocation),
		allocQuantity(tx.Allocation),
		nullString(tx.InvoiceRef),
		tx.Version,
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
		tx.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Transaction returns a single record or ledger.ErrTransactionNotFound.
func (s *Store) Transaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs, err := s.queryTransactions(ctx,
		selectTransaction+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, ledger.ErrTransactionNotFound
	}
	return &txs[0], nil
}

// Update replaces the record if the stored version still matches.
func (s *Store) Update(ctx context.Context, tx *ledger.Transaction, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE transactions SET
			tx_type = ?, amount = ?, category = ?, alloc_kind = ?,
			alloc_item_id = ?, alloc_quantity = ?, invoice_ref = ?,
			version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		tx.Type,
		tx.Amount.String(),
		nullString(tx.Category),
		allocKind(tx.Allocation),
		allocItem(tx.Allocation),
		allocQuantity(tx.Allocation),
		nullString(tx.InvoiceRef),
		tx.Version,
		tx.UpdatedAt.UTC().Format(time.RFC3339Nano),
		tx.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Nothing matched: distinguish a missing record from a version race.
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE id = ?`, tx.ID).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return ledger.ErrTransactionNotFound
	}
	return ledger.ErrStaleAllocation
}

// Delete removes the record if the stored version still matches.
func (s *Store) Delete(ctx context.Context, id ledger.TransactionID, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND version = ?`, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Nothing matched: distinguish a missing record from a version race.
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE id = ?`, id).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return ledger.ErrTransactionNotFound
	}
	return ledger.ErrStaleAllocation
}

// TransactionsForBusiness returns a business's transactions, newest first.
func (s *Store) TransactionsForBusiness(ctx context.Context, biz ledger.BusinessID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTransactions(ctx,
		selectTransaction+` WHERE business_id = ? ORDER BY created_at DESC`, biz)
}

const selectTransaction = `
	SELECT id, business_id, tx_type, amount, category, alloc_kind,
	       alloc_item_id, alloc_quantity, invoice_ref, version,
	       created_at, updated_at
	FROM transactions`

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		tx         ledger.Transaction
		amount     string
		category   sql.NullString
		kind       string
		itemID     sql.NullString
		quantity   sql.NullInt64
		invoiceRef sql.NullString
		createdAt  string
		updatedAt  string
	)
	err := rows.Scan(&tx.ID, &tx.BusinessID, &tx.Type, &amount, &category,
		&kind, &itemID, &quantity, &invoiceRef, &tx.Version, &createdAt, &updatedAt)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Amount = parseDecimal(amount)
	tx.Category = category.String
	tx.InvoiceRef = invoiceRef.String
	tx.Allocation = ledger.Allocation{
		Kind:     ledger.AllocationKind(kind),
		ItemID:   ledger.ItemID(itemID.String),
		Quantity: quantity.Int64,
	}
	tx.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	tx.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return tx, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func allocKind(a ledger.Allocation) string {
	if a.Kind == "" {
		return string(ledger.AllocNone)
	}
	return string(a.Kind)
}

func allocItem(a ledger.Allocation) sql.NullString {
	if !a.Linked() {
		return sql.NullString{}
	}
	return sql.NullString{String: string(a.ItemID), Valid: true}
}

func allocQuantity(a ledger.Allocation) sql.NullInt64 {
	if !a.Linked() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: a.Quantity, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Package store provides in-memory store implementations for testing/dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/brightbooks/ledger-engine/ledger"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MEMORY STORE - implements ledger.InventoryStore and ledger.TransactionStore
// =============================================================================

type Memory struct {
	mu    sync.Mutex
	items map[ledger.ItemID]*ledger.InventoryItem
	txs   map[ledger.TransactionID]*ledger.Transaction
	order []ledger.TransactionID // insertion order, for newest-first listing
}

func NewMemory() *Memory {
	return &Memory{
		items: make(map[ledger.ItemID]*ledger.InventoryItem),
		txs:   make(map[ledger.TransactionID]*ledger.Transaction),
	}
}

// =============================================================================
// INVENTORY STORE
// =============================================================================

func (m *Memory) CreateItem(_ context.Context, item *ledger.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *Memory) Item(_ context.Context, id ledger.ItemID) (*ledger.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, ledger.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *Memory) ItemsForBusiness(_ context.Context, biz ledger.BusinessID) ([]ledger.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterItems(biz, func(*ledger.InventoryItem) bool { return true }), nil
}

func (m *Memory) AvailableItems(_ context.Context, biz ledger.BusinessID) ([]ledger.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterItems(biz, func(it *ledger.InventoryItem) bool { return it.Quantity > 0 }), nil
}

func (m *Memory) LowStockItems(_ context.Context, biz ledger.BusinessID, threshold int64) ([]ledger.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterItems(biz, func(it *ledger.InventoryItem) bool { return it.Quantity < threshold }), nil
}

func (m *Memory) filterItems(biz ledger.BusinessID, keep func(*ledger.InventoryItem) bool) []ledger.InventoryItem {
	var out []ledger.InventoryItem
	for _, item := range m.items {
		if item.BusinessID == biz && keep(item) {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TryReserve checks and decrements under the same lock acquisition, so no
// concurrent caller can observe an interleaved read-then-write window.
func (m *Memory) TryReserve(_ context.Context, id ledger.ItemID, qty int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return ledger.ErrItemNotFound
	}
	if item.Quantity < qty {
		return &ledger.InsufficientStockError{Item: id, Available: item.Quantity, Requested: qty}
	}
	item.Quantity -= qty
	return nil
}

func (m *Memory) Release(_ context.Context, id ledger.ItemID, qty int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return ledger.ErrItemNotFound
	}
	item.Quantity += qty
	return nil
}

func (m *Memory) CostPrice(_ context.Context, id ledger.ItemID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return decimal.Zero, ledger.ErrItemNotFound
	}
	return item.CostPrice, nil
}

func (m *Memory) SetCostPrice(_ context.Context, id ledger.ItemID, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return ledger.ErrItemNotFound
	}
	item.CostPrice = price
	return nil
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

func (m *Memory) Insert(_ context.Context, tx *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *tx
	m.txs[tx.ID] = &copied
	m.order = append(m.order, tx.ID)
	return nil
}

func (m *Memory) Transaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	copied := *tx
	return &copied, nil
}

func (m *Memory) Update(_ context.Context, tx *ledger.Transaction, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.txs[tx.ID]
	if !ok {
		return ledger.ErrTransactionNotFound
	}
	if cur.Version != expectedVersion {
		return ledger.ErrStaleAllocation
	}
	copied := *tx
	m.txs[tx.ID] = &copied
	return nil
}

func (m *Memory) Delete(_ context.Context, id ledger.TransactionID, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.txs[id]
	if !ok {
		return ledger.ErrTransactionNotFound
	}
	if cur.Version != expectedVersion {
		return ledger.ErrStaleAllocation
	}
	delete(m.txs, id)
	for i, other := range m.order {
		if other == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) TransactionsForBusiness(_ context.Context, biz ledger.BusinessID) ([]ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ledger.Transaction
	for i := len(m.order) - 1; i >= 0; i-- {
		tx, ok := m.txs[m.order[i]]
		if ok && tx.BusinessID == biz {
			out = append(out, *tx)
		}
	}
	return out, nil
}

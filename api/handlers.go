/*
handlers.go - HTTP API handlers for the bookkeeping ledger

PURPOSE:
  Exposes the inventory-allocation ledger via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Inventory:
    POST   /api/inventory                 Create item (owner)
    GET    /api/inventory                 List items (owner)
    GET    /api/inventory/available       Items with stock on hand
    GET    /api/inventory/low_stock       Items under the threshold
    GET    /api/inventory/{id}            Item details
    PUT    /api/inventory/{id}/cost_price Update live unit cost (owner)

  Transactions:
    POST   /api/transactions              Create (any role)
    GET    /api/transactions              List for a business
    GET    /api/transactions/{id}         Details
    PUT    /api/transactions/{id}         Amend (owner, accountant)
    DELETE /api/transactions/{id}         Delete (owner, accountant)

  Reports:
    GET    /api/reports/summary           Income/expense totals
    GET    /api/reports/weekly            Last 7 days series
    GET    /api/reports/monthly           Last 12 months series
    GET    /api/reports/categories        Expense totals by category

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: validation errors, invalid input
  - 404: missing item or transaction
  - 409: insufficient stock, stale allocation (retryable conflicts)
  - 500: internal errors

SEE ALSO:
  - dto.go: request/response data structures
  - server.go: router setup, middleware and role gate
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brightbooks/ledger-engine/ledger"
	"github.com/brightbooks/ledger-engine/reporting"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Items   ledger.InventoryStore
	Ledger  *ledger.Ledger
	Txs     ledger.TransactionStore
	Reports *reporting.Service

	// LowStockThreshold is the default for /inventory/low_stock when the
	// caller does not pass one.
	LowStockThreshold int64
}

// NewHandler creates a new handler over the given stores.
func NewHandler(items ledger.InventoryStore, txs ledger.TransactionStore) *Handler {
	return &Handler{
		Items:             items,
		Ledger:            ledger.NewLedger(items, txs),
		Txs:               txs,
		Reports:           reporting.NewService(txs),
		LowStockThreshold: 5,
	}
}

// =============================================================================
// INVENTORY HANDLERS
// =============================================================================

// CreateItem creates a new inventory item.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.BusinessID) == "" {
		writeError(w, http.StatusBadRequest, "business_id is required", nil)
		return
	}
	if strings.TrimSpace(req.ItemName) == "" {
		writeError(w, http.StatusBadRequest, "item_name is required", nil)
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be greater than 0", nil)
		return
	}
	if req.CostPrice.IsNegative() {
		writeError(w, http.StatusBadRequest, "cost_price must be >= 0", nil)
		return
	}

	item := &ledger.InventoryItem{
		ID:         ledger.ItemID(uuid.NewString()),
		BusinessID: ledger.BusinessID(req.BusinessID),
		Name:       strings.TrimSpace(req.ItemName),
		Category:   strings.TrimSpace(req.Category),
		Quantity:   req.Quantity,
		CostPrice:  req.CostPrice,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Items.CreateItem(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemDTO(*item))
}

// GetItem returns a single inventory item.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := ledger.ItemID(chi.URLParam(r, "id"))
	item, err := h.Items.Item(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(*item))
}

// ListItems returns all items for a business.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	biz, ok := businessParam(w, r)
	if !ok {
		return
	}
	items, err := h.Items.ItemsForBusiness(r.Context(), biz)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list items", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTOs(items))
}

// ListAvailableItems returns items with stock on hand.
func (h *Handler) ListAvailableItems(w http.ResponseWriter, r *http.Request) {
	biz, ok := businessParam(w, r)
	if !ok {
		return
	}
	items, err := h.Items.AvailableItems(r.Context(), biz)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list items", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTOs(items))
}

// ListLowStockItems returns items under the threshold.
func (h *Handler) ListLowStockItems(w http.ResponseWriter, r *http.Request) {
	biz, ok := businessParam(w, r)
	if !ok {
		return
	}
	threshold := h.LowStockThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "threshold must be a non-negative integer", err)
			return
		}
		threshold = parsed
	}
	items, err := h.Items.LowStockItems(r.Context(), biz, threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list items", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTOs(items))
}

// UpdateCostPrice changes an item's live unit cost. Past transactions keep
// their amounts; future expense allocations pick up the new price.
func (h *Handler) UpdateCostPrice(w http.ResponseWriter, r *http.Request) {
	id := ledger.ItemID(chi.URLParam(r, "id"))
	var req UpdateCostPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.CostPrice.IsNegative() {
		writeError(w, http.StatusBadRequest, "cost_price must be >= 0", nil)
		return
	}
	if err := h.Items.SetCostPrice(r.Context(), id, req.CostPrice); err != nil {
		writeLedgerError(w, err)
		return
	}
	item, err := h.Items.Item(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(*item))
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// CreateTransaction records a new transaction, reserving stock when the
// request carries an expense allocation.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTransactionRequest(w, r)
	if !ok {
		return
	}
	tx, err := h.Ledger.Create(r.Context(), toRequest(req))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// GetTransaction returns a single transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	tx, err := h.Txs.Transaction(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// ListTransactions returns a business's transactions, newest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	biz, ok := businessParam(w, r)
	if !ok {
		return
	}
	txs, err := h.Txs.TransactionsForBusiness(r.Context(), biz)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// AmendTransaction replaces a transaction's type, amount and allocation.
func (h *Handler) AmendTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	req, ok := decodeTransactionRequest(w, r)
	if !ok {
		return
	}
	tx, err := h.Ledger.Amend(r.Context(), id, toRequest(req))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// DeleteTransaction removes a transaction, releasing any live expense
// allocation back to its item.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	if err := h.Ledger.Delete(r.Context(), id); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// =============================================================================
// REPORTING HANDLERS
// =============================================================================

// GetSummary returns income/expense totals for a business.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	biz, ok := businessParam(w, r)
	if !ok {
		return
	}
	summary, err := h.Reports.Summary(r.Context(), biz)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute summary", err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{Income: summary.Income, Expense: summary.Expense})
}

// GetWeekly returns the last 7 days as labeled buckets.
func (h *Handler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	biz, ok := businessParam(w, r)
	if !ok {
		return
	}
	buckets, err := h.Reports.Weekly(r.Context(), biz, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute weekly series", err)
		return
	}
	writeJSON(w, http.StatusOK, toBucketDTOs(buckets))
}

// GetMonthly returns the last 12 months as labeled buckets.
func (h *Handler) GetMonthly(w http.ResponseWriter, r *http.Request) {
	biz, ok := businessParam(w, r)
	if !ok {
		return
	}
	buckets, err := h.Reports.Monthly(r.Context(), biz, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute monthly series", err)
		return
	}
	writeJSON(w, http.StatusOK, toBucketDTOs(buckets))
}

// GetCategories returns expense totals grouped by category.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	biz, ok := businessParam(w, r)
	if !ok {
		return
	}
	totals, err := h.Reports.ExpenseByCategory(r.Context(), biz)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute categories", err)
		return
	}
	dtos := make([]CategoryTotalDTO, len(totals))
	for i, t := range totals {
		dtos[i] = CategoryTotalDTO{Category: t.Category, Amount: t.Amount}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeTransactionRequest(w http.ResponseWriter, r *http.Request) (TransactionRequest, bool) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, false
	}
	if !ledger.TransactionType(req.Type).Valid() {
		writeError(w, http.StatusBadRequest, "type must be Income or Expense", nil)
		return req, false
	}
	return req, true
}

func businessParam(w http.ResponseWriter, r *http.Request) (ledger.BusinessID, bool) {
	biz := r.URL.Query().Get("business_id")
	if biz == "" {
		writeError(w, http.StatusBadRequest, "business_id is required", nil)
		return "", false
	}
	return ledger.BusinessID(biz), true
}

// writeLedgerError maps ledger errors onto HTTP statuses: validation to
// 400, missing records to 404, recoverable conflicts to 409.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "Insufficient stock", err)
	case ledger.IsRetryable(err):
		writeError(w, http.StatusConflict, "Transaction changed concurrently, retry", err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Code = err.Error()
	}
	writeJSON(w, status, resp)
}

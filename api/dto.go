/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

VALIDATION:
  Shape validation (parseable numbers, known enum values) happens in the
  handlers; business-rule validation lives in the ledger. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: uses these types
*/
package api

import (
	"time"

	"github.com/brightbooks/ledger-engine/ledger"
	"github.com/brightbooks/ledger-engine/reporting"
	"github.com/shopspring/decimal"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ItemDTO represents an inventory item in API responses.
type ItemDTO struct {
	ID         string          `json:"id"`
	BusinessID string          `json:"business_id"`
	ItemName   string          `json:"item_name"`
	Category   string          `json:"category,omitempty"`
	Quantity   int64           `json:"quantity"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	CreatedAt  string          `json:"created_at,omitempty"`
}

// CreateItemRequest is the request to create an inventory item.
type CreateItemRequest struct {
	BusinessID string          `json:"business_id"`
	ItemName   string          `json:"item_name"`
	Category   string          `json:"category,omitempty"`
	Quantity   int64           `json:"quantity"`
	CostPrice  decimal.Decimal `json:"cost_price"`
}

// UpdateCostPriceRequest changes an item's live unit cost.
type UpdateCostPriceRequest struct {
	CostPrice decimal.Decimal `json:"cost_price"`
}

// AllocationDTO represents an inventory link on a transaction.
type AllocationDTO struct {
	Kind         string `json:"kind"`
	InventoryID  string `json:"inventory_id"`
	UsedQuantity int64  `json:"used_quantity"`
}

// TransactionDTO represents a transaction in API responses.
type TransactionDTO struct {
	ID         string          `json:"id"`
	BusinessID string          `json:"business_id"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Category   string          `json:"category,omitempty"`
	Allocation *AllocationDTO  `json:"allocation,omitempty"`
	InvoiceRef string          `json:"invoice_ref,omitempty"`
	Version    int64           `json:"version"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at,omitempty"`
}

// TransactionRequest is the request body for create and amend. A present
// inventory_id makes the entry inventory-linked; amount is ignored for
// linked expenses (it derives from the live cost price).
type TransactionRequest struct {
	BusinessID   string          `json:"business_id"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Category     string          `json:"category,omitempty"`
	InventoryID  string          `json:"inventory_id,omitempty"`
	UsedQuantity int64           `json:"used_quantity,omitempty"`
	InvoiceRef   string          `json:"invoice_ref,omitempty"`
}

// SummaryDTO is the income/expense totals response.
type SummaryDTO struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// BucketDTO is one point of a weekly/monthly series.
type BucketDTO struct {
	Label   string          `json:"label"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// CategoryTotalDTO is one category's expense total.
type CategoryTotalDTO struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toItemDTO(item ledger.InventoryItem) ItemDTO {
	return ItemDTO{
		ID:         string(item.ID),
		BusinessID: string(item.BusinessID),
		ItemName:   item.Name,
		Category:   item.Category,
		Quantity:   item.Quantity,
		CostPrice:  item.CostPrice,
		CreatedAt:  item.CreatedAt.Format(time.RFC3339),
	}
}

func toItemDTOs(items []ledger.InventoryItem) []ItemDTO {
	dtos := make([]ItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toItemDTO(item)
	}
	return dtos
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:         string(tx.ID),
		BusinessID: string(tx.BusinessID),
		Type:       string(tx.Type),
		Amount:     tx.Amount,
		Category:   tx.Category,
		InvoiceRef: tx.InvoiceRef,
		Version:    tx.Version,
		CreatedAt:  tx.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  tx.UpdatedAt.Format(time.RFC3339),
	}
	if tx.Allocation.Linked() {
		dto.Allocation = &AllocationDTO{
			Kind:         string(tx.Allocation.Kind),
			InventoryID:  string(tx.Allocation.ItemID),
			UsedQuantity: tx.Allocation.Quantity,
		}
	}
	return dto
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toBucketDTOs(buckets []reporting.Bucket) []BucketDTO {
	dtos := make([]BucketDTO, len(buckets))
	for i, b := range buckets {
		dtos[i] = BucketDTO{Label: b.Label, Income: b.Income, Expense: b.Expense}
	}
	return dtos
}

func toRequest(r TransactionRequest) ledger.Request {
	return ledger.Request{
		BusinessID: ledger.BusinessID(r.BusinessID),
		Type:       ledger.TransactionType(r.Type),
		Amount:     r.Amount,
		Category:   r.Category,
		InvoiceRef: r.InvoiceRef,
		ItemID:     ledger.ItemID(r.InventoryID),
		Quantity:   r.UsedQuantity,
	}
}

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)

	ListLowStock(ctx context.Context) ([]Response, error)
	SetStock(ctx context.Context, req SetStockRequest) (*StockResponse, error)
	StockAt(ctx context.Context, productID, locationID string) (*StockResponse, error)
}

type ListRequest struct {
	Name    string
	SKU     string
	SortBy  string
	OrderBy string
}

type CreateRequest struct {
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	Price     string  `json:"price"`
	CostPrice *string `json:"cost_price,omitempty"`
	MinStock  *int64  `json:"min_stock,omitempty"`
	TaxExempt *bool   `json:"tax_exempt,omitempty"`
}

type UpdateRequest struct {
	ID        string  `json:"id"`
	Name      *string `json:"name,omitempty"`
	Price     *string `json:"price,omitempty"`
	CostPrice *string `json:"cost_price,omitempty"`
	MinStock  *int64  `json:"min_stock,omitempty"`
	TaxExempt *bool   `json:"tax_exempt,omitempty"`
}

// SetStockRequest replaces the absolute quantity at a location. The
// product aggregate is adjusted by the delta in the same transaction.
type SetStockRequest struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Quantity   int64  `json:"quantity"`
}

type Response struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Name           string           `json:"name"`
	SKU            string           `json:"sku"`
	Price          decimal.Decimal  `json:"price"`
	CostPrice      *decimal.Decimal `json:"cost_price,omitempty"`
	Stock          int64            `json:"stock"`
	MinStock       int64            `json:"min_stock"`
	TaxExempt      bool             `json:"tax_exempt"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type StockResponse struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Quantity   int64  `json:"quantity"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidSKU          = errors.New("invalid_sku")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidID           = errors.New("invalid_id")
	ErrDuplicateSKU        = errors.New("duplicate_sku")

	// ErrStockInconsistent indicates the denormalized product aggregate
	// disagreed with the per-location ledger during a guarded decrement.
	ErrStockInconsistent = errors.New("stock_inconsistent")
)

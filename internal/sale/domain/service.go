package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	// Create validates the cart, computes VAT, and commits the sale and
	// its stock decrements as one atomic unit.
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)

	// ComputeVAT prices a cart without committing anything.
	ComputeVAT(ctx context.Context, items []LineInput) (*VATBreakdown, error)
}

type LineInput struct {
	ProductID string  `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	UnitPrice *string `json:"unit_price,omitempty"`
	UnitCost  *string `json:"unit_cost,omitempty"`
}

type CreateRequest struct {
	LocationID string      `json:"location_id"`
	CustomerID string      `json:"customer_id,omitempty"`
	BranchName string      `json:"branch_name,omitempty"`
	Items      []LineInput `json:"items"`
}

type ListRequest struct {
	From       *time.Time
	To         *time.Time
	LocationID string
	CustomerID string
	Limit      int
}

// VATBreakdown is the priced view of a cart before commit.
type VATBreakdown struct {
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

type LineResponse struct {
	ID        string           `json:"id"`
	ProductID string           `json:"product_id"`
	Quantity  int64            `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
}

type Response struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	UserID         string          `json:"user_id"`
	CustomerID     string          `json:"customer_id,omitempty"`
	LocationID     string          `json:"location_id"`
	BranchName     string          `json:"branch_name,omitempty"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	VATRate        decimal.Decimal `json:"vat_rate"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	CreatedAt      time.Time       `json:"created_at"`
	Lines          []LineResponse  `json:"lines,omitempty"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrEmptyCart           = errors.New("empty_cart")
	ErrMissingLocation     = errors.New("missing_location")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrProductNotFound     = errors.New("product_not_found")
	ErrProductNotStocked   = errors.New("product_not_stocked_at_location")
	ErrInsufficientStock   = errors.New("insufficient_stock")
	ErrTransactionFailed   = errors.New("transaction_failed")
	ErrNotFound            = errors.New("not_found")
)

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	// Summary aggregates the organization's sales, costs, and expenses
	// over a calendar-aligned period window. Empty windows yield zero
	// values, never an error.
	Summary(ctx context.Context, req SummaryRequest) (*Summary, error)
	TopProducts(ctx context.Context, req BreakdownRequest) ([]TopProductEntry, error)
	LocationPerformance(ctx context.Context, req BreakdownRequest) ([]LocationPerformanceEntry, error)
	CustomerPerformance(ctx context.Context, req BreakdownRequest) ([]CustomerPerformanceEntry, error)
}

type SummaryRequest struct {
	Period Period
	// From/To override the period preset with an explicit range.
	From *time.Time
	To   *time.Time
}

type BreakdownRequest struct {
	From       *time.Time
	To         *time.Time
	LocationID string
	CustomerID string
	Limit      int
}

// Summary is the profit-and-loss view of a window. Revenue is
// VAT-exclusive; COGS derives from line-item unit cost snapshots with
// null costs counted as zero.
type Summary struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	TotalSales         int64           `json:"total_sales"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	COGS               decimal.Decimal `json:"cogs"`
	GrossProfit        decimal.Decimal `json:"gross_profit"`
	TaxTotal           decimal.Decimal `json:"tax_total"`
	ExpensesTotal      decimal.Decimal `json:"expenses_total"`
	ProfitBeforeTax    decimal.Decimal `json:"profit_before_tax"`
	EstimatedIncomeTax decimal.Decimal `json:"estimated_income_tax"`
	ProfitAfterTax     decimal.Decimal `json:"profit_after_tax"`

	// LowStockCount reflects current inventory, independent of the window.
	LowStockCount int64 `json:"low_stock_count"`
}

type TopProductEntry struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  int64           `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type LocationPerformanceEntry struct {
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	SaleCount   int64           `json:"sale_count"`
	Revenue     decimal.Decimal `json:"revenue"`
	COGS        decimal.Decimal `json:"cogs"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
}

type CustomerPerformanceEntry struct {
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	City        string          `json:"city,omitempty"`
	State       string          `json:"state,omitempty"`
	LGA         string          `json:"lga,omitempty"`
	Country     string          `json:"country,omitempty"`
	SaleCount   int64           `json:"sale_count"`
	Revenue     decimal.Decimal `json:"revenue"`
	COGS        decimal.Decimal `json:"cogs"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
}

// UnassignedKey buckets sales that carry no location or customer.
const UnassignedKey = "unassigned"

const (
	DefaultTopProductLimit  = 5
	DefaultPerformanceLimit = 10
)

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidPeriod       = errors.New("invalid_period")
	ErrInvalidRange        = errors.New("invalid_range")
)

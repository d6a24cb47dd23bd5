package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// DefaultMinStock is the low-stock threshold applied when a product does
// not configure its own.
const DefaultMinStock = 5

// Product is an org-scoped catalog item. Stock is the denormalized total
// across locations; product_stocks rows are the authoritative per-location
// ledger and both are only ever mutated inside the same transaction.
type Product struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;index:ux_products_org_sku,priority:1"`

	Name      string           `gorm:"type:text;not null"`
	SKU       string           `gorm:"column:sku;type:text;not null;index:ux_products_org_sku,priority:2,unique"`
	Price     decimal.Decimal  `gorm:"type:numeric(18,2);not null"`
	CostPrice *decimal.Decimal `gorm:"column:cost_price;type:numeric(18,2)"`

	Stock     int64 `gorm:"not null;default:0"`
	MinStock  int64 `gorm:"column:min_stock;not null;default:5"`
	TaxExempt bool  `gorm:"column:tax_exempt;not null;default:false"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }

// ProductStock is the per-(product, location) quantity ledger.
// Quantity never goes below zero; decrements are guarded in SQL.
type ProductStock struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	OrgID      snowflake.ID `gorm:"column:org_id;not null;index"`
	ProductID  snowflake.ID `gorm:"column:product_id;not null;index:ux_product_stocks_product_location,priority:1,unique"`
	LocationID snowflake.ID `gorm:"column:location_id;not null;index:ux_product_stocks_product_location,priority:2,unique"`
	Quantity   int64        `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ProductStock) TableName() string { return "product_stocks" }

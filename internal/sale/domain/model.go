package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Sale is the committed record of a point-of-sale transaction. All
// monetary fields are snapshotted at commit time and never mutated.
type Sale struct {
	ID            snowflake.ID    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrgID         snowflake.ID    `gorm:"not null;index:idx_sales_org_created" json:"org_id"`
	UserID        snowflake.ID    `gorm:"not null" json:"user_id"`
	CustomerID    *snowflake.ID   `gorm:"index" json:"customer_id,omitempty"`
	LocationID    snowflake.ID    `gorm:"not null;index" json:"location_id"`
	BranchName    string          `json:"branch_name,omitempty"`
	GrossAmount   decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"gross_amount"`
	TaxableAmount decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"taxable_amount"`
	VATRate       decimal.Decimal `gorm:"column:vat_rate;type:numeric(6,4);not null" json:"vat_rate"`
	TaxAmount     decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"tax_amount"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_amount"`
	CreatedAt     time.Time       `gorm:"not null;index:idx_sales_org_created" json:"created_at"`

	Lines []SaleLineItem `gorm:"-" json:"lines,omitempty"`
}

func (Sale) TableName() string {
	return "sales"
}

// SaleLineItem carries the unit price and unit cost in effect when the
// sale committed. Later product edits never touch these rows.
type SaleLineItem struct {
	ID        snowflake.ID     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrgID     snowflake.ID     `gorm:"not null;index" json:"org_id"`
	SaleID    snowflake.ID     `gorm:"not null;index" json:"sale_id"`
	ProductID snowflake.ID     `gorm:"not null;index" json:"product_id"`
	Quantity  int64            `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal  `gorm:"type:numeric(20,4);not null" json:"unit_price"`
	UnitCost  *decimal.Decimal `gorm:"type:numeric(20,4)" json:"unit_cost,omitempty"`
	CreatedAt time.Time        `gorm:"not null" json:"created_at"`
}

func (SaleLineItem) TableName() string {
	return "sale_line_items"
}

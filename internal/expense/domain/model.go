package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Expense is an operating cost recorded against the organization,
// optionally attributed to a location.
type Expense struct {
	ID          snowflake.ID  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrgID       snowflake.ID  `gorm:"not null;index:idx_expenses_org_incurred" json:"org_id"`
	LocationID  *snowflake.ID `gorm:"index" json:"location_id,omitempty"`
	Category    string        `gorm:"not null" json:"category"`
	Description string        `json:"description,omitempty"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"amount"`
	IncurredAt  time.Time     `gorm:"not null;index:idx_expenses_org_incurred" json:"incurred_at"`
	CreatedBy   snowflake.ID  `json:"created_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

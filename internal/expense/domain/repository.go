package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, expense *Expense) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Expense, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListRequest) ([]Expense, error)
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error

	// SumInWindow totals expense amounts incurred in [from, to).
	SumInWindow(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) (decimal.Decimal, error)
}

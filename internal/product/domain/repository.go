package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is stateless; callers pass the shared handle or an open
// transaction so the sale engine can reuse it inside its atomic commit.
type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Product, error)
	FindByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]Product, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListRequest) ([]Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error

	ListLowStock(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]Product, error)
	CountLowStock(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)

	StockAt(ctx context.Context, db *gorm.DB, orgID, productID, locationID snowflake.ID) (*ProductStock, error)
	StocksAt(ctx context.Context, db *gorm.DB, orgID, locationID snowflake.ID, productIDs []snowflake.ID) ([]ProductStock, error)
	UpsertStock(ctx context.Context, db *gorm.DB, stock *ProductStock) error

	// DecrementStock atomically subtracts qty from the (product, location)
	// row and the product aggregate, guarded so neither can go negative.
	// Returns false without mutating anything when quantity is short.
	DecrementStock(ctx context.Context, db *gorm.DB, orgID, productID, locationID snowflake.ID, qty int64) (bool, error)
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is stateless; the service passes its open transaction so
// the sale row, its lines, and the stock decrements commit together.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sale *Sale) error
	InsertLines(ctx context.Context, db *gorm.DB, lines []SaleLineItem) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Sale, error)
	FindLines(ctx context.Context, db *gorm.DB, orgID, saleID snowflake.ID) ([]SaleLineItem, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListRequest) ([]Sale, error)
}

package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/retailcore/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Take(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Product
	err := db.WithContext(ctx).
		Where("org_id = ? AND id IN ?", orgID, ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListRequest) ([]domain.Product, error) {
	var items []domain.Product
	stmt := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("org_id = ?", orgID)

	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.SKU != "" {
		stmt = stmt.Where("sku = ?", filter.SKU)
	}

	if err := stmt.Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET name = ?, price = ?, cost_price = ?, min_stock = ?, tax_exempt = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		product.Name,
		product.Price,
		product.CostPrice,
		product.MinStock,
		product.TaxExempt,
		product.UpdatedAt,
		product.OrgID,
		product.ID,
	).Error
}

func (r *repo) ListLowStock(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.Product, error) {
	var items []domain.Product
	err := db.WithContext(ctx).
		Where("org_id = ? AND stock < min_stock", orgID).
		Order("stock ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountLowStock(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("org_id = ? AND stock < min_stock", orgID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) StockAt(ctx context.Context, db *gorm.DB, orgID, productID, locationID snowflake.ID) (*domain.ProductStock, error) {
	var stock domain.ProductStock
	err := db.WithContext(ctx).
		Where("org_id = ? AND product_id = ? AND location_id = ?", orgID, productID, locationID).
		Take(&stock).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &stock, nil
}

func (r *repo) StocksAt(ctx context.Context, db *gorm.DB, orgID, locationID snowflake.ID, productIDs []snowflake.ID) ([]domain.ProductStock, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var stocks []domain.ProductStock
	err := db.WithContext(ctx).
		Where("org_id = ? AND location_id = ? AND product_id IN ?", orgID, locationID, productIDs).
		Find(&stocks).Error
	if err != nil {
		return nil, err
	}
	return stocks, nil
}

func (r *repo) UpsertStock(ctx context.Context, db *gorm.DB, stock *domain.ProductStock) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE product_stocks SET quantity = ?, updated_at = ?
		 WHERE org_id = ? AND product_id = ? AND location_id = ?`,
		stock.Quantity,
		time.Now().UTC(),
		stock.OrgID,
		stock.ProductID,
		stock.LocationID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Create(stock).Error
}

func (r *repo) DecrementStock(ctx context.Context, db *gorm.DB, orgID, productID, locationID snowflake.ID, qty int64) (bool, error) {
	now := time.Now().UTC()

	// Guarded decrement: the WHERE clause is the concurrency control.
	// Two competing sales cannot both pass the quantity check because
	// the row update is atomic in the store.
	res := db.WithContext(ctx).Exec(
		`UPDATE product_stocks
		 SET quantity = quantity - ?, updated_at = ?
		 WHERE org_id = ? AND product_id = ? AND location_id = ? AND quantity >= ?`,
		qty,
		now,
		orgID,
		productID,
		locationID,
		qty,
	)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	// Mirror the aggregate inside the same transaction. The guard is a
	// safety net; the ledger row above is the authoritative check.
	res = db.WithContext(ctx).Exec(
		`UPDATE products
		 SET stock = stock - ?, updated_at = ?
		 WHERE org_id = ? AND id = ? AND stock >= ?`,
		qty,
		now,
		orgID,
		productID,
		qty,
	)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, domain.ErrStockInconsistent
	}
	return true, nil
}

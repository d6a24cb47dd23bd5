package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/retailcore/internal/sale/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sale *domain.Sale) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sales (id, org_id, user_id, customer_id, location_id, branch_name,
		 gross_amount, taxable_amount, vat_rate, tax_amount, total_amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID,
		sale.OrgID,
		sale.UserID,
		sale.CustomerID,
		sale.LocationID,
		sale.BranchName,
		sale.GrossAmount,
		sale.TaxableAmount,
		sale.VATRate,
		sale.TaxAmount,
		sale.TotalAmount,
		sale.CreatedAt,
	).Error
}

func (r *repo) InsertLines(ctx context.Context, db *gorm.DB, lines []domain.SaleLineItem) error {
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&lines).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Sale, error) {
	var sale domain.Sale
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Take(&sale).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

func (r *repo) FindLines(ctx context.Context, db *gorm.DB, orgID, saleID snowflake.ID) ([]domain.SaleLineItem, error) {
	var lines []domain.SaleLineItem
	err := db.WithContext(ctx).
		Where("org_id = ? AND sale_id = ?", orgID, saleID).
		Order("id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListRequest) ([]domain.Sale, error) {
	var sales []domain.Sale
	stmt := db.WithContext(ctx).
		Model(&domain.Sale{}).
		Where("org_id = ?", orgID)

	if filter.From != nil {
		stmt = stmt.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("created_at < ?", *filter.To)
	}
	if filter.LocationID != "" {
		locationID, err := snowflake.ParseString(filter.LocationID)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		stmt = stmt.Where("location_id = ?", locationID)
	}
	if filter.CustomerID != "" {
		customerID, err := snowflake.ParseString(filter.CustomerID)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		stmt = stmt.Where("customer_id = ?", customerID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	if err := stmt.Order("created_at DESC, id DESC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

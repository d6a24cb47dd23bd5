package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/retailcore/internal/expense/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, expense *domain.Expense) error {
	return db.WithContext(ctx).Create(expense).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Expense, error) {
	var expense domain.Expense
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Take(&expense).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &expense, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListRequest) ([]domain.Expense, error) {
	var items []domain.Expense
	stmt := db.WithContext(ctx).
		Model(&domain.Expense{}).
		Where("org_id = ?", orgID)

	if filter.LocationID != "" {
		locationID, err := snowflake.ParseString(filter.LocationID)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		stmt = stmt.Where("location_id = ?", locationID)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.From != nil {
		stmt = stmt.Where("incurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("incurred_at < ?", *filter.To)
	}

	if err := stmt.Order("incurred_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.Expense{}).Error
}

func (r *repo) SumInWindow(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) AS total
		 FROM expenses
		 WHERE org_id = ? AND incurred_at >= ? AND incurred_at < ?`,
		orgID, from, to,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

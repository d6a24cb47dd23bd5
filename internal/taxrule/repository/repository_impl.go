package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	taxruledomain "github.com/smallbiznis/retailcore/internal/taxrule/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) taxruledomain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rule *taxruledomain.TaxRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*taxruledomain.TaxRule, error) {
	var rule taxruledomain.TaxRule
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Take(&rule).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *repository) List(ctx context.Context, orgID snowflake.ID, filter taxruledomain.ListRequest) ([]taxruledomain.TaxRule, error) {
	var items []taxruledomain.TaxRule
	stmt := r.db.WithContext(ctx).
		Model(&taxruledomain.TaxRule{}).
		Where("org_id = ?", orgID)

	if filter.Jurisdiction != "" {
		stmt = stmt.Where("jurisdiction = ?", filter.Jurisdiction)
	}
	if filter.TaxType != "" {
		stmt = stmt.Where("tax_type = ?", filter.TaxType)
	}
	if filter.ActiveAt != nil {
		stmt = stmt.Where(
			"effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)",
			*filter.ActiveAt, *filter.ActiveAt,
		)
	}

	if err := stmt.Order("effective_from DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, rule *taxruledomain.TaxRule) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE tax_rules
		 SET rate = ?, effective_from = ?, effective_to = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		rule.Rate,
		rule.EffectiveFrom,
		rule.EffectiveTo,
		rule.UpdatedAt,
		rule.OrgID,
		rule.ID,
	).Error
}

func (r *repository) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&taxruledomain.TaxRule{}).Error
}

func (r *repository) FindActive(ctx context.Context, orgID snowflake.ID, jurisdiction, taxType string, asOf time.Time) ([]taxruledomain.TaxRule, error) {
	var items []taxruledomain.TaxRule
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND jurisdiction = ? AND tax_type = ?", orgID, jurisdiction, taxType).
		Where("effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)", asOf, asOf).
		Order("effective_from DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CountOverlapping(ctx context.Context, orgID snowflake.ID, jurisdiction, taxType string, from time.Time, to *time.Time, excludeID snowflake.ID) (int64, error) {
	stmt := r.db.WithContext(ctx).
		Model(&taxruledomain.TaxRule{}).
		Where("org_id = ? AND jurisdiction = ? AND tax_type = ?", orgID, jurisdiction, taxType)

	if excludeID != 0 {
		stmt = stmt.Where("id != ?", excludeID)
	}

	// Half-open interval intersection: existing.from < new.to AND
	// (existing.to IS NULL OR existing.to > new.from).
	if to != nil {
		stmt = stmt.Where("effective_from < ? AND (effective_to IS NULL OR effective_to > ?)", *to, from)
	} else {
		stmt = stmt.Where("effective_to IS NULL OR effective_to > ?", from)
	}

	var count int64
	if err := stmt.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ExistsForScope(ctx context.Context, orgID snowflake.ID, jurisdiction, taxType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&taxruledomain.TaxRule{}).
		Where("org_id = ? AND jurisdiction = ? AND tax_type = ?", orgID, jurisdiction, taxType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	locationdomain "github.com/smallbiznis/retailcore/internal/location/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) locationdomain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, location *locationdomain.Location) error {
	return r.db.WithContext(ctx).Create(location).Error
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*locationdomain.Location, error) {
	var location locationdomain.Location
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Take(&location).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &location, nil
}

func (r *repository) List(ctx context.Context, orgID snowflake.ID) ([]locationdomain.Location, error) {
	var items []locationdomain.Location
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, location *locationdomain.Location) error {
	return r.db.WithContext(ctx).
		Model(&locationdomain.Location{}).
		Where("org_id = ? AND id = ?", location.OrgID, location.ID).
		Updates(map[string]any{
			"name":       location.Name,
			"code":       location.Code,
			"address":    location.Address,
			"city":       location.City,
			"state":      location.State,
			"country":    location.Country,
			"updated_at": location.UpdatedAt,
		}).Error
}

func (r *repository) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&locationdomain.Location{}).Error
}

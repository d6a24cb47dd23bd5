package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Location is a physical branch or outlet the organization sells from.
type Location struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrgID     snowflake.ID `gorm:"index:idx_locations_org_code,unique;not null" json:"org_id"`
	Name      string       `gorm:"not null" json:"name"`
	Code      string       `gorm:"index:idx_locations_org_code,unique;not null" json:"code"`
	Address   string       `json:"address"`
	City      string       `json:"city"`
	State     string       `json:"state"`
	Country   string       `json:"country"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Location) TableName() string {
	return "locations"
}

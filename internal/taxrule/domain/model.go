package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Tax types understood by the sale engine. Codes are engine-facing and
// must not be renamed once rules reference them.
const (
	TaxTypeVAT = "VAT"
)

// Defaults applied by SeedDefaultVAT when an organization has no rule yet.
var (
	DefaultJurisdiction = "NG"
	DefaultVATRate      = decimal.RequireFromString("0.075")
)

// TaxRule is an org-scoped tax policy with temporal validity. A rule is
// active at instant t when effective_from <= t < effective_to, with a
// null effective_to meaning open-ended.
type TaxRule struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;index:ix_tax_rules_scope,priority:1"`

	Jurisdiction string          `gorm:"type:text;not null;index:ix_tax_rules_scope,priority:2"`
	TaxType      string          `gorm:"column:tax_type;type:text;not null;index:ix_tax_rules_scope,priority:3"`
	Rate         decimal.Decimal `gorm:"type:numeric(6,4);not null"`

	EffectiveFrom time.Time  `gorm:"column:effective_from;not null;index"`
	EffectiveTo   *time.Time `gorm:"column:effective_to"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TaxRule) TableName() string { return "tax_rules" }

// ActiveAt reports whether the rule covers the given instant.
func (r *TaxRule) ActiveAt(ts time.Time) bool {
	if ts.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && !ts.Before(*r.EffectiveTo) {
		return false
	}
	return true
}

func (r *TaxRule) Validate() error {
	if r.Jurisdiction == "" {
		return ErrInvalidJurisdiction
	}
	if r.TaxType == "" {
		return ErrInvalidTaxType
	}
	if r.Rate.IsNegative() {
		return ErrInvalidRate
	}
	if r.EffectiveTo != nil && !r.EffectiveFrom.Before(*r.EffectiveTo) {
		return ErrInvalidEffectiveRange
	}
	return nil
}

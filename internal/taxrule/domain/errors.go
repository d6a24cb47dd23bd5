package domain

import "errors"

var (
	ErrInvalidOrganization   = errors.New("invalid_organization")
	ErrInvalidID             = errors.New("invalid_id")
	ErrNotFound              = errors.New("not_found")
	ErrInvalidJurisdiction   = errors.New("invalid_jurisdiction")
	ErrInvalidTaxType        = errors.New("invalid_tax_type")
	ErrInvalidRate           = errors.New("invalid_rate")
	ErrInvalidEffectiveRange = errors.New("invalid_effective_range")
	ErrOverlappingRule       = errors.New("overlapping_rule")
)

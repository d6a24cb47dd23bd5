package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, rule *TaxRule) error
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*TaxRule, error)
	List(ctx context.Context, orgID snowflake.ID, filter ListRequest) ([]TaxRule, error)
	Update(ctx context.Context, rule *TaxRule) error
	Delete(ctx context.Context, orgID, id snowflake.ID) error

	// FindActive returns every rule covering asOf for the scope, newest
	// effective_from first. Overlaps are a data-entry condition the
	// resolver must break deterministically, so all matches are returned.
	FindActive(ctx context.Context, orgID snowflake.ID, jurisdiction, taxType string, asOf time.Time) ([]TaxRule, error)

	// CountOverlapping counts rules whose validity range intersects
	// [from, to) for the scope, excluding excludeID when non-zero.
	CountOverlapping(ctx context.Context, orgID snowflake.ID, jurisdiction, taxType string, from time.Time, to *time.Time, excludeID snowflake.ID) (int64, error)

	ExistsForScope(ctx context.Context, orgID snowflake.ID, jurisdiction, taxType string) (bool, error)
}

package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/retailcore/internal/orgcontext"
	"github.com/smallbiznis/retailcore/internal/taxrule/domain"
	"go.uber.org/fx"
)

type resolverParam struct {
	fx.In

	Repository domain.Repository
}

type resolver struct {
	repo domain.Repository
}

func NewResolver(p resolverParam) domain.RateResolver {
	return &resolver{repo: p.Repository}
}

// ResolveActiveRate picks the active rule for the scope. Overlapping rules
// are a data-entry error the engine does not prevent at read time; the tie
// is broken deterministically by latest effective_from, then highest id.
func (r *resolver) ResolveActiveRate(ctx context.Context, jurisdiction, taxType string, asOf time.Time) (decimal.Decimal, bool, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return decimal.Zero, false, domain.ErrInvalidOrganization
	}

	rules, err := r.repo.FindActive(ctx, orgID, jurisdiction, taxType, asOf)
	if err != nil {
		return decimal.Zero, false, err
	}
	if len(rules) == 0 {
		return decimal.Zero, false, nil
	}
	return rules[0].Rate, true, nil
}

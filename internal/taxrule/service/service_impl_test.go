package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/retailcore/internal/orgcontext"
	"github.com/smallbiznis/retailcore/internal/taxrule/domain"
	"github.com/smallbiznis/retailcore/internal/taxrule/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTaxRuleTest(t *testing.T) (*gorm.DB, domain.Service, domain.RateResolver, context.Context, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.TaxRule{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.NewRepository(db)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repo,
	})
	resolver := NewResolver(resolverParam{Repository: repo})

	ctx := orgcontext.WithOrgID(context.Background(), int64(node.Generate()))
	return db, svc, resolver, ctx, node
}

func TestCreateRejectsOverlappingRule(t *testing.T) {
	_, svc, _, ctx, _ := setupTaxRuleTest(t)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(ctx, domain.CreateRequest{
		Jurisdiction:  "NG",
		TaxType:       "VAT",
		Rate:          "0.075",
		EffectiveFrom: from,
	})
	require.NoError(t, err)

	// Open-ended first rule intersects any later start.
	_, err = svc.Create(ctx, domain.CreateRequest{
		Jurisdiction:  "NG",
		TaxType:       "VAT",
		Rate:          "0.10",
		EffectiveFrom: from.AddDate(0, 6, 0),
	})
	assert.ErrorIs(t, err, domain.ErrOverlappingRule)
}

func TestCreateAllowsAdjacentWindows(t *testing.T) {
	_, svc, _, ctx, _ := setupTaxRuleTest(t)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	_, err := svc.Create(ctx, domain.CreateRequest{
		Jurisdiction:  "NG",
		TaxType:       "VAT",
		Rate:          "0.05",
		EffectiveFrom: from,
		EffectiveTo:   &to,
	})
	require.NoError(t, err)

	// Half-open windows: a rule starting exactly at the previous end
	// does not overlap.
	_, err = svc.Create(ctx, domain.CreateRequest{
		Jurisdiction:  "NG",
		TaxType:       "VAT",
		Rate:          "0.075",
		EffectiveFrom: to,
	})
	assert.NoError(t, err)
}

func TestCreateRejectsInvalidRate(t *testing.T) {
	_, svc, _, ctx, _ := setupTaxRuleTest(t)

	_, err := svc.Create(ctx, domain.CreateRequest{
		Jurisdiction:  "NG",
		Rate:          "seven percent",
		EffectiveFrom: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRate)

	_, err = svc.Create(ctx, domain.CreateRequest{
		Jurisdiction:  "NG",
		Rate:          "-0.05",
		EffectiveFrom: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRate)
}

func TestSeedDefaultVATIsIdempotent(t *testing.T) {
	db, svc, _, ctx, _ := setupTaxRuleTest(t)

	first, err := svc.SeedDefaultVAT(ctx)
	require.NoError(t, err)
	assert.True(t, domain.DefaultVATRate.Equal(first.Rate))

	second, err := svc.SeedDefaultVAT(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&domain.TaxRule{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestResolveActiveRatePicksLatestEffectiveFrom(t *testing.T) {
	db, _, resolver, ctx, node := setupTaxRuleTest(t)

	orgID, _ := orgcontext.OrgIDFromContext(ctx)
	now := time.Now().UTC()

	// Two overlapping rules inserted directly, bypassing write-time
	// rejection, to exercise the deterministic tie break.
	older := domain.TaxRule{
		ID:            node.Generate(),
		OrgID:         orgID,
		Jurisdiction:  "NG",
		TaxType:       "VAT",
		Rate:          decimal.RequireFromString("0.05"),
		EffectiveFrom: now.AddDate(-2, 0, 0),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	newer := domain.TaxRule{
		ID:            node.Generate(),
		OrgID:         orgID,
		Jurisdiction:  "NG",
		TaxType:       "VAT",
		Rate:          decimal.RequireFromString("0.075"),
		EffectiveFrom: now.AddDate(-1, 0, 0),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, db.Create(&older).Error)
	require.NoError(t, db.Create(&newer).Error)

	rate, found, err := resolver.ResolveActiveRate(ctx, "NG", "VAT", now)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, decimal.RequireFromString("0.075").Equal(rate))
}

func TestResolveActiveRateRespectsEffectiveTo(t *testing.T) {
	db, _, resolver, ctx, node := setupTaxRuleTest(t)

	orgID, _ := orgcontext.OrgIDFromContext(ctx)
	now := time.Now().UTC()
	ended := now.AddDate(0, -1, 0)

	rule := domain.TaxRule{
		ID:            node.Generate(),
		OrgID:         orgID,
		Jurisdiction:  "NG",
		TaxType:       "VAT",
		Rate:          decimal.RequireFromString("0.075"),
		EffectiveFrom: now.AddDate(-1, 0, 0),
		EffectiveTo:   &ended,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, db.Create(&rule).Error)

	_, found, err := resolver.ResolveActiveRate(ctx, "NG", "VAT", now)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpdateRuleValidatesRange(t *testing.T) {
	_, svc, _, ctx, _ := setupTaxRuleTest(t)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	created, err := svc.Create(ctx, domain.CreateRequest{
		Jurisdiction:  "NG",
		TaxType:       "VAT",
		Rate:          "0.075",
		EffectiveFrom: from,
	})
	require.NoError(t, err)

	badEnd := from.AddDate(-1, 0, 0)
	_, err = svc.Update(ctx, domain.UpdateRequest{
		ID:          created.ID,
		EffectiveTo: &badEnd,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEffectiveRange)
}

func TestOperationsRequireOrganization(t *testing.T) {
	_, svc, resolver, _, _ := setupTaxRuleTest(t)

	ctx := context.Background()
	_, err := svc.List(ctx, domain.ListRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	_, _, err = resolver.ResolveActiveRate(ctx, "NG", "VAT", time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

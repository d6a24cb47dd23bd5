package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/retailcore/internal/expense/domain"
	"github.com/smallbiznis/retailcore/internal/expense/repository"
	"github.com/smallbiznis/retailcore/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupExpenseTest(t *testing.T) (*gorm.DB, domain.Service, domain.Repository, context.Context, snowflake.ID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Expense{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.Provide()
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repo,
	})

	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	return db, svc, repo, ctx, orgID
}

func TestCreateExpenseValidation(t *testing.T) {
	_, svc, _, ctx, _ := setupExpenseTest(t)

	_, err := svc.Create(ctx, domain.CreateRequest{Category: "", Amount: "100"})
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)

	_, err = svc.Create(ctx, domain.CreateRequest{Category: "rent", Amount: "0"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Create(ctx, domain.CreateRequest{Category: "rent", Amount: "-5"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCreateExpenseDefaultsIncurredAt(t *testing.T) {
	_, svc, _, ctx, _ := setupExpenseTest(t)

	before := time.Now().UTC()
	resp, err := svc.Create(ctx, domain.CreateRequest{Category: "fuel", Amount: "250.50"})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("250.50").Equal(resp.Amount))
	assert.False(t, resp.IncurredAt.Before(before))
}

func TestSumInWindowIsHalfOpen(t *testing.T) {
	db, svc, repo, ctx, orgID := setupExpenseTest(t)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	inWindow := from.Add(time.Hour)
	atEnd := to
	beforeWindow := from.Add(-time.Hour)

	for _, tc := range []struct {
		amount string
		at     time.Time
	}{
		{"100", inWindow},
		{"40", from}, // inclusive start
		{"999", atEnd},
		{"999", beforeWindow},
	} {
		at := tc.at
		_, err := svc.Create(ctx, domain.CreateRequest{
			Category:   "misc",
			Amount:     tc.amount,
			IncurredAt: &at,
		})
		require.NoError(t, err)
	}

	total, err := repo.SumInWindow(context.Background(), db, orgID, from, to)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("140").Equal(total), "total %s", total)
}

func TestDeleteExpense(t *testing.T) {
	_, svc, _, ctx, _ := setupExpenseTest(t)

	resp, err := svc.Create(ctx, domain.CreateRequest{Category: "rent", Amount: "100"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, resp.ID))
	assert.ErrorIs(t, svc.Delete(ctx, resp.ID), domain.ErrNotFound)

	_, err = svc.Get(ctx, resp.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

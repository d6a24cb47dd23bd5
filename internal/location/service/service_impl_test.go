package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/retailcore/internal/location/domain"
	"github.com/smallbiznis/retailcore/internal/location/repository"
	"github.com/smallbiznis/retailcore/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupLocationTest(t *testing.T) (domain.Service, context.Context) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Location{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.NewRepository(db),
	})

	ctx := orgcontext.WithOrgID(context.Background(), int64(node.Generate()))
	return svc, ctx
}

func TestCreateLocationSlugsCode(t *testing.T) {
	svc, ctx := setupLocationTest(t)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Name:  "Ikeja Main Branch",
		City:  "Ikeja",
		State: "Lagos",
	})
	require.NoError(t, err)

	assert.Equal(t, "ikeja-main-branch", resp.Code)
	assert.Equal(t, "Ikeja Main Branch", resp.Name)
}

func TestCreateLocationRejectsDuplicateCode(t *testing.T) {
	svc, ctx := setupLocationTest(t)

	_, err := svc.Create(ctx, domain.CreateRequest{Name: "Ikeja Main Branch"})
	require.NoError(t, err)

	// Different casing slugs to the same code.
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "IKEJA MAIN BRANCH"})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestUpdateLocationRecomputesCode(t *testing.T) {
	svc, ctx := setupLocationTest(t)

	created, err := svc.Create(ctx, domain.CreateRequest{Name: "Ikeja Main Branch"})
	require.NoError(t, err)

	newName := "Lekki Outlet"
	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: created.ID, Name: &newName})
	require.NoError(t, err)

	assert.Equal(t, "lekki-outlet", updated.Code)
}

func TestDeleteLocation(t *testing.T) {
	svc, ctx := setupLocationTest(t)

	created, err := svc.Create(ctx, domain.CreateRequest{Name: "Ikeja"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), domain.ErrNotFound)
}

func TestLocationRequiresOrganization(t *testing.T) {
	svc, _ := setupLocationTest(t)

	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/retailcore/internal/customer/domain"
	"github.com/smallbiznis/retailcore/internal/customer/repository"
	"github.com/smallbiznis/retailcore/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupCustomerTest(t *testing.T) (*gorm.DB, domain.Service, domain.Repository, context.Context, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Customer{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.Provide()
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repo,
	})

	ctx := orgcontext.WithOrgID(context.Background(), int64(node.Generate()))
	return db, svc, repo, ctx, node
}

func TestCreateCustomerValidation(t *testing.T) {
	_, svc, _, ctx, _ := setupCustomerTest(t)

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ada", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	// Walk-in customers carry no email at all.
	created, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ada", LGA: "Ikeja"})
	require.NoError(t, err)
	assert.Empty(t, created.Email)
	assert.Equal(t, "Ikeja", created.LGA)
}

func TestGetCustomerRoundtrip(t *testing.T) {
	_, svc, _, ctx, _ := setupCustomerTest(t)

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:    "Ada Obi",
		Email:   "ada@example.com",
		City:    "Ikeja",
		State:   "Lagos",
		Country: "NG",
	})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Lagos", got.State)
}

func TestUpdateCustomerPartial(t *testing.T) {
	_, svc, _, ctx, _ := setupCustomerTest(t)

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ada", City: "Ikeja"})
	require.NoError(t, err)

	newState := "Lagos"
	updated, err := svc.Update(ctx, domain.UpdateCustomerRequest{
		ID:    created.ID.String(),
		State: &newState,
	})
	require.NoError(t, err)

	assert.Equal(t, "Lagos", updated.State)
	assert.Equal(t, "Ikeja", updated.City)
}

func TestListCustomersCursorPagination(t *testing.T) {
	db, svc, repo, ctx, node := setupCustomerTest(t)

	orgID, _ := orgcontext.OrgIDFromContext(ctx)

	// Second-aligned timestamps so the cursor's RFC3339 precision matches
	// the stored values exactly.
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		customer := domain.Customer{
			ID:        node.Generate(),
			OrgID:     orgID,
			Name:      "Customer",
			Metadata:  datatypes.JSONMap{},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Insert(context.Background(), db, &customer))
	}

	first, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Customers, 2)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	// Newest first.
	assert.True(t, first.Customers[0].CreatedAt.After(first.Customers[1].CreatedAt))

	second, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Customers, 2)
	assert.True(t, second.HasMore)
	assert.True(t, first.Customers[1].CreatedAt.After(second.Customers[0].CreatedAt))

	third, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 2, PageToken: second.NextPageToken})
	require.NoError(t, err)
	require.Len(t, third.Customers, 1)
	assert.False(t, third.HasMore)
}

func TestListCustomersFilterByCity(t *testing.T) {
	_, svc, _, ctx, _ := setupCustomerTest(t)

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ada", City: "Ikeja"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Bola", City: "Lekki"})
	require.NoError(t, err)

	resp, err := svc.List(ctx, domain.ListCustomerRequest{City: "Ikeja"})
	require.NoError(t, err)
	require.Len(t, resp.Customers, 1)
	assert.Equal(t, "Ada", resp.Customers[0].Name)
}

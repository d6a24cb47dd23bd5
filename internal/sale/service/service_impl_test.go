package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/retailcore/internal/clock"
	"github.com/smallbiznis/retailcore/internal/config"
	"github.com/smallbiznis/retailcore/internal/orgcontext"
	productdomain "github.com/smallbiznis/retailcore/internal/product/domain"
	productrepo "github.com/smallbiznis/retailcore/internal/product/repository"
	"github.com/smallbiznis/retailcore/internal/sale/domain"
	salerepo "github.com/smallbiznis/retailcore/internal/sale/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubResolver struct {
	rate  decimal.Decimal
	found bool
}

func (r *stubResolver) ResolveActiveRate(ctx context.Context, jurisdiction, taxType string, asOf time.Time) (decimal.Decimal, bool, error) {
	return r.rate, r.found, nil
}

type saleFixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	svc      domain.Service
	products productdomain.Repository
	orgID    snowflake.ID
	ctx      context.Context
}

func setupSaleTest(t *testing.T, resolver *stubResolver) *saleFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&productdomain.Product{},
		&productdomain.ProductStock{},
		&domain.Sale{},
		&domain.SaleLineItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Config:   config.Config{Jurisdiction: "NG"},
		Clock:    clock.NewSystemClock(),
		GenID:    node,
		Repo:     salerepo.Provide(),
		Products: productrepo.Provide(),
		Rates:    resolver,
	})

	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	ctx = orgcontext.WithUserID(ctx, int64(node.Generate()))

	return &saleFixture{
		db:       db,
		node:     node,
		svc:      svc,
		products: productrepo.Provide(),
		orgID:    orgID,
		ctx:      ctx,
	}
}

func (f *saleFixture) createProduct(t *testing.T, price string, taxExempt bool) *productdomain.Product {
	t.Helper()
	now := time.Now().UTC()
	cost := decimal.RequireFromString(price).Div(decimal.NewFromInt(2))
	p := &productdomain.Product{
		ID:        f.node.Generate(),
		OrgID:     f.orgID,
		Name:      "product-" + f.node.Generate().String(),
		SKU:       "sku-" + f.node.Generate().String(),
		Price:     decimal.RequireFromString(price),
		CostPrice: &cost,
		MinStock:  2,
		TaxExempt: taxExempt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *saleFixture) stock(t *testing.T, productID, locationID snowflake.ID, qty int64) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, f.db.Create(&productdomain.ProductStock{
		ID:         f.node.Generate(),
		OrgID:      f.orgID,
		ProductID:  productID,
		LocationID: locationID,
		Quantity:   qty,
		CreatedAt:  now,
		UpdatedAt:  now,
	}).Error)
	require.NoError(t, f.db.Exec(
		`UPDATE products SET stock = stock + ? WHERE id = ?`, qty, productID,
	).Error)
}

func TestCreateSaleComputesVATAndDecrementsStock(t *testing.T) {
	f := setupSaleTest(t, &stubResolver{rate: decimal.RequireFromString("0.075"), found: true})

	taxed := f.createProduct(t, "500", false)
	exempt := f.createProduct(t, "500", true)
	locationID := f.node.Generate()
	f.stock(t, taxed.ID, locationID, 5)
	f.stock(t, exempt.ID, locationID, 5)

	resp, err := f.svc.Create(f.ctx, domain.CreateRequest{
		LocationID: locationID.String(),
		BranchName: "Ikeja",
		Items: []domain.LineInput{
			{ProductID: taxed.ID.String(), Quantity: 2},
			{ProductID: exempt.ID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)

	// 2 x 500 taxable + 1 x 500 exempt at 7.5%.
	assert.True(t, decimal.RequireFromString("1500").Equal(resp.GrossAmount), "gross %s", resp.GrossAmount)
	assert.True(t, decimal.RequireFromString("1000").Equal(resp.TaxableAmount), "taxable %s", resp.TaxableAmount)
	assert.True(t, decimal.RequireFromString("75").Equal(resp.TaxAmount), "tax %s", resp.TaxAmount)
	assert.True(t, decimal.RequireFromString("1575").Equal(resp.TotalAmount), "total %s", resp.TotalAmount)
	assert.True(t, resp.GrossAmount.Add(resp.TaxAmount).Equal(resp.TotalAmount))
	assert.Len(t, resp.Lines, 2)

	var ledger productdomain.ProductStock
	require.NoError(t, f.db.Where("product_id = ? AND location_id = ?", taxed.ID, locationID).Take(&ledger).Error)
	assert.Equal(t, int64(3), ledger.Quantity)

	var aggregate productdomain.Product
	require.NoError(t, f.db.Where("id = ?", taxed.ID).Take(&aggregate).Error)
	assert.Equal(t, int64(3), aggregate.Stock)
}

func TestCreateSaleMissingLocationWritesNothing(t *testing.T) {
	f := setupSaleTest(t, &stubResolver{rate: decimal.RequireFromString("0.075"), found: true})

	p := f.createProduct(t, "100", false)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		Items: []domain.LineInput{{ProductID: p.ID.String(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrMissingLocation)

	var count int64
	require.NoError(t, f.db.Model(&domain.Sale{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateSaleEmptyCart(t *testing.T) {
	f := setupSaleTest(t, &stubResolver{found: false})

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		LocationID: f.node.Generate().String(),
	})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCreateSaleRequiresUser(t *testing.T) {
	f := setupSaleTest(t, &stubResolver{found: false})
	p := f.createProduct(t, "100", false)

	ctx := orgcontext.WithOrgID(context.Background(), int64(f.orgID))
	_, err := f.svc.Create(ctx, domain.CreateRequest{
		LocationID: f.node.Generate().String(),
		Items:      []domain.LineInput{{ProductID: p.ID.String(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}

func TestCreateSaleProductNotStocked(t *testing.T) {
	f := setupSaleTest(t, &stubResolver{rate: decimal.RequireFromString("0.075"), found: true})

	p := f.createProduct(t, "100", false)
	locationID := f.node.Generate()

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		LocationID: locationID.String(),
		Items:      []domain.LineInput{{ProductID: p.ID.String(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrProductNotStocked)
}

func TestCreateSaleInsufficientStockSequential(t *testing.T) {
	f := setupSaleTest(t, &stubResolver{rate: decimal.RequireFromString("0.075"), found: true})

	p := f.createProduct(t, "100", false)
	locationID := f.node.Generate()
	f.stock(t, p.ID, locationID, 5)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		LocationID: locationID.String(),
		Items:      []domain.LineInput{{ProductID: p.ID.String(), Quantity: 3}},
	})
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, domain.CreateRequest{
		LocationID: locationID.String(),
		Items:      []domain.LineInput{{ProductID: p.ID.String(), Quantity: 3}},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var ledger productdomain.ProductStock
	require.NoError(t, f.db.Where("product_id = ? AND location_id = ?", p.ID, locationID).Take(&ledger).Error)
	assert.Equal(t, int64(2), ledger.Quantity)

	var committed int64
	require.NoError(t, f.db.Model(&domain.Sale{}).Count(&committed).Error)
	assert.Equal(t, int64(1), committed)
}

func TestCreateSaleSumsRepeatedProductLines(t *testing.T) {
	f := setupSaleTest(t, &stubResolver{rate: decimal.RequireFromString("0.075"), found: true})

	p := f.createProduct(t, "100", false)
	locationID := f.node.Generate()
	f.stock(t, p.ID, locationID, 5)

	// Two lines of the same product totalling 6 against stock 5.
	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		LocationID: locationID.String(),
		Items: []domain.LineInput{
			{ProductID: p.ID.String(), Quantity: 3},
			{ProductID: p.ID.String(), Quantity: 3},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestComputeVATZeroRateWhenNoActiveRule(t *testing.T) {
	f := setupSaleTest(t, &stubResolver{found: false})

	p := f.createProduct(t, "250", false)

	breakdown, err := f.svc.ComputeVAT(f.ctx, []domain.LineInput{
		{ProductID: p.ID.String(), Quantity: 4},
	})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("1000").Equal(breakdown.GrossAmount))
	assert.True(t, breakdown.VATRate.IsZero())
	assert.True(t, breakdown.TaxAmount.IsZero())
	assert.True(t, breakdown.GrossAmount.Equal(breakdown.TotalAmount))
}

func TestComputeVATHonorsPriceOverride(t *testing.T) {
	f := setupSaleTest(t, &stubResolver{rate: decimal.RequireFromString("0.075"), found: true})

	p := f.createProduct(t, "500", false)
	override := "400"

	breakdown, err := f.svc.ComputeVAT(f.ctx, []domain.LineInput{
		{ProductID: p.ID.String(), Quantity: 1, UnitPrice: &override},
	})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("400").Equal(breakdown.GrossAmount))
	assert.True(t, decimal.RequireFromString("30").Equal(breakdown.TaxAmount))
}

func TestComputeVATRoundsTaxOnce(t *testing.T) {
	f := setupSaleTest(t, &stubResolver{rate: decimal.RequireFromString("0.075"), found: true})

	p := f.createProduct(t, "33.33", false)

	breakdown, err := f.svc.ComputeVAT(f.ctx, []domain.LineInput{
		{ProductID: p.ID.String(), Quantity: 1},
	})
	require.NoError(t, err)

	// 33.33 * 0.075 = 2.49975, rounded half-up once to 2.50.
	assert.True(t, decimal.RequireFromString("2.50").Equal(breakdown.TaxAmount), "tax %s", breakdown.TaxAmount)
}

func TestGetSaleReturnsLines(t *testing.T) {
	f := setupSaleTest(t, &stubResolver{rate: decimal.RequireFromString("0.075"), found: true})

	p := f.createProduct(t, "100", false)
	locationID := f.node.Generate()
	f.stock(t, p.ID, locationID, 5)

	created, err := f.svc.Create(f.ctx, domain.CreateRequest{
		LocationID: locationID.String(),
		Items:      []domain.LineInput{{ProductID: p.ID.String(), Quantity: 2}},
	})
	require.NoError(t, err)

	got, err := f.svc.Get(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, int64(2), got.Lines[0].Quantity)
}

func TestCreateSaleConcurrentNeverOversells(t *testing.T) {
	f := setupSaleTest(t, &stubResolver{rate: decimal.RequireFromString("0.075"), found: true})

	p := f.createProduct(t, "100", false)
	locationID := f.node.Generate()
	f.stock(t, p.ID, locationID, 5)

	start := make(chan struct{})
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Create(f.ctx, domain.CreateRequest{
				LocationID: locationID.String(),
				Items:      []domain.LineInput{{ProductID: p.ID.String(), Quantity: 3}},
			})
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		rejected++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	var ledger int64
	require.NoError(t, f.db.Raw(
		`SELECT quantity FROM product_stocks WHERE product_id = ? AND location_id = ?`,
		p.ID, locationID,
	).Scan(&ledger).Error)
	assert.Equal(t, int64(2), ledger)

	var aggregate int64
	require.NoError(t, f.db.Raw(
		`SELECT stock FROM products WHERE id = ?`, p.ID,
	).Scan(&aggregate).Error)
	assert.Equal(t, int64(2), aggregate)

	var committed int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(*) FROM sales WHERE org_id = ?`, f.orgID,
	).Scan(&committed).Error)
	assert.Equal(t, int64(1), committed)
}

type captureResolver struct {
	rate decimal.Decimal
	asOf time.Time
}

func (r *captureResolver) ResolveActiveRate(ctx context.Context, jurisdiction, taxType string, asOf time.Time) (decimal.Decimal, bool, error) {
	r.asOf = asOf
	return r.rate, true, nil
}

func TestCreateSaleResolvesRateAsOfClock(t *testing.T) {
	f := setupSaleTest(t, &stubResolver{rate: decimal.Zero, found: false})

	at := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)
	resolver := &captureResolver{rate: decimal.RequireFromString("0.075")}
	svc := New(Params{
		DB:       f.db,
		Log:      zap.NewNop(),
		Config:   config.Config{Jurisdiction: "NG"},
		Clock:    clock.NewFakeClock(at),
		GenID:    f.node,
		Repo:     salerepo.Provide(),
		Products: productrepo.Provide(),
		Rates:    resolver,
	})

	p := f.createProduct(t, "200", false)
	locationID := f.node.Generate()
	f.stock(t, p.ID, locationID, 5)

	resp, err := svc.Create(f.ctx, domain.CreateRequest{
		LocationID: locationID.String(),
		Items:      []domain.LineInput{{ProductID: p.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	assert.True(t, resolver.asOf.Equal(at), "resolved as of %s", resolver.asOf)
	assert.True(t, resp.CreatedAt.Equal(at), "created at %s", resp.CreatedAt)
}

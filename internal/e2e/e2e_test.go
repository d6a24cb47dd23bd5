package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/retailcore/internal/analytics"
	"github.com/smallbiznis/retailcore/internal/clock"
	"github.com/smallbiznis/retailcore/internal/config"
	"github.com/smallbiznis/retailcore/internal/customer"
	"github.com/smallbiznis/retailcore/internal/expense"
	"github.com/smallbiznis/retailcore/internal/location"
	"github.com/smallbiznis/retailcore/internal/migration"
	"github.com/smallbiznis/retailcore/internal/observability"
	obsmetrics "github.com/smallbiznis/retailcore/internal/observability/metrics"
	"github.com/smallbiznis/retailcore/internal/product"
	"github.com/smallbiznis/retailcore/internal/report"
	"github.com/smallbiznis/retailcore/internal/sale"
	"github.com/smallbiznis/retailcore/internal/seed"
	"github.com/smallbiznis/retailcore/internal/server"
	"github.com/smallbiznis/retailcore/internal/taxrule"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	app     *fx.App
	server  *server.Server
	db      *gorm.DB
	genID   *snowflake.Node
	baseURL string
	httpSrv *httptest.Server
}

var env *testEnv

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	var err error
	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}

	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

func startEnv() (*testEnv, error) {
	var (
		srv    *server.Server
		dbConn *gorm.DB
		genID  *snowflake.Node
	)

	cfg := config.Config{
		AppName:      "retailcore",
		Environment:  "test",
		Jurisdiction: "NG",
		DBType:       "sqlite",
	}

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(func(c config.Config) observability.Config {
			return observability.LoadConfig(c)
		}),
		fx.Provide(obsmetrics.NewHTTPMetrics),
		fx.Provide(func() *zap.Logger { return zap.NewNop() }),
		fx.Provide(func() *config.FinanceConfigHolder {
			return config.NewStaticFinanceConfigHolder(config.DefaultFinanceConfig())
		}),
		fx.Provide(func() (*gorm.DB, error) {
			return gorm.Open(sqlite.Open("file:retailcore-e2e?mode=memory&cache=shared"), &gorm.Config{})
		}),
		fx.Provide(func() (*snowflake.Node, error) {
			return snowflake.NewNode(1)
		}),
		clock.Module,
		taxrule.Module,
		product.Module,
		location.Module,
		customer.Module,
		expense.Module,
		sale.Module,
		analytics.Module,
		report.Module,
		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Populate(&srv, &dbConn, &genID),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, err
	}

	if err := migration.AutoMigrate(dbConn); err != nil {
		app.Stop(context.Background())
		return nil, err
	}
	if err := seed.EnsureMainOrg(dbConn); err != nil {
		app.Stop(context.Background())
		return nil, err
	}

	httpSrv := httptest.NewServer(srv.Engine())

	return &testEnv{
		app:     app,
		server:  srv,
		db:      dbConn,
		genID:   genID,
		baseURL: httpSrv.URL,
		httpSrv: httpSrv,
	}, nil
}

func (e *testEnv) shutdown() {
	if e == nil {
		return
	}
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.app != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = e.app.Stop(ctx)
	}
}

// newOrg mints a fresh tenant so each test sees an empty dataset.
func newOrg(t *testing.T) (orgID, userID string) {
	t.Helper()
	return env.genID.Generate().String(), env.genID.Generate().String()
}

func doJSON(t *testing.T, method, path string, payload any, orgID, userID string) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, env.baseURL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if orgID != "" {
		req.Header.Set(server.HeaderOrg, orgID)
	}
	if userID != "" {
		req.Header.Set(server.HeaderUser, userID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, raw
}

func decodeData(t *testing.T, raw []byte, out any) {
	t.Helper()
	wrapper := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		t.Fatalf("decode envelope: %v: %s", err, string(raw))
	}
	if err := json.Unmarshal(wrapper.Data, out); err != nil {
		t.Fatalf("decode data: %v: %s", err, string(raw))
	}
}

func wantStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(body))
	}
}

type locationResp struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type productResp struct {
	ID       string          `json:"id"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Stock    int64           `json:"stock"`
	MinStock int64           `json:"min_stock"`
}

type stockResp struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Quantity   int64  `json:"quantity"`
}

type saleResp struct {
	ID            string          `json:"id"`
	LocationID    string          `json:"location_id"`
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Lines         []struct {
		ProductID string `json:"product_id"`
		Quantity  int64  `json:"quantity"`
	} `json:"lines"`
}

type summaryResp struct {
	TotalSales         int64           `json:"total_sales"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	COGS               decimal.Decimal `json:"cogs"`
	GrossProfit        decimal.Decimal `json:"gross_profit"`
	TaxTotal           decimal.Decimal `json:"tax_total"`
	ExpensesTotal      decimal.Decimal `json:"expenses_total"`
	ProfitBeforeTax    decimal.Decimal `json:"profit_before_tax"`
	EstimatedIncomeTax decimal.Decimal `json:"estimated_income_tax"`
	ProfitAfterTax     decimal.Decimal `json:"profit_after_tax"`
	LowStockCount      int64           `json:"low_stock_count"`
}

func createLocation(t *testing.T, orgID, userID, name string) locationResp {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, "/v1/locations", map[string]any{"name": name}, orgID, userID)
	wantStatus(t, resp, body, http.StatusCreated)
	var out locationResp
	decodeData(t, body, &out)
	return out
}

func createProduct(t *testing.T, orgID, userID, name, sku, price, cost string) productResp {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, "/v1/products", map[string]any{
		"name":       name,
		"sku":        sku,
		"price":      price,
		"cost_price": cost,
	}, orgID, userID)
	wantStatus(t, resp, body, http.StatusCreated)
	var out productResp
	decodeData(t, body, &out)
	return out
}

func setStock(t *testing.T, orgID, userID, productID, locationID string, qty int64) {
	t.Helper()
	path := fmt.Sprintf("/v1/products/%s/stock/%s", productID, locationID)
	resp, body := doJSON(t, http.MethodPut, path, map[string]any{"quantity": qty}, orgID, userID)
	wantStatus(t, resp, body, http.StatusOK)
}

func seedDefaultVAT(t *testing.T, orgID, userID string) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, "/v1/tax-rules/seed-default", nil, orgID, userID)
	wantStatus(t, resp, body, http.StatusOK)
}

func TestE2EHealthAndMetrics(t *testing.T) {
	resp, err := http.Get(env.baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(env.baseURL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestE2EBootstrapSeedsMainOrg(t *testing.T) {
	org := struct {
		ID        int64
		Name      string
		Slug      string
		IsDefault bool
	}{}
	if err := env.db.Raw(
		`SELECT id, name, slug, is_default FROM organizations WHERE slug = ?`, "main",
	).Scan(&org).Error; err != nil {
		t.Fatalf("query default org: %v", err)
	}
	if org.ID == 0 || !org.IsDefault {
		t.Fatalf("default org not seeded: %+v", org)
	}

	var ruleCount int64
	if err := env.db.Raw(
		`SELECT COUNT(*) FROM tax_rules WHERE org_id = ? AND tax_type = ?`, org.ID, "VAT",
	).Scan(&ruleCount).Error; err != nil {
		t.Fatalf("query seeded rule: %v", err)
	}
	if ruleCount != 1 {
		t.Fatalf("expected one seeded VAT rule, got %d", ruleCount)
	}
}

func TestE2ERejectsMissingOrgHeader(t *testing.T) {
	resp, body := doJSON(t, http.MethodGet, "/v1/products", nil, "", "")
	wantStatus(t, resp, body, http.StatusUnauthorized)

	resp, body = doJSON(t, http.MethodGet, "/v1/products", nil, "not-a-snowflake", "")
	wantStatus(t, resp, body, http.StatusUnauthorized)
}

func TestE2ESaleLifecycle(t *testing.T) {
	orgID, userID := newOrg(t)

	seedDefaultVAT(t, orgID, userID)
	loc := createLocation(t, orgID, userID, "Ikeja Main Branch")
	if loc.Code != "ikeja-main-branch" {
		t.Fatalf("unexpected location code %q", loc.Code)
	}
	prod := createProduct(t, orgID, userID, "Bag of Rice 50kg", "RICE-50", "500", "300")
	setStock(t, orgID, userID, prod.ID, loc.ID, 10)

	resp, body := doJSON(t, http.MethodPost, "/v1/sales", map[string]any{
		"location_id": loc.ID,
		"items": []map[string]any{
			{"product_id": prod.ID, "quantity": 2},
		},
	}, orgID, userID)
	wantStatus(t, resp, body, http.StatusCreated)

	var created saleResp
	decodeData(t, body, &created)
	if !created.GrossAmount.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("expected gross 1000, got %s", created.GrossAmount)
	}
	if !created.TaxAmount.Equal(decimal.RequireFromString("75")) {
		t.Fatalf("expected tax 75, got %s", created.TaxAmount)
	}
	if !created.TotalAmount.Equal(decimal.RequireFromString("1075")) {
		t.Fatalf("expected total 1075, got %s", created.TotalAmount)
	}

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("/v1/products/%s/stock/%s", prod.ID, loc.ID), nil, orgID, userID)
	wantStatus(t, resp, body, http.StatusOK)
	var stock stockResp
	decodeData(t, body, &stock)
	if stock.Quantity != 8 {
		t.Fatalf("expected remaining stock 8, got %d", stock.Quantity)
	}

	resp, body = doJSON(t, http.MethodGet, "/v1/sales/"+created.ID, nil, orgID, userID)
	wantStatus(t, resp, body, http.StatusOK)
	var fetched saleResp
	decodeData(t, body, &fetched)
	if len(fetched.Lines) != 1 || fetched.Lines[0].Quantity != 2 {
		t.Fatalf("expected one line with quantity 2, got %+v", fetched.Lines)
	}
}

func TestE2EQuoteDoesNotCommit(t *testing.T) {
	orgID, userID := newOrg(t)

	seedDefaultVAT(t, orgID, userID)
	loc := createLocation(t, orgID, userID, "Surulere")
	prod := createProduct(t, orgID, userID, "Groundnut Oil 5L", "OIL-5", "200", "120")
	setStock(t, orgID, userID, prod.ID, loc.ID, 4)

	resp, body := doJSON(t, http.MethodPost, "/v1/sales/quote", map[string]any{
		"location_id": loc.ID,
		"items": []map[string]any{
			{"product_id": prod.ID, "quantity": 3},
		},
	}, orgID, userID)
	wantStatus(t, resp, body, http.StatusOK)

	var quote struct {
		GrossAmount decimal.Decimal `json:"gross_amount"`
		TaxAmount   decimal.Decimal `json:"tax_amount"`
		TotalAmount decimal.Decimal `json:"total_amount"`
	}
	decodeData(t, body, &quote)
	if !quote.TotalAmount.Equal(decimal.RequireFromString("645")) {
		t.Fatalf("expected quoted total 645, got %s", quote.TotalAmount)
	}

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("/v1/products/%s/stock/%s", prod.ID, loc.ID), nil, orgID, userID)
	wantStatus(t, resp, body, http.StatusOK)
	var stock stockResp
	decodeData(t, body, &stock)
	if stock.Quantity != 4 {
		t.Fatalf("quote must not touch stock, got %d", stock.Quantity)
	}

	resp, body = doJSON(t, http.MethodGet, "/v1/sales", nil, orgID, userID)
	wantStatus(t, resp, body, http.StatusOK)
	var sales []saleResp
	decodeData(t, body, &sales)
	if len(sales) != 0 {
		t.Fatalf("quote must not create a sale, got %d", len(sales))
	}
}

func TestE2EInsufficientStockConflict(t *testing.T) {
	orgID, userID := newOrg(t)

	loc := createLocation(t, orgID, userID, "Yaba")
	prod := createProduct(t, orgID, userID, "Detergent 1kg", "DET-1", "50", "30")
	setStock(t, orgID, userID, prod.ID, loc.ID, 1)

	resp, body := doJSON(t, http.MethodPost, "/v1/sales", map[string]any{
		"location_id": loc.ID,
		"items": []map[string]any{
			{"product_id": prod.ID, "quantity": 2},
		},
	}, orgID, userID)
	wantStatus(t, resp, body, http.StatusConflict)

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("/v1/products/%s/stock/%s", prod.ID, loc.ID), nil, orgID, userID)
	wantStatus(t, resp, body, http.StatusOK)
	var stock stockResp
	decodeData(t, body, &stock)
	if stock.Quantity != 1 {
		t.Fatalf("failed sale must not decrement stock, got %d", stock.Quantity)
	}
}

func TestE2EAnalyticsSummaryAndExports(t *testing.T) {
	orgID, userID := newOrg(t)

	seedDefaultVAT(t, orgID, userID)
	loc := createLocation(t, orgID, userID, "Lekki")
	prod := createProduct(t, orgID, userID, "Bottled Water 75cl", "WAT-75", "100", "60")
	setStock(t, orgID, userID, prod.ID, loc.ID, 20)

	resp, body := doJSON(t, http.MethodPost, "/v1/sales", map[string]any{
		"location_id": loc.ID,
		"items": []map[string]any{
			{"product_id": prod.ID, "quantity": 5},
		},
	}, orgID, userID)
	wantStatus(t, resp, body, http.StatusCreated)

	resp, body = doJSON(t, http.MethodPost, "/v1/expenses", map[string]any{
		"category": "fuel",
		"amount":   "90",
	}, orgID, userID)
	wantStatus(t, resp, body, http.StatusCreated)

	resp, body = doJSON(t, http.MethodGet, "/v1/analytics/summary?period=daily", nil, orgID, userID)
	wantStatus(t, resp, body, http.StatusOK)

	var summary summaryResp
	decodeData(t, body, &summary)
	if summary.TotalSales != 1 {
		t.Fatalf("expected one sale, got %d", summary.TotalSales)
	}
	if !summary.TotalRevenue.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("expected revenue 500, got %s", summary.TotalRevenue)
	}
	if !summary.COGS.Equal(decimal.RequireFromString("300")) {
		t.Fatalf("expected cogs 300, got %s", summary.COGS)
	}
	if !summary.ExpensesTotal.Equal(decimal.RequireFromString("90")) {
		t.Fatalf("expected expenses 90, got %s", summary.ExpensesTotal)
	}
	// 500 - 300 - 90 = 110 before tax, 30% income tax estimate.
	if !summary.ProfitBeforeTax.Equal(decimal.RequireFromString("110")) {
		t.Fatalf("expected profit before tax 110, got %s", summary.ProfitBeforeTax)
	}
	if !summary.EstimatedIncomeTax.Equal(decimal.RequireFromString("33")) {
		t.Fatalf("expected estimated income tax 33, got %s", summary.EstimatedIncomeTax)
	}

	resp, body = doJSON(t, http.MethodGet, "/v1/analytics/top-products?period=daily", nil, orgID, userID)
	wantStatus(t, resp, body, http.StatusOK)
	var top []struct {
		ProductID string `json:"product_id"`
		Quantity  int64  `json:"quantity"`
	}
	decodeData(t, body, &top)
	if len(top) != 1 || top[0].ProductID != prod.ID || top[0].Quantity != 5 {
		t.Fatalf("unexpected top products: %+v", top)
	}

	req, err := http.NewRequest(http.MethodGet, env.baseURL+"/v1/reports/sales.csv?period=daily", nil)
	if err != nil {
		t.Fatalf("build csv request: %v", err)
	}
	req.Header.Set(server.HeaderOrg, orgID)
	req.Header.Set(server.HeaderUser, userID)
	csvResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("csv request failed: %v", err)
	}
	defer csvResp.Body.Close()
	if csvResp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for csv export, got %d", csvResp.StatusCode)
	}
	if ct := csvResp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv content type, got %q", ct)
	}
	raw, err := io.ReadAll(csvResp.Body)
	if err != nil {
		t.Fatalf("read csv body: %v", err)
	}
	if !strings.Contains(string(raw), loc.ID) {
		t.Fatalf("csv export missing sale row for location %s", loc.ID)
	}
}

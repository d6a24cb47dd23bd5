package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/retailcore/internal/analytics"
	analyticsdomain "github.com/smallbiznis/retailcore/internal/analytics/domain"
	"github.com/smallbiznis/retailcore/internal/config"
	"github.com/smallbiznis/retailcore/internal/customer"
	customerdomain "github.com/smallbiznis/retailcore/internal/customer/domain"
	"github.com/smallbiznis/retailcore/internal/expense"
	expensedomain "github.com/smallbiznis/retailcore/internal/expense/domain"
	"github.com/smallbiznis/retailcore/internal/location"
	locationdomain "github.com/smallbiznis/retailcore/internal/location/domain"
	"github.com/smallbiznis/retailcore/internal/observability"
	obsmiddleware "github.com/smallbiznis/retailcore/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/retailcore/internal/observability/metrics"
	obstracing "github.com/smallbiznis/retailcore/internal/observability/tracing"
	"github.com/smallbiznis/retailcore/internal/product"
	productdomain "github.com/smallbiznis/retailcore/internal/product/domain"
	"github.com/smallbiznis/retailcore/internal/report"
	reportdomain "github.com/smallbiznis/retailcore/internal/report/domain"
	"github.com/smallbiznis/retailcore/internal/sale"
	saledomain "github.com/smallbiznis/retailcore/internal/sale/domain"
	"github.com/smallbiznis/retailcore/internal/taxrule"
	taxruledomain "github.com/smallbiznis/retailcore/internal/taxrule/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	taxrule.Module,
	product.Module,
	location.Module,
	customer.Module,
	expense.Module,
	sale.Module,
	analytics.Module,
	report.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	taxRuleSvc   taxruledomain.Service
	productSvc   productdomain.Service
	locationSvc  locationdomain.Service
	customerSvc  customerdomain.Service
	expenseSvc   expensedomain.Service
	saleSvc      saledomain.Service
	analyticsSvc analyticsdomain.Service
	reportSvc    reportdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	TaxRuleSvc   taxruledomain.Service
	ProductSvc   productdomain.Service
	LocationSvc  locationdomain.Service
	CustomerSvc  customerdomain.Service
	ExpenseSvc   expensedomain.Service
	SaleSvc      saledomain.Service
	AnalyticsSvc analyticsdomain.Service
	ReportSvc    reportdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		taxRuleSvc:   p.TaxRuleSvc,
		productSvc:   p.ProductSvc,
		locationSvc:  p.LocationSvc,
		customerSvc:  p.CustomerSvc,
		expenseSvc:   p.ExpenseSvc,
		saleSvc:      p.SaleSvc,
		analyticsSvc: p.AnalyticsSvc,
		reportSvc:    p.ReportSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(OrgContext())

	// -------- Sales --------
	v1.POST("/sales", s.CreateSale)
	v1.GET("/sales", s.ListSales)
	v1.GET("/sales/:id", s.GetSaleByID)
	v1.POST("/sales/quote", s.QuoteSale)

	// -------- Analytics --------
	v1.GET("/analytics/summary", s.GetAnalyticsSummary)
	v1.GET("/analytics/top-products", s.GetTopProducts)
	v1.GET("/analytics/location-performance", s.GetLocationPerformance)
	v1.GET("/analytics/customer-performance", s.GetCustomerPerformance)

	// -------- Tax rules --------
	v1.GET("/tax-rules", s.ListTaxRules)
	v1.POST("/tax-rules", s.CreateTaxRule)
	v1.PATCH("/tax-rules/:id", s.UpdateTaxRule)
	v1.DELETE("/tax-rules/:id", s.DeleteTaxRule)
	v1.POST("/tax-rules/seed-default", s.SeedDefaultVAT)

	// -------- Products & stock --------
	v1.GET("/products", s.ListProducts)
	v1.POST("/products", s.CreateProduct)
	v1.GET("/products/low-stock", s.ListLowStockProducts)
	v1.GET("/products/:id", s.GetProductByID)
	v1.PATCH("/products/:id", s.UpdateProduct)
	v1.PUT("/products/:id/stock/:locationId", s.SetProductStock)
	v1.GET("/products/:id/stock/:locationId", s.GetProductStock)

	// -------- Locations --------
	v1.GET("/locations", s.ListLocations)
	v1.POST("/locations", s.CreateLocation)
	v1.GET("/locations/:id", s.GetLocationByID)
	v1.PATCH("/locations/:id", s.UpdateLocation)
	v1.DELETE("/locations/:id", s.DeleteLocation)

	// -------- Customers --------
	v1.GET("/customers", s.ListCustomers)
	v1.POST("/customers", s.CreateCustomer)
	v1.GET("/customers/:id", s.GetCustomerByID)
	v1.PATCH("/customers/:id", s.UpdateCustomer)

	// -------- Expenses --------
	v1.GET("/expenses", s.ListExpenses)
	v1.POST("/expenses", s.CreateExpense)
	v1.GET("/expenses/:id", s.GetExpenseByID)
	v1.DELETE("/expenses/:id", s.DeleteExpense)

	// -------- Reports --------
	v1.GET("/reports/sales.csv", s.ExportSalesCSV)
	v1.GET("/reports/summary.pdf", s.ExportSummaryPDF)
}

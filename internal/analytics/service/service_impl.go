package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/retailcore/internal/analytics/domain"
	"github.com/smallbiznis/retailcore/internal/clock"
	"github.com/smallbiznis/retailcore/internal/config"
	expensedomain "github.com/smallbiznis/retailcore/internal/expense/domain"
	locationdomain "github.com/smallbiznis/retailcore/internal/location/domain"
	"github.com/smallbiznis/retailcore/internal/orgcontext"
	productdomain "github.com/smallbiznis/retailcore/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Finance   *config.FinanceConfigHolder
	Cache     *SummaryCache `optional:"true"`
	Products  productdomain.Repository
	Expenses  expensedomain.Repository
	Locations locationdomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	finance   *config.FinanceConfigHolder
	cache     *SummaryCache
	products  productdomain.Repository
	expenses  expensedomain.Repository
	locations locationdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("analytics.service"),
		clock:     p.Clock,
		finance:   p.Finance,
		cache:     p.Cache,
		products:  p.Products,
		expenses:  p.Expenses,
		locations: p.Locations,
	}
}

func (s *Service) Summary(ctx context.Context, req domain.SummaryRequest) (*domain.Summary, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	now := s.clock.Now()
	var from, to time.Time
	cacheable := false
	switch {
	case req.From != nil && req.To != nil:
		from, to = req.From.UTC(), req.To.UTC()
		if !from.Before(to) {
			return nil, domain.ErrInvalidRange
		}
	default:
		from, to = req.Period.Window(now)
		cacheable = true
	}

	if cacheable {
		if cached, hit := s.cache.Get(ctx, orgID, string(req.Period)); hit {
			return cached, nil
		}
	}

	summary, err := s.buildSummary(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.cache.Set(ctx, orgID, string(req.Period), summary)
	}
	return summary, nil
}

func (s *Service) buildSummary(ctx context.Context, orgID snowflake.ID, from, to time.Time) (*domain.Summary, error) {
	var sales struct {
		TotalSales int64
		Revenue    decimal.Decimal
		Tax        decimal.Decimal
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total_sales,
		        COALESCE(SUM(gross_amount), 0) AS revenue,
		        COALESCE(SUM(tax_amount), 0) AS tax
		 FROM sales
		 WHERE org_id = ? AND created_at >= ? AND created_at < ?`,
		orgID, from, to,
	).Scan(&sales).Error
	if err != nil {
		return nil, err
	}

	cogs, err := s.windowCOGS(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}

	expensesTotal, err := s.expenses.SumInWindow(ctx, s.db, orgID, from, to)
	if err != nil {
		return nil, err
	}

	lowStock, err := s.products.CountLowStock(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}

	grossProfit := sales.Revenue.Sub(cogs)
	profitBeforeTax := grossProfit.Sub(expensesTotal)

	incomeTaxRate := decimal.NewFromFloat(s.finance.Get().IncomeTaxRate)
	estimatedIncomeTax := decimal.Zero
	if profitBeforeTax.IsPositive() {
		estimatedIncomeTax = profitBeforeTax.Mul(incomeTaxRate).Round(2)
	}

	return &domain.Summary{
		From:               from,
		To:                 to,
		TotalSales:         sales.TotalSales,
		TotalRevenue:       sales.Revenue,
		COGS:               cogs,
		GrossProfit:        grossProfit,
		TaxTotal:           sales.Tax,
		ExpensesTotal:      expensesTotal,
		ProfitBeforeTax:    profitBeforeTax,
		EstimatedIncomeTax: estimatedIncomeTax,
		ProfitAfterTax:     profitBeforeTax.Sub(estimatedIncomeTax),
		LowStockCount:      lowStock,
	}, nil
}

func (s *Service) TopProducts(ctx context.Context, req domain.BreakdownRequest) ([]domain.TopProductEntry, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	from, to, err := s.normalizeRange(req.From, req.To)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = domain.DefaultTopProductLimit
	}

	query := `SELECT li.product_id, p.name, p.sku,
	                 SUM(li.quantity) AS quantity,
	                 COALESCE(SUM(li.quantity * li.unit_price), 0) AS revenue
	          FROM sale_line_items li
	          JOIN sales s ON s.id = li.sale_id
	          JOIN products p ON p.id = li.product_id
	          WHERE s.org_id = ? AND s.created_at >= ? AND s.created_at < ?`
	args := []any{orgID, from, to}

	if strings.TrimSpace(req.LocationID) != "" {
		locationID, err := snowflake.ParseString(strings.TrimSpace(req.LocationID))
		if err != nil {
			return nil, domain.ErrInvalidRange
		}
		query += ` AND s.location_id = ?`
		args = append(args, locationID)
	}
	if strings.TrimSpace(req.CustomerID) != "" {
		customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
		if err != nil {
			return nil, domain.ErrInvalidRange
		}
		query += ` AND s.customer_id = ?`
		args = append(args, customerID)
	}

	query += ` GROUP BY li.product_id, p.name, p.sku
	           ORDER BY quantity DESC, revenue DESC
	           LIMIT ?`
	args = append(args, limit)

	var rows []struct {
		ProductID snowflake.ID
		Name      string
		SKU       string
		Quantity  int64
		Revenue   decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]domain.TopProductEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.TopProductEntry{
			ProductID: row.ProductID.String(),
			Name:      row.Name,
			SKU:       row.SKU,
			Quantity:  row.Quantity,
			Revenue:   row.Revenue,
		})
	}
	return entries, nil
}

// saleRow is the slice of a sale the performance reports group over.
type saleRow struct {
	ID          snowflake.ID
	LocationID  snowflake.ID
	CustomerID  *snowflake.ID
	BranchName  string
	TotalAmount decimal.Decimal
}

type perfBucket struct {
	key       string
	saleCount int64
	revenue   decimal.Decimal
	cogs      decimal.Decimal
}

func (s *Service) LocationPerformance(ctx context.Context, req domain.BreakdownRequest) ([]domain.LocationPerformanceEntry, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	from, to, err := s.normalizeRange(req.From, req.To)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = domain.DefaultPerformanceLimit
	}

	rows, cogsBySale, err := s.loadSalesWithCOGS(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}

	// Key preference: trimmed branch_name, else location id, else the
	// unassigned bucket.
	buckets := make(map[string]*perfBucket)
	order := make([]string, 0)
	for _, row := range rows {
		key := strings.TrimSpace(row.BranchName)
		if key == "" && row.LocationID != 0 {
			key = row.LocationID.String()
		}
		if key == "" {
			key = domain.UnassignedKey
		}
		bucket, ok := buckets[key]
		if !ok {
			bucket = &perfBucket{key: key, revenue: decimal.Zero, cogs: decimal.Zero}
			buckets[key] = bucket
			order = append(order, key)
		}
		bucket.saleCount++
		bucket.revenue = bucket.revenue.Add(row.TotalAmount)
		bucket.cogs = bucket.cogs.Add(cogsBySale[row.ID])
	}

	names, err := s.locationNames(ctx, orgID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LocationPerformanceEntry, 0, len(order))
	for _, key := range order {
		bucket := buckets[key]
		name := key
		if id, err := snowflake.ParseString(key); err == nil {
			if resolved, ok := names[id]; ok {
				name = resolved
			}
		}
		entries = append(entries, domain.LocationPerformanceEntry{
			Key:         key,
			Name:        name,
			SaleCount:   bucket.saleCount,
			Revenue:     bucket.revenue,
			COGS:        bucket.cogs,
			GrossProfit: bucket.revenue.Sub(bucket.cogs),
		})
	}

	sortByProfit(entries, func(e domain.LocationPerformanceEntry) (decimal.Decimal, decimal.Decimal) {
		return e.GrossProfit, e.Revenue
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Service) CustomerPerformance(ctx context.Context, req domain.BreakdownRequest) ([]domain.CustomerPerformanceEntry, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	from, to, err := s.normalizeRange(req.From, req.To)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = domain.DefaultPerformanceLimit
	}

	rows, cogsBySale, err := s.loadSalesWithCOGS(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*perfBucket)
	order := make([]string, 0)
	customerIDs := make([]snowflake.ID, 0)
	for _, row := range rows {
		key := domain.UnassignedKey
		if row.CustomerID != nil && *row.CustomerID != 0 {
			key = row.CustomerID.String()
		}
		bucket, ok := buckets[key]
		if !ok {
			bucket = &perfBucket{key: key, revenue: decimal.Zero, cogs: decimal.Zero}
			buckets[key] = bucket
			order = append(order, key)
			if key != domain.UnassignedKey {
				customerIDs = append(customerIDs, *row.CustomerID)
			}
		}
		bucket.saleCount++
		bucket.revenue = bucket.revenue.Add(row.TotalAmount)
		bucket.cogs = bucket.cogs.Add(cogsBySale[row.ID])
	}

	attrs, err := s.customerAttributes(ctx, orgID, customerIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.CustomerPerformanceEntry, 0, len(order))
	for _, key := range order {
		bucket := buckets[key]
		entry := domain.CustomerPerformanceEntry{
			Key:         key,
			Name:        key,
			SaleCount:   bucket.saleCount,
			Revenue:     bucket.revenue,
			COGS:        bucket.cogs,
			GrossProfit: bucket.revenue.Sub(bucket.cogs),
		}
		if attr, ok := attrs[key]; ok {
			entry.Name = attr.Name
			entry.City = attr.City
			entry.State = attr.State
			entry.LGA = attr.LGA
			entry.Country = attr.Country
		}
		entries = append(entries, entry)
	}

	sortByProfit(entries, func(e domain.CustomerPerformanceEntry) (decimal.Decimal, decimal.Decimal) {
		return e.GrossProfit, e.Revenue
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Service) normalizeRange(from, to *time.Time) (time.Time, time.Time, error) {
	now := s.clock.Now()
	end := now
	if to != nil {
		end = to.UTC()
	}
	start, _ := domain.PeriodMonthly.Window(now)
	if from != nil {
		start = from.UTC()
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, domain.ErrInvalidRange
	}
	return start, end, nil
}

func (s *Service) windowCOGS(ctx context.Context, orgID snowflake.ID, from, to time.Time) (decimal.Decimal, error) {
	var row struct {
		COGS decimal.Decimal
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(li.quantity * COALESCE(li.unit_cost, 0)), 0) AS cogs
		 FROM sale_line_items li
		 JOIN sales s ON s.id = li.sale_id
		 WHERE s.org_id = ? AND s.created_at >= ? AND s.created_at < ?`,
		orgID, from, to,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.COGS, nil
}

func (s *Service) loadSalesWithCOGS(ctx context.Context, orgID snowflake.ID, from, to time.Time) ([]saleRow, map[snowflake.ID]decimal.Decimal, error) {
	var rows []saleRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, location_id, customer_id, branch_name, total_amount
		 FROM sales
		 WHERE org_id = ? AND created_at >= ? AND created_at < ?`,
		orgID, from, to,
	).Scan(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	var cogsRows []struct {
		SaleID snowflake.ID
		COGS   decimal.Decimal
	}
	err = s.db.WithContext(ctx).Raw(
		`SELECT li.sale_id, COALESCE(SUM(li.quantity * COALESCE(li.unit_cost, 0)), 0) AS cogs
		 FROM sale_line_items li
		 JOIN sales s ON s.id = li.sale_id
		 WHERE s.org_id = ? AND s.created_at >= ? AND s.created_at < ?
		 GROUP BY li.sale_id`,
		orgID, from, to,
	).Scan(&cogsRows).Error
	if err != nil {
		return nil, nil, err
	}

	cogsBySale := make(map[snowflake.ID]decimal.Decimal, len(cogsRows))
	for _, row := range cogsRows {
		cogsBySale[row.SaleID] = row.COGS
	}
	return rows, cogsBySale, nil
}

func (s *Service) locationNames(ctx context.Context, orgID snowflake.ID) (map[snowflake.ID]string, error) {
	locations, err := s.locations.List(ctx, orgID)
	if err != nil {
		return nil, err
	}
	names := make(map[snowflake.ID]string, len(locations))
	for _, location := range locations {
		names[location.ID] = location.Name
	}
	return names, nil
}

type customerAttr struct {
	Name    string
	City    string
	State   string
	LGA     string
	Country string
}

func (s *Service) customerAttributes(ctx context.Context, orgID snowflake.ID, ids []snowflake.ID) (map[string]customerAttr, error) {
	attrs := make(map[string]customerAttr, len(ids))
	if len(ids) == 0 {
		return attrs, nil
	}

	var rows []struct {
		ID      snowflake.ID
		Name    string
		City    string
		State   string
		LGA     string `gorm:"column:lga"`
		Country string
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, name, city, state, lga, country
		 FROM customers
		 WHERE org_id = ? AND id IN ?`,
		orgID, ids,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		attrs[row.ID.String()] = customerAttr{
			Name:    row.Name,
			City:    row.City,
			State:   row.State,
			LGA:     row.LGA,
			Country: row.Country,
		}
	}
	return attrs, nil
}

func sortByProfit[T any](entries []T, rank func(T) (decimal.Decimal, decimal.Decimal)) {
	sort.SliceStable(entries, func(i, j int) bool {
		profitI, revenueI := rank(entries[i])
		profitJ, revenueJ := rank(entries[j])
		if cmp := profitI.Cmp(profitJ); cmp != 0 {
			return cmp > 0
		}
		return revenueI.Cmp(revenueJ) > 0
	})
}

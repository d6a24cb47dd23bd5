package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	analyticsdomain "github.com/smallbiznis/retailcore/internal/analytics/domain"
	"github.com/smallbiznis/retailcore/internal/clock"
	"github.com/smallbiznis/retailcore/internal/orgcontext"
	"github.com/smallbiznis/retailcore/internal/report/domain"
	"github.com/smallbiznis/retailcore/internal/report/pdf"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Analytics analyticsdomain.Service
	PDF       *pdf.Provider
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	analytics analyticsdomain.Service
	pdf       *pdf.Provider
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("report.service"),
		clock:     p.Clock,
		analytics: p.Analytics,
		pdf:       p.PDF,
	}
}

// csvRow is one exported line item with its sale context flattened in.
type csvRow struct {
	SaleID      snowflake.ID
	CreatedAt   time.Time
	LocationID  snowflake.ID
	BranchName  string
	CustomerID  *snowflake.ID
	ProductName string
	SKU         string
	Quantity    int64
	UnitPrice   decimal.Decimal
	UnitCost    *decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

func (s *Service) SalesCSV(ctx context.Context, req domain.Request) (io.Reader, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	from, to, err := s.exportWindow(req)
	if err != nil {
		return nil, err
	}

	var rows []csvRow
	err = s.db.WithContext(ctx).Raw(
		`SELECT s.id AS sale_id, s.created_at, s.location_id, s.branch_name, s.customer_id,
		        p.name AS product_name, p.sku, li.quantity, li.unit_price, li.unit_cost,
		        s.tax_amount, s.total_amount
		 FROM sale_line_items li
		 JOIN sales s ON s.id = li.sale_id
		 JOIN products p ON p.id = li.product_id
		 WHERE s.org_id = ? AND s.created_at >= ? AND s.created_at < ?
		 ORDER BY s.created_at ASC, s.id ASC, li.id ASC`,
		orgID, from, to,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{
		"sale_id", "created_at", "location_id", "branch_name", "customer_id",
		"product", "sku", "quantity", "unit_price", "unit_cost",
		"line_gross", "sale_tax", "sale_total",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, row := range rows {
		customerID := ""
		if row.CustomerID != nil {
			customerID = row.CustomerID.String()
		}
		unitCost := ""
		if row.UnitCost != nil {
			unitCost = row.UnitCost.StringFixed(2)
		}
		lineGross := row.UnitPrice.Mul(decimal.NewFromInt(row.Quantity))

		record := []string{
			row.SaleID.String(),
			row.CreatedAt.UTC().Format(time.RFC3339),
			row.LocationID.String(),
			row.BranchName,
			customerID,
			row.ProductName,
			row.SKU,
			strconv.FormatInt(row.Quantity, 10),
			row.UnitPrice.StringFixed(2),
			unitCost,
			lineGross.StringFixed(2),
			row.TaxAmount.StringFixed(2),
			row.TotalAmount.StringFixed(2),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return bytes.NewReader(buf.Bytes()), nil
}

func (s *Service) SummaryPDF(ctx context.Context, req domain.Request) (io.Reader, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	period, err := analyticsdomain.ParsePeriod(req.Period)
	if err != nil {
		return nil, err
	}

	summary, err := s.analytics.Summary(ctx, analyticsdomain.SummaryRequest{
		Period: period,
		From:   req.From,
		To:     req.To,
	})
	if err != nil {
		return nil, err
	}

	topProducts, err := s.analytics.TopProducts(ctx, analyticsdomain.BreakdownRequest{
		From: &summary.From,
		To:   &summary.To,
	})
	if err != nil {
		return nil, err
	}

	data := pdf.SummaryData{
		OrgID:      orgID.String(),
		PeriodName: string(period),
		From:       summary.From.Format(time.RFC3339),
		To:         summary.To.Format(time.RFC3339),
		KPIs: []pdf.KPI{
			{Label: "Total sales", Value: strconv.FormatInt(summary.TotalSales, 10)},
			{Label: "Revenue (VAT exclusive)", Value: summary.TotalRevenue.StringFixed(2)},
			{Label: "Cost of goods sold", Value: summary.COGS.StringFixed(2)},
			{Label: "Gross profit", Value: summary.GrossProfit.StringFixed(2)},
			{Label: "VAT collected", Value: summary.TaxTotal.StringFixed(2)},
			{Label: "Expenses", Value: summary.ExpensesTotal.StringFixed(2)},
			{Label: "Profit before tax", Value: summary.ProfitBeforeTax.StringFixed(2)},
			{Label: "Estimated income tax", Value: summary.EstimatedIncomeTax.StringFixed(2)},
			{Label: "Profit after tax", Value: summary.ProfitAfterTax.StringFixed(2)},
			{Label: "Low-stock products", Value: strconv.FormatInt(summary.LowStockCount, 10)},
		},
	}
	for _, entry := range topProducts {
		data.TopProducts = append(data.TopProducts, pdf.TopProductRow{
			Name:     entry.Name,
			SKU:      entry.SKU,
			Quantity: entry.Quantity,
			Revenue:  entry.Revenue.StringFixed(2),
		})
	}

	reader, err := s.pdf.GenerateSummary(ctx, data)
	if err != nil {
		s.log.Error("summary pdf render failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailed, err)
	}
	return reader, nil
}

const defaultExportTrailingDays = 7

// exportWindow resolves the CSV export range. Unlike the summary
// presets this defaults to a trailing window: a calendar day that just
// started makes for a useless export.
func (s *Service) exportWindow(req domain.Request) (time.Time, time.Time, error) {
	if req.From == nil && req.To == nil && strings.TrimSpace(req.Period) == "" {
		from, to := analyticsdomain.TrailingWindow(s.clock.Now(), defaultExportTrailingDays)
		return from, to, nil
	}
	return s.window(req)
}

func (s *Service) window(req domain.Request) (time.Time, time.Time, error) {
	now := s.clock.Now()
	if req.From != nil && req.To != nil {
		from, to := req.From.UTC(), req.To.UTC()
		if !from.Before(to) {
			return time.Time{}, time.Time{}, analyticsdomain.ErrInvalidRange
		}
		return from, to, nil
	}

	period, err := analyticsdomain.ParsePeriod(req.Period)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from, to := period.Window(now)
	return from, to, nil
}

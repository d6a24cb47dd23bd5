package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/retailcore/internal/clock"
	"github.com/smallbiznis/retailcore/internal/config"
	"github.com/smallbiznis/retailcore/internal/orgcontext"
	productdomain "github.com/smallbiznis/retailcore/internal/product/domain"
	"github.com/smallbiznis/retailcore/internal/sale/domain"
	taxruledomain "github.com/smallbiznis/retailcore/internal/taxrule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	Clock    clock.Clock
	GenID    *snowflake.Node
	Repo     domain.Repository
	Products productdomain.Repository
	Rates    taxruledomain.RateResolver
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	genID    *snowflake.Node
	repo     domain.Repository
	products productdomain.Repository
	rates    taxruledomain.RateResolver

	jurisdiction string
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("sale.service"),
		clock:        p.Clock,
		genID:        p.GenID,
		repo:         p.Repo,
		products:     p.Products,
		rates:        p.Rates,
		jurisdiction: p.Config.Jurisdiction,
	}
}

// resolvedLine is a cart line after product lookup, with the price and
// cost basis that will be snapshotted onto the line item.
type resolvedLine struct {
	productID snowflake.ID
	quantity  int64
	unitPrice decimal.Decimal
	unitCost  *decimal.Decimal
	taxExempt bool
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	userID, ok := orgcontext.UserIDFromContext(ctx)
	if !ok || userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	if len(req.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if strings.TrimSpace(req.LocationID) == "" {
		return nil, domain.ErrMissingLocation
	}
	locationID, err := snowflake.ParseString(strings.TrimSpace(req.LocationID))
	if err != nil || locationID == 0 {
		return nil, domain.ErrMissingLocation
	}

	var customerID *snowflake.ID
	if strings.TrimSpace(req.CustomerID) != "" {
		parsed, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		customerID = &parsed
	}

	lines, err := s.resolveLines(ctx, orgID, req.Items)
	if err != nil {
		return nil, err
	}

	// Availability pre-check against the per-location ledger. Lines may
	// repeat a product, so requested quantities are summed per product
	// before comparing.
	requested := make(map[snowflake.ID]int64, len(lines))
	productIDs := make([]snowflake.ID, 0, len(lines))
	for _, line := range lines {
		if _, seen := requested[line.productID]; !seen {
			productIDs = append(productIDs, line.productID)
		}
		requested[line.productID] += line.quantity
	}

	stocks, err := s.products.StocksAt(ctx, s.db, orgID, locationID, productIDs)
	if err != nil {
		return nil, err
	}
	available := make(map[snowflake.ID]int64, len(stocks))
	for _, stock := range stocks {
		available[stock.ProductID] = stock.Quantity
	}
	for _, productID := range productIDs {
		quantity, stocked := available[productID]
		if !stocked {
			return nil, fmt.Errorf("%w: product %s at location %s", domain.ErrProductNotStocked, productID, locationID)
		}
		if quantity < requested[productID] {
			return nil, fmt.Errorf("%w: product %s has %d, requested %d", domain.ErrInsufficientStock, productID, quantity, requested[productID])
		}
	}

	now := s.clock.Now()
	breakdown, err := s.price(ctx, lines, now)
	if err != nil {
		return nil, err
	}

	sale := &domain.Sale{
		ID:            s.genID.Generate(),
		OrgID:         orgID,
		UserID:        userID,
		CustomerID:    customerID,
		LocationID:    locationID,
		BranchName:    strings.TrimSpace(req.BranchName),
		GrossAmount:   breakdown.GrossAmount,
		TaxableAmount: breakdown.TaxableAmount,
		VATRate:       breakdown.VATRate,
		TaxAmount:     breakdown.TaxAmount,
		TotalAmount:   breakdown.TotalAmount,
		CreatedAt:     now,
	}

	lineItems := make([]domain.SaleLineItem, 0, len(lines))
	for _, line := range lines {
		lineItems = append(lineItems, domain.SaleLineItem{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			SaleID:    sale.ID,
			ProductID: line.productID,
			Quantity:  line.quantity,
			UnitPrice: line.unitPrice,
			UnitCost:  line.unitCost,
			CreatedAt: now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, sale); err != nil {
			return err
		}
		if err := s.repo.InsertLines(ctx, tx, lineItems); err != nil {
			return err
		}
		for _, productID := range productIDs {
			ok, err := s.products.DecrementStock(ctx, tx, orgID, productID, locationID, requested[productID])
			if err != nil {
				return err
			}
			if !ok {
				// A concurrent sale won the remaining stock between the
				// pre-check and this guarded decrement.
				return domain.ErrInsufficientStock
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return nil, domain.ErrInsufficientStock
		}
		s.log.Error("sale transaction rolled back",
			zap.String("org_id", orgID.String()),
			zap.String("location_id", locationID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}

	sale.Lines = lineItems
	resp := toResponse(sale)
	return &resp, nil
}

func (s *Service) ComputeVAT(ctx context.Context, items []domain.LineInput) (*domain.VATBreakdown, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	lines, err := s.resolveLines(ctx, orgID, items)
	if err != nil {
		return nil, err
	}
	return s.price(ctx, lines, s.clock.Now())
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	sales, err := s.repo.List(ctx, s.db, orgID, req)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(sales))
	for i := range sales {
		resp = append(resp, toResponse(&sales[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	saleID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	sale, err := s.repo.FindByID(ctx, s.db, orgID, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}

	lines, err := s.repo.FindLines(ctx, s.db, orgID, saleID)
	if err != nil {
		return nil, err
	}
	sale.Lines = lines

	resp := toResponse(sale)
	return &resp, nil
}

// resolveLines validates the cart and snapshots price, cost, and
// exemption from the product catalog, honoring per-line overrides.
func (s *Service) resolveLines(ctx context.Context, orgID snowflake.ID, items []domain.LineInput) ([]resolvedLine, error) {
	productIDs := make([]snowflake.ID, 0, len(items))
	seen := make(map[snowflake.ID]struct{}, len(items))

	type parsedItem struct {
		productID snowflake.ID
		quantity  int64
		unitPrice *decimal.Decimal
		unitCost  *decimal.Decimal
	}
	parsed := make([]parsedItem, 0, len(items))

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		productID, err := snowflake.ParseString(strings.TrimSpace(item.ProductID))
		if err != nil || productID == 0 {
			return nil, domain.ErrInvalidID
		}

		var unitPrice *decimal.Decimal
		if item.UnitPrice != nil {
			price, err := decimal.NewFromString(strings.TrimSpace(*item.UnitPrice))
			if err != nil || price.IsNegative() {
				return nil, domain.ErrInvalidPrice
			}
			unitPrice = &price
		}
		var unitCost *decimal.Decimal
		if item.UnitCost != nil {
			cost, err := decimal.NewFromString(strings.TrimSpace(*item.UnitCost))
			if err != nil || cost.IsNegative() {
				return nil, domain.ErrInvalidPrice
			}
			unitCost = &cost
		}

		parsed = append(parsed, parsedItem{
			productID: productID,
			quantity:  item.Quantity,
			unitPrice: unitPrice,
			unitCost:  unitCost,
		})
		if _, dup := seen[productID]; !dup {
			seen[productID] = struct{}{}
			productIDs = append(productIDs, productID)
		}
	}

	products, err := s.products.FindByIDs(ctx, s.db, orgID, productIDs)
	if err != nil {
		return nil, err
	}
	catalog := make(map[snowflake.ID]*productdomain.Product, len(products))
	for i := range products {
		catalog[products[i].ID] = &products[i]
	}

	lines := make([]resolvedLine, 0, len(parsed))
	for _, item := range parsed {
		product, ok := catalog[item.productID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, item.productID)
		}

		unitPrice := product.Price
		if item.unitPrice != nil {
			unitPrice = *item.unitPrice
		}
		unitCost := product.CostPrice
		if item.unitCost != nil {
			unitCost = item.unitCost
		}

		lines = append(lines, resolvedLine{
			productID: item.productID,
			quantity:  item.quantity,
			unitPrice: unitPrice,
			unitCost:  unitCost,
			taxExempt: product.TaxExempt,
		})
	}
	return lines, nil
}

// price computes the VAT breakdown for resolved lines. Tax-exempt
// lines contribute to gross but not to the taxable base. Rounding
// happens once, on the tax total, half-up at two decimal places.
func (s *Service) price(ctx context.Context, lines []resolvedLine, asOf time.Time) (*domain.VATBreakdown, error) {
	gross := decimal.Zero
	taxable := decimal.Zero
	for _, line := range lines {
		lineGross := line.unitPrice.Mul(decimal.NewFromInt(line.quantity))
		gross = gross.Add(lineGross)
		if !line.taxExempt {
			taxable = taxable.Add(lineGross)
		}
	}

	rate, found, err := s.rates.ResolveActiveRate(ctx, s.jurisdiction, taxruledomain.TaxTypeVAT, asOf)
	if err != nil {
		return nil, err
	}
	if !found {
		// No active rule degrades to a zero rate. This is a deliberate
		// outcome the caller can observe on the sale record.
		s.log.Info("no active tax rule, applying zero rate",
			zap.String("jurisdiction", s.jurisdiction),
			zap.Time("as_of", asOf),
		)
		rate = decimal.Zero
	}

	tax := taxable.Mul(rate).Round(2)
	return &domain.VATBreakdown{
		GrossAmount:   gross,
		TaxableAmount: taxable,
		VATRate:       rate,
		TaxAmount:     tax,
		TotalAmount:   gross.Add(tax),
	}, nil
}

func toResponse(sale *domain.Sale) domain.Response {
	resp := domain.Response{
		ID:             sale.ID.String(),
		OrganizationID: sale.OrgID.String(),
		UserID:         sale.UserID.String(),
		LocationID:     sale.LocationID.String(),
		BranchName:     sale.BranchName,
		GrossAmount:    sale.GrossAmount,
		TaxableAmount:  sale.TaxableAmount,
		VATRate:        sale.VATRate,
		TaxAmount:      sale.TaxAmount,
		TotalAmount:    sale.TotalAmount,
		CreatedAt:      sale.CreatedAt,
	}
	if sale.CustomerID != nil {
		resp.CustomerID = sale.CustomerID.String()
	}
	for _, line := range sale.Lines {
		resp.Lines = append(resp.Lines, domain.LineResponse{
			ID:        line.ID.String(),
			ProductID: line.ProductID.String(),
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			UnitCost:  line.UnitCost,
		})
	}
	return resp
}

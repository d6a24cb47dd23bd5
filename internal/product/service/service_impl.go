package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	pkgdb "github.com/smallbiznis/retailcore/pkg/db"
	"github.com/smallbiznis/retailcore/internal/config"
	"github.com/smallbiznis/retailcore/internal/orgcontext"
	"github.com/smallbiznis/retailcore/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Finance *config.FinanceConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	genID   *snowflake.Node
	finance *config.FinanceConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("product.service"),
		repo:    p.Repo,
		genID:   p.GenID,
		finance: p.Finance,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return nil, domain.ErrInvalidSKU
	}

	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil || price.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}

	var costPrice *decimal.Decimal
	if req.CostPrice != nil {
		parsed, err := decimal.NewFromString(strings.TrimSpace(*req.CostPrice))
		if err != nil || parsed.IsNegative() {
			return nil, domain.ErrInvalidPrice
		}
		costPrice = &parsed
	}

	minStock := int64(domain.DefaultMinStock)
	if s.finance != nil {
		minStock = int64(s.finance.Get().LowStockThreshold)
	}
	if req.MinStock != nil && *req.MinStock >= 0 {
		minStock = *req.MinStock
	}
	taxExempt := false
	if req.TaxExempt != nil {
		taxExempt = *req.TaxExempt
	}

	now := time.Now().UTC()
	p := &domain.Product{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		SKU:       sku,
		Price:     price,
		CostPrice: costPrice,
		MinStock:  minStock,
		TaxExempt: taxExempt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, s.db, p); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateSKU
		}
		return nil, err
	}

	resp := toResponse(p)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	filter := domain.ListRequest{
		Name: strings.TrimSpace(req.Name),
		SKU:  strings.TrimSpace(req.SKU),
	}

	items, err := s.repo.List(ctx, s.db, orgID, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(strings.TrimSpace(*req.Price))
		if err != nil || price.IsNegative() {
			return nil, domain.ErrInvalidPrice
		}
		item.Price = price
	}
	if req.CostPrice != nil {
		cost, err := decimal.NewFromString(strings.TrimSpace(*req.CostPrice))
		if err != nil || cost.IsNegative() {
			return nil, domain.ErrInvalidPrice
		}
		item.CostPrice = &cost
	}
	if req.MinStock != nil && *req.MinStock >= 0 {
		item.MinStock = *req.MinStock
	}
	if req.TaxExempt != nil {
		item.TaxExempt = *req.TaxExempt
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) ListLowStock(ctx context.Context) ([]domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	items, err := s.repo.ListLowStock(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

// SetStock replaces the absolute quantity at a location and moves the
// product aggregate by the delta. Both rows change in one transaction.
func (s *Service) SetStock(ctx context.Context, req domain.SetStockRequest) (*domain.StockResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(req.ProductID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	locationID, err := snowflake.ParseString(strings.TrimSpace(req.LocationID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	if req.Quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.repo.FindByID(ctx, tx, orgID, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}

		current, err := s.repo.StockAt(ctx, tx, orgID, productID, locationID)
		if err != nil {
			return err
		}

		var previous int64
		if current != nil {
			previous = current.Quantity
		}

		stock := &domain.ProductStock{
			ID:         s.genID.Generate(),
			OrgID:      orgID,
			ProductID:  productID,
			LocationID: locationID,
			Quantity:   req.Quantity,
			CreatedAt:  time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
		}
		if err := s.repo.UpsertStock(ctx, tx, stock); err != nil {
			return err
		}

		delta := req.Quantity - previous
		return tx.Exec(
			`UPDATE products SET stock = stock + ?, updated_at = ? WHERE org_id = ? AND id = ?`,
			delta,
			time.Now().UTC(),
			orgID,
			productID,
		).Error
	})
	if err != nil {
		return nil, err
	}

	return &domain.StockResponse{
		ProductID:  productID.String(),
		LocationID: locationID.String(),
		Quantity:   req.Quantity,
	}, nil
}

func (s *Service) StockAt(ctx context.Context, productID, locationID string) (*domain.StockResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	pID, err := snowflake.ParseString(strings.TrimSpace(productID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	lID, err := snowflake.ParseString(strings.TrimSpace(locationID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	stock, err := s.repo.StockAt(ctx, s.db, orgID, pID, lID)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, domain.ErrNotFound
	}

	return &domain.StockResponse{
		ProductID:  pID.String(),
		LocationID: lID.String(),
		Quantity:   stock.Quantity,
	}, nil
}

func toResponse(p *domain.Product) domain.Response {
	return domain.Response{
		ID:             p.ID.String(),
		OrganizationID: p.OrgID.String(),
		Name:           p.Name,
		SKU:            p.SKU,
		Price:          p.Price,
		CostPrice:      p.CostPrice,
		Stock:          p.Stock,
		MinStock:       p.MinStock,
		TaxExempt:      p.TaxExempt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

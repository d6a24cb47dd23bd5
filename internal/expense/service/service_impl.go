package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/retailcore/internal/expense/domain"
	"github.com/smallbiznis/retailcore/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("expense.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, domain.ErrInvalidCategory
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var locationID *snowflake.ID
	if strings.TrimSpace(req.LocationID) != "" {
		parsed, err := snowflake.ParseString(strings.TrimSpace(req.LocationID))
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		locationID = &parsed
	}

	now := time.Now().UTC()
	incurredAt := now
	if req.IncurredAt != nil {
		incurredAt = req.IncurredAt.UTC()
	}

	var createdBy snowflake.ID
	if userID, ok := orgcontext.UserIDFromContext(ctx); ok {
		createdBy = userID
	}

	expense := &domain.Expense{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		LocationID:  locationID,
		Category:    category,
		Description: strings.TrimSpace(req.Description),
		Amount:      amount,
		IncurredAt:  incurredAt,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, s.db, expense); err != nil {
		return nil, err
	}

	resp := toResponse(expense)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	items, err := s.repo.List(ctx, s.db, orgID, req)
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

	expenseID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	expense, err := s.repo.FindByID(ctx, s.db, orgID, expenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(expense)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	expenseID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	expense, err := s.repo.FindByID(ctx, s.db, orgID, expenseID)
	if err != nil {
		return err
	}
	if expense == nil {
		return domain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, orgID, expenseID)
}

func toResponse(e *domain.Expense) domain.Response {
	resp := domain.Response{
		ID:             e.ID.String(),
		OrganizationID: e.OrgID.String(),
		Category:       e.Category,
		Description:    e.Description,
		Amount:         e.Amount,
		IncurredAt:     e.IncurredAt,
		CreatedAt:      e.CreatedAt,
	}
	if e.LocationID != nil {
		resp.LocationID = e.LocationID.String()
	}
	return resp
}

package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RateResolver resolves the VAT rate the sale engine applies at sale time.
type RateResolver interface {
	// ResolveActiveRate returns the active rate for the scope, or
	// (zero, false) when no rule covers asOf. The zero-rate outcome is a
	// deliberate degradation, not an error: a sale without an active
	// rule proceeds untaxed.
	ResolveActiveRate(ctx context.Context, jurisdiction, taxType string, asOf time.Time) (decimal.Decimal, bool, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error

	// SeedDefaultVAT creates the default NG/VAT rule when the
	// organization has none for that scope. Idempotent.
	SeedDefaultVAT(ctx context.Context) (*Response, error)
}

type ListRequest struct {
	Jurisdiction string
	TaxType      string
	ActiveAt     *time.Time
	SortBy       string
	OrderBy      string
}

type CreateRequest struct {
	Jurisdiction  string     `json:"jurisdiction"`
	TaxType       string     `json:"tax_type"`
	Rate          string     `json:"rate"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
}

type UpdateRequest struct {
	ID            string     `json:"id"`
	Rate          *string    `json:"rate,omitempty"`
	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
}

type Response struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Jurisdiction   string          `json:"jurisdiction"`
	TaxType        string          `json:"tax_type"`
	Rate           decimal.Decimal `json:"rate"`
	EffectiveFrom  time.Time       `json:"effective_from"`
	EffectiveTo    *time.Time      `json:"effective_to,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

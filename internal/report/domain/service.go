package domain

import (
	"context"
	"errors"
	"io"
	"time"
)

type Service interface {
	// SalesCSV renders in-window sales, one row per line item.
	SalesCSV(ctx context.Context, req Request) (io.Reader, error)
	// SummaryPDF renders the profit-and-loss summary with a top-product table.
	SummaryPDF(ctx context.Context, req Request) (io.Reader, error)
}

type Request struct {
	Period string
	From   *time.Time
	To     *time.Time
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrRenderFailed        = errors.New("render_failed")
)

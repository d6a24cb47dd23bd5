package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, location *Location) error
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*Location, error)
	List(ctx context.Context, orgID snowflake.ID) ([]Location, error)
	Update(ctx context.Context, location *Location) error
	Delete(ctx context.Context, orgID, id snowflake.ID) error
}

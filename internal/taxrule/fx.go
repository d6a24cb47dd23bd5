package taxrule

import (
	"github.com/smallbiznis/retailcore/internal/taxrule/repository"
	"github.com/smallbiznis/retailcore/internal/taxrule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("taxrule.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewResolver),
	fx.Provide(service.New),
)

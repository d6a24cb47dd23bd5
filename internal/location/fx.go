package location

import (
	"github.com/smallbiznis/retailcore/internal/location/repository"
	"github.com/smallbiznis/retailcore/internal/location/service"
	"go.uber.org/fx"
)

var Module = fx.Module("location.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.New),
)

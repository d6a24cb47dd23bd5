package analytics

import (
	"github.com/smallbiznis/retailcore/internal/analytics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics.service",
	fx.Provide(service.NewSummaryCache),
	fx.Provide(service.New),
)

package report

import (
	"github.com/smallbiznis/retailcore/internal/report/pdf"
	"github.com/smallbiznis/retailcore/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(pdf.New),
	fx.Provide(service.New),
)

package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type SummaryData struct {
	OrgID      string
	PeriodName string
	From       string
	To         string

	KPIs []KPI

	TopProducts []TopProductRow
}

type KPI struct {
	Label string
	Value string
}

type TopProductRow struct {
	Name     string
	SKU      string
	Quantity int64
	Revenue  string
}

type Provider struct{}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) GenerateSummary(ctx context.Context, data SummaryData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Business Summary", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.PeriodName, props.Text{
			Size:  10,
			Align: align.Right,
			Top:   4,
		}),
	)

	m.AddRow(12,
		col.New(12).Add(
			text.New("Window: "+data.From+" to "+data.To, props.Text{Size: 9}),
		),
	)

	for _, kpi := range data.KPIs {
		m.AddRow(8,
			text.NewCol(6, kpi.Label, props.Text{Size: 10}),
			text.NewCol(6, kpi.Value, props.Text{Size: 10, Align: align.Right}),
		)
	}

	if len(data.TopProducts) > 0 {
		m.AddRow(12,
			text.NewCol(12, "Top products", props.Text{
				Size:  12,
				Style: fontstyle.Bold,
				Top:   3,
			}),
		)
		m.AddRow(8,
			text.NewCol(5, "Product", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(3, "SKU", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Revenue", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		)
		for _, row := range data.TopProducts {
			m.AddRow(8,
				text.NewCol(5, row.Name, props.Text{Size: 9}),
				text.NewCol(3, row.SKU, props.Text{Size: 9}),
				text.NewCol(2, fmt.Sprintf("%d", row.Quantity), props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, row.Revenue, props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

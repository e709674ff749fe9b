package charts

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"tradedash/internal/model"
)

type LineTrace struct {
	Type      string    `json:"type"`
	Mode      string    `json:"mode"`
	Name      string    `json:"name"`
	X         []string  `json:"x"`
	Y         []float64 `json:"y"`
	HoverText []string  `json:"hovertext"`
	HoverInfo string    `json:"hoverinfo"`
}

type LineFigure struct {
	Data      []LineTrace     `json:"data"`
	Layout    Layout          `json:"layout"`
	Country   string          `json:"country"`
	Indicator model.Indicator `json:"indicator"`
	Empty     bool            `json:"empty"`
}

// BuildLineChart plots one country's series in the order given. Missing
// years stay missing.
func BuildLineChart(slice model.Table, label string, indicator model.Indicator) LineFigure {
	trace := LineTrace{
		Type:      "scatter",
		Mode:      "lines",
		Name:      label,
		X:         make([]string, 0, slice.Len()),
		Y:         make([]float64, 0, slice.Len()),
		HoverText: make([]string, 0, slice.Len()),
		HoverInfo: "x+text",
	}
	for _, record := range slice.Records {
		trace.X = append(trace.X, record.Period)
		trace.Y = append(trace.Y, record.Value)
		trace.HoverText = append(trace.HoverText, FormatValue(indicator, record.Value))
	}

	return LineFigure{
		Data: []LineTrace{trace},
		Layout: Layout{
			Title: Title{Text: fmt.Sprintf("Trade evolution for %s - %s", label, indicator.Unit())},
			XAxis: &Axis{Title: Title{Text: "Year"}},
			YAxis: &Axis{Title: Title{Text: axisLabel(indicator)}},
		},
		Country:   label,
		Indicator: indicator,
		Empty:     slice.Empty(),
	}
}

// FormatValue renders a value the way it is shown in hover labels and tables.
func FormatValue(indicator model.Indicator, value float64) string {
	switch indicator {
	case model.TradeBoPUSD:
		return "US$ " + humanize.Commaf(math.Round(value))
	default:
		return fmt.Sprintf("%.2f%%", value)
	}
}

func axisLabel(indicator model.Indicator) string {
	switch indicator {
	case model.TradeBoPUSD:
		return "Current US$"
	default:
		return "% of GDP"
	}
}

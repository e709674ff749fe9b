package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"tradedash/internal/model"
)

var ErrEmptyFigure = errors.New("charts: figure has no data")

type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatSVG:
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported chart format: %s", value)
	}
}

func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

const (
	renderWidth  = 960
	renderHeight = 480
)

// RenderLine draws a line figure server side. Periods that are not plain
// years are placed by position.
func RenderLine(fig LineFigure, format Format, w io.Writer) error {
	if fig.Empty || len(fig.Data) == 0 || len(fig.Data[0].X) == 0 {
		return ErrEmptyFigure
	}
	trace := fig.Data[0]

	xs := make([]float64, len(trace.X))
	for i, period := range trace.X {
		year, err := strconv.Atoi(strings.TrimSpace(period))
		if err != nil {
			xs[i] = float64(i)
			continue
		}
		xs[i] = float64(year)
	}

	ys := trace.Y
	// go-chart needs two values per series; a lone year is drawn as a dot.
	if len(xs) == 1 {
		xs = []float64{xs[0], xs[0]}
		ys = []float64{ys[0], ys[0]}
	}

	series := chart.ContinuousSeries{
		Name:    trace.Name,
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex(strings.TrimPrefix(blues[6].Hex(), "#")),
			StrokeWidth: 2,
			DotColor:    drawing.ColorFromHex(strings.TrimPrefix(blues[7].Hex(), "#")),
			DotWidth:    2,
		},
	}

	xAxis := chart.XAxis{
		Name: "Year",
		ValueFormatter: func(v interface{}) string {
			if f, ok := v.(float64); ok {
				return strconv.Itoa(int(math.Round(f)))
			}
			return ""
		},
	}
	yAxis := chart.YAxis{
		Name:           axisLabel(fig.Indicator),
		ValueFormatter: yFormatter(fig.Indicator),
	}
	if len(trace.X) == 1 {
		xAxis.Range = &chart.ContinuousRange{Min: xs[0] - 1, Max: xs[0] + 1}
		pad := math.Max(math.Abs(trace.Y[0])*0.1, 1)
		yAxis.Range = &chart.ContinuousRange{Min: trace.Y[0] - pad, Max: trace.Y[0] + pad}
	}

	graph := chart.Chart{
		Title:  fig.Layout.Title.Text,
		Width:  renderWidth,
		Height: renderHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis:  xAxis,
		YAxis:  yAxis,
		Series: []chart.Series{series},
	}

	provider := chart.SVG
	if format == FormatPNG {
		provider = chart.PNG
	}
	if err := graph.Render(provider, w); err != nil {
		return fmt.Errorf("charts: render %s: %w", format, err)
	}
	return nil
}

func yFormatter(indicator model.Indicator) chart.ValueFormatter {
	return func(v interface{}) string {
		f, ok := v.(float64)
		if !ok {
			return ""
		}
		if indicator == model.TradeBoPUSD {
			return humanize.SIWithDigits(f, 1, "$")
		}
		return strconv.FormatFloat(f, 'f', 0, 64) + "%"
	}
}

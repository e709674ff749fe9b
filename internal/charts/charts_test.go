package charts

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedash/internal/model"
)

func yearSlice(values map[string]float64, order ...string) model.Table {
	table := model.Table{Indicator: model.TradePctGDP}
	for _, code := range order {
		table.Records = append(table.Records, model.TradeRecord{
			CountryCode:  code,
			CountryLabel: "Label " + code,
			Period:       "2020",
			Value:        values[code],
			Indicator:    model.TradePctGDP,
		})
	}
	return table
}

func TestBuildMap_ClipsAtUpperQuartile(t *testing.T) {
	slice := yearSlice(map[string]float64{"FRA": 60, "DEU": 90, "ITA": 70, "LUX": 380, "ESP": 80},
		"FRA", "DEU", "ITA", "LUX", "ESP")

	fig := BuildMap(slice, "2020")

	zmin, zmax, ok := fig.Range()
	require.True(t, ok)
	assert.Equal(t, 60.0, zmin)
	assert.Equal(t, 90.0, zmax)
	assert.False(t, fig.Empty)
	assert.Equal(t, "Trade as a percentage of GDP for 2020", fig.Layout.Title.Text)

	trace := fig.Data[0]
	assert.Equal(t, "choropleth", trace.Type)
	assert.Equal(t, []string{"FRA", "DEU", "ITA", "LUX", "ESP"}, trace.Locations)
	assert.Equal(t, []float64{60, 90, 70, 380, 80}, trace.Z)
	assert.Equal(t, "white", trace.Marker.Line.Color)
	assert.Len(t, trace.Colorscale, 9)
}

func TestBuildMap_SaturatesAboveZMax(t *testing.T) {
	slice := yearSlice(map[string]float64{"A": 10, "B": 20, "C": 30, "D": 40}, "A", "B", "C", "D")
	fig := BuildMap(slice, "2001")

	_, zmax, ok := fig.Range()
	require.True(t, ok)
	assert.Equal(t, 30.0, zmax)

	top := blues[len(blues)-1].Hex()
	assert.Equal(t, top, fig.ColorOf(zmax))
	assert.Equal(t, top, fig.ColorOf(40))
	assert.Equal(t, top, fig.ColorOf(1e9))
	assert.Equal(t, blues[0].Hex(), fig.ColorOf(10))
	assert.Equal(t, blues[0].Hex(), fig.ColorOf(-5))
	assert.NotEqual(t, top, fig.ColorOf(20))
}

func TestBuildMap_Empty(t *testing.T) {
	fig := BuildMap(model.Table{Indicator: model.TradePctGDP}, "1899")

	assert.True(t, fig.Empty)
	_, _, ok := fig.Range()
	assert.False(t, ok)
	assert.Empty(t, fig.Entries())
	assert.Equal(t, blues[0].Hex(), fig.ColorOf(50))

	payload, err := json.Marshal(fig)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "zmax")
}

func TestBuildMap_SingleCountry(t *testing.T) {
	fig := BuildMap(yearSlice(map[string]float64{"FRA": 60}, "FRA"), "2020")

	zmin, zmax, ok := fig.Range()
	require.True(t, ok)
	assert.Equal(t, 60.0, zmin)
	assert.Equal(t, 60.0, zmax)
	assert.Equal(t, blues[len(blues)-1].Hex(), fig.ColorOf(60))
}

func TestMapFigure_EntriesSortedByValue(t *testing.T) {
	fig := BuildMap(yearSlice(map[string]float64{"FRA": 60, "DEU": 90, "ITA": 70}, "FRA", "DEU", "ITA"), "2020")

	entries := fig.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "DEU", entries[0].Code)
	assert.Equal(t, "Label DEU", entries[0].Label)
	assert.Equal(t, "FRA", entries[2].Code)
	assert.Equal(t, fig.ColorOf(60), entries[2].Color)
}

func TestMapFigure_JSONShape(t *testing.T) {
	fig := BuildMap(yearSlice(map[string]float64{"FRA": 60, "DEU": 90}, "FRA", "DEU"), "2020")

	payload, err := json.Marshal(fig)
	require.NoError(t, err)

	var decoded struct {
		Data []struct {
			Colorscale [][]any `json:"colorscale"`
			ZMin       float64 `json:"zmin"`
		} `json:"data"`
		Layout struct {
			Geo struct {
				Projection struct {
					Type string `json:"type"`
				} `json:"projection"`
			} `json:"geo"`
		} `json:"layout"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Len(t, decoded.Data, 1)
	assert.Equal(t, []any{0.0, "rgb(247,251,255)"}, decoded.Data[0].Colorscale[0])
	assert.Equal(t, []any{1.0, "rgb(8,48,107)"}, decoded.Data[0].Colorscale[8])
	assert.Equal(t, 60.0, decoded.Data[0].ZMin)
	assert.Equal(t, "equirectangular", decoded.Layout.Geo.Projection.Type)
}

func TestColorStop_RoundTrip(t *testing.T) {
	var stop ColorStop
	require.NoError(t, json.Unmarshal([]byte(`[0.5, "rgb(1,2,3)"]`), &stop))
	assert.Equal(t, ColorStop{Position: 0.5, Color: "rgb(1,2,3)"}, stop)
	assert.Error(t, json.Unmarshal([]byte(`[0.5]`), &stop))
}

func countrySlice(indicator model.Indicator) model.Table {
	return model.Table{Indicator: indicator, Records: []model.TradeRecord{
		{CountryCode: "FRA", CountryLabel: "France", Period: "2019", Value: 63.1, Indicator: indicator},
		{CountryCode: "FRA", CountryLabel: "France", Period: "2021", Value: 62.5, Indicator: indicator},
	}}
}

func TestBuildLineChart(t *testing.T) {
	fig := BuildLineChart(countrySlice(model.TradePctGDP), "France", model.TradePctGDP)

	assert.Equal(t, "Trade evolution for France - as a percentage of GDP", fig.Layout.Title.Text)
	require.Len(t, fig.Data, 1)
	assert.Equal(t, []string{"2019", "2021"}, fig.Data[0].X)
	assert.Equal(t, []float64{63.1, 62.5}, fig.Data[0].Y)
	assert.Equal(t, []string{"63.10%", "62.50%"}, fig.Data[0].HoverText)
	assert.Equal(t, "lines", fig.Data[0].Mode)
	assert.False(t, fig.Empty)
}

func TestBuildLineChart_BalanceOfPayments(t *testing.T) {
	slice := model.Table{Indicator: model.TradeBoPUSD, Records: []model.TradeRecord{
		{CountryCode: "DEU", CountryLabel: "Germany", Period: "2020", Value: 2.345e11},
		{CountryCode: "DEU", CountryLabel: "Germany", Period: "2021", Value: -1234.4},
	}}

	fig := BuildLineChart(slice, "Germany", model.TradeBoPUSD)

	assert.Equal(t, "Trade evolution for Germany - current US$", fig.Layout.Title.Text)
	assert.Equal(t, "Current US$", fig.Layout.YAxis.Title.Text)
	assert.Equal(t, []string{"US$ 234,500,000,000", "US$ -1,234"}, fig.Data[0].HoverText)
}

func TestBuildLineChart_Empty(t *testing.T) {
	fig := BuildLineChart(model.Table{}, "Atlantis", model.TradePctGDP)

	assert.True(t, fig.Empty)
	assert.Empty(t, fig.Data[0].X)
	assert.ErrorIs(t, RenderLine(fig, FormatSVG, &bytes.Buffer{}), ErrEmptyFigure)
}

func TestRenderLine(t *testing.T) {
	fig := BuildLineChart(countrySlice(model.TradePctGDP), "France", model.TradePctGDP)

	var svg bytes.Buffer
	require.NoError(t, RenderLine(fig, FormatSVG, &svg))
	assert.Contains(t, svg.String(), "<svg")

	var png bytes.Buffer
	require.NoError(t, RenderLine(fig, FormatPNG, &png))
	assert.True(t, bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")))
}

func TestRenderLine_SinglePoint(t *testing.T) {
	slice := model.Table{Records: []model.TradeRecord{{CountryLabel: "Nauru", Period: "2020", Value: 12}}}
	fig := BuildLineChart(slice, "Nauru", model.TradePctGDP)

	var svg bytes.Buffer
	assert.NoError(t, RenderLine(fig, FormatSVG, &svg))
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("SVG")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, format)
	assert.Equal(t, "image/png", FormatPNG.ContentType())

	_, err = ParseFormat("gif")
	assert.Error(t, err)
}

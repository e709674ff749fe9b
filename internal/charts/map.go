package charts

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"tradedash/internal/model"
)

// ClipQuantile is the share of countries below the top of the color range.
// Anything above it saturates so a few very open economies do not wash out
// the rest of the map.
const ClipQuantile = 0.75

type ChoroplethTrace struct {
	Type           string      `json:"type"`
	Locations      []string    `json:"locations"`
	Z              []float64   `json:"z"`
	Text           []string    `json:"text"`
	Colorscale     []ColorStop `json:"colorscale"`
	ReverseScale   bool        `json:"reversescale"`
	AutoColorscale bool        `json:"autocolorscale"`
	Marker         struct {
		Line struct {
			Color string `json:"color"`
		} `json:"line"`
	} `json:"marker"`
	ZMin *float64 `json:"zmin,omitempty"`
	ZMax *float64 `json:"zmax,omitempty"`
}

type MapFigure struct {
	Data   []ChoroplethTrace `json:"data"`
	Layout Layout            `json:"layout"`
	Year   string            `json:"year"`
	Empty  bool              `json:"empty"`
}

type MapEntry struct {
	Code  string
	Label string
	Value float64
	Color string
}

// BuildMap colors one year of trade openness per country. The color range
// runs from the smallest value to the 75th percentile of the year's values.
func BuildMap(slice model.Table, year string) MapFigure {
	trace := ChoroplethTrace{
		Type:       "choropleth",
		Locations:  make([]string, 0, slice.Len()),
		Z:          make([]float64, 0, slice.Len()),
		Text:       make([]string, 0, slice.Len()),
		Colorscale: bluesScale(),
	}
	trace.Marker.Line.Color = "white"

	for _, record := range slice.Records {
		trace.Locations = append(trace.Locations, record.CountryCode)
		trace.Z = append(trace.Z, record.Value)
		trace.Text = append(trace.Text, record.CountryLabel)
	}

	if !slice.Empty() {
		zmin, zmax := colorRange(trace.Z)
		trace.ZMin = &zmin
		trace.ZMax = &zmax
	}

	return MapFigure{
		Data: []ChoroplethTrace{trace},
		Layout: Layout{
			Title: Title{Text: fmt.Sprintf("Trade as a percentage of GDP for %s", year)},
			Geo: &Geo{
				ShowFrame:      false,
				ShowCoastlines: false,
				Projection:     Projection{Type: "equirectangular"},
			},
		},
		Year:  year,
		Empty: slice.Empty(),
	}
}

func colorRange(values []float64) (float64, float64) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return floats.Min(sorted), stat.Quantile(ClipQuantile, stat.Empirical, sorted, nil)
}

// Range returns zmin and zmax; ok is false for an empty figure.
func (f MapFigure) Range() (float64, float64, bool) {
	if len(f.Data) == 0 || f.Data[0].ZMin == nil || f.Data[0].ZMax == nil {
		return 0, 0, false
	}
	return *f.Data[0].ZMin, *f.Data[0].ZMax, true
}

// ColorOf returns the hex color a value is drawn with. Values at or above
// zmax all get the darkest color.
func (f MapFigure) ColorOf(value float64) string {
	zmin, zmax, ok := f.Range()
	if !ok {
		return blues[0].Hex()
	}
	if zmax <= zmin {
		if value >= zmax {
			return blues[len(blues)-1].Hex()
		}
		return blues[0].Hex()
	}
	return colorAt((value - zmin) / (zmax - zmin)).Hex()
}

// Entries lists the plotted countries by descending value.
func (f MapFigure) Entries() []MapEntry {
	if len(f.Data) == 0 {
		return nil
	}
	trace := f.Data[0]
	entries := make([]MapEntry, 0, len(trace.Z))
	for i, value := range trace.Z {
		entries = append(entries, MapEntry{
			Code:  trace.Locations[i],
			Label: trace.Text[i],
			Value: value,
			Color: f.ColorOf(value),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
	return entries
}

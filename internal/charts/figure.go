// Package charts turns table slices into Plotly-compatible figures.
package charts

import (
	"encoding/json"
	"fmt"
	"math"
)

type Title struct {
	Text string `json:"text"`
}

type Axis struct {
	Title Title `json:"title"`
}

type Projection struct {
	Type string `json:"type"`
}

type Geo struct {
	ShowFrame      bool       `json:"showframe"`
	ShowCoastlines bool       `json:"showcoastlines"`
	Projection     Projection `json:"projection"`
}

type Layout struct {
	Title Title `json:"title"`
	Geo   *Geo  `json:"geo,omitempty"`
	XAxis *Axis `json:"xaxis,omitempty"`
	YAxis *Axis `json:"yaxis,omitempty"`
}

type rgb struct {
	R, G, B uint8
}

func (c rgb) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

func (c rgb) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// blues is the ColorBrewer sequential "Blues" scale, light to dark, with
// evenly spaced stops.
var blues = []rgb{
	{247, 251, 255},
	{222, 235, 247},
	{198, 219, 239},
	{158, 202, 225},
	{107, 174, 214},
	{66, 146, 198},
	{33, 113, 181},
	{8, 81, 156},
	{8, 48, 107},
}

// ColorStop marshals as the [position, color] pair Plotly expects.
type ColorStop struct {
	Position float64
	Color    string
}

func (s ColorStop) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.Position, s.Color})
}

func (s *ColorStop) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("charts: color stop needs 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &s.Position); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &s.Color)
}

func bluesScale() []ColorStop {
	stops := make([]ColorStop, len(blues))
	last := float64(len(blues) - 1)
	for i, color := range blues {
		stops[i] = ColorStop{Position: float64(i) / last, Color: color.String()}
	}
	return stops
}

// colorAt interpolates the Blues scale at t in [0, 1].
func colorAt(t float64) rgb {
	if math.IsNaN(t) || t <= 0 {
		return blues[0]
	}
	if t >= 1 {
		return blues[len(blues)-1]
	}
	pos := t * float64(len(blues)-1)
	i := int(pos)
	frac := pos - float64(i)
	from, to := blues[i], blues[i+1]
	lerp := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*frac))
	}
	return rgb{R: lerp(from.R, to.R), G: lerp(from.G, to.G), B: lerp(from.B, to.B)}
}

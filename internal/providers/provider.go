package providers

import (
	"context"
	"math"
	"strings"

	"tradedash/internal/model"
)

// MaxSeries caps the number of series a single query may return.
const MaxSeries = 200

type Query struct {
	Indicator model.Indicator
	Countries []string
	Frequency string
	MaxSeries int
}

// NewQuery builds an annual query capped at MaxSeries.
func NewQuery(indicator model.Indicator, countries []string) Query {
	return Query{
		Indicator: indicator,
		Countries: countries,
		Frequency: model.FrequencyAnnual,
		MaxSeries: MaxSeries,
	}
}

// Provider returns the long-format table for one indicator. Rows without a
// value are already dropped and each country's rows are in ascending period order.
type Provider interface {
	Name() string
	FetchSeries(ctx context.Context, query Query) (model.Table, error)
}

// Missing reports whether a raw provider value stands for "no observation".
func Missing(value float64) bool {
	return math.IsNaN(value) || math.IsInf(value, 0)
}

// NormalizeCountries upper-cases and trims the codes, dropping blanks.
func NormalizeCountries(countries []string) []string {
	out := make([]string, 0, len(countries))
	for _, country := range countries {
		trimmed := strings.ToUpper(strings.TrimSpace(country))
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

package model

import (
	"fmt"
	"strings"
)

type Indicator string

const (
	TradePctGDP Indicator = "TRADE_PCT_GDP"
	TradeBoPUSD Indicator = "TRADE_BOP_USD"
)

const FrequencyAnnual = "A"

// Indicators lists every indicator the dashboard knows, in menu order.
var Indicators = []Indicator{TradePctGDP, TradeBoPUSD}

// Code is the WDI series code of the indicator.
func (i Indicator) Code() string {
	switch i {
	case TradePctGDP:
		return "NE.TRD.GNFS.ZS"
	case TradeBoPUSD:
		return "BN.GSR.GNFS.CD"
	default:
		return string(i)
	}
}

func (i Indicator) Slug() string {
	switch i {
	case TradePctGDP:
		return "trade"
	case TradeBoPUSD:
		return "bop"
	default:
		return strings.ToLower(string(i))
	}
}

// Unit is the suffix used in chart titles.
func (i Indicator) Unit() string {
	switch i {
	case TradePctGDP:
		return "as a percentage of GDP"
	case TradeBoPUSD:
		return "current US$"
	default:
		return ""
	}
}

func (i Indicator) Valid() bool {
	return i == TradePctGDP || i == TradeBoPUSD
}

func ParseIndicator(value string) (Indicator, error) {
	trimmed := strings.TrimSpace(value)
	for _, indicator := range Indicators {
		if strings.EqualFold(trimmed, string(indicator)) ||
			strings.EqualFold(trimmed, indicator.Code()) ||
			strings.EqualFold(trimmed, indicator.Slug()) {
			return indicator, nil
		}
	}
	return "", fmt.Errorf("unknown indicator: %s", value)
}

type TradeRecord struct {
	CountryCode  string    `json:"country"`
	CountryLabel string    `json:"country_label"`
	Period       string    `json:"period"`
	Value        float64   `json:"value"`
	Indicator    Indicator `json:"indicator"`
}

// Table is the long-format result of one fetch: one row per country and year.
// Tables are shared between callers and must not be modified.
type Table struct {
	Indicator Indicator     `json:"indicator"`
	Records   []TradeRecord `json:"records"`
}

func (t Table) Len() int {
	return len(t.Records)
}

func (t Table) Empty() bool {
	return len(t.Records) == 0
}

func (t Table) Values() []float64 {
	values := make([]float64, len(t.Records))
	for i, record := range t.Records {
		values[i] = record.Value
	}
	return values
}

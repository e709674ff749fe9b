// Package transform slices fetched tables by year or by country.
package transform

import (
	"sort"

	"tradedash/internal/model"
)

// YearSlice returns the rows whose period equals year, in stored order.
func YearSlice(table model.Table, year string) model.Table {
	return filter(table, func(record model.TradeRecord) bool {
		return record.Period == year
	})
}

// CountrySlice returns the rows for one country label in stored order, which
// providers deliver chronologically.
func CountrySlice(table model.Table, label string) model.Table {
	return filter(table, func(record model.TradeRecord) bool {
		return record.CountryLabel == label
	})
}

// Periods lists the distinct periods of table, sorted.
func Periods(table model.Table) []string {
	return distinct(table, func(record model.TradeRecord) string { return record.Period })
}

// CountryLabels lists the distinct country labels of table, sorted.
func CountryLabels(table model.Table) []string {
	return distinct(table, func(record model.TradeRecord) string { return record.CountryLabel })
}

// LabelForCode finds the label the provider attached to an ISO3 code.
func LabelForCode(table model.Table, code string) (string, bool) {
	for _, record := range table.Records {
		if record.CountryCode == code {
			return record.CountryLabel, true
		}
	}
	return "", false
}

func filter(table model.Table, keep func(model.TradeRecord) bool) model.Table {
	records := make([]model.TradeRecord, 0)
	for _, record := range table.Records {
		if keep(record) {
			records = append(records, record)
		}
	}
	return model.Table{Indicator: table.Indicator, Records: records}
}

func distinct(table model.Table, key func(model.TradeRecord) string) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, record := range table.Records {
		value := key(record)
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}

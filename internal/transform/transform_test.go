package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedash/internal/model"
)

func exampleTable() model.Table {
	return model.Table{
		Indicator: model.TradePctGDP,
		Records: []model.TradeRecord{
			{CountryCode: "FRA", CountryLabel: "France", Period: "2020", Value: 60.0, Indicator: model.TradePctGDP},
			{CountryCode: "FRA", CountryLabel: "France", Period: "2021", Value: 62.5, Indicator: model.TradePctGDP},
			{CountryCode: "DEU", CountryLabel: "Germany", Period: "2020", Value: 70.0, Indicator: model.TradePctGDP},
		},
	}
}

func TestYearSlice_Example(t *testing.T) {
	table := exampleTable()

	slice := YearSlice(table, "2020")

	require.Len(t, slice.Records, 2)
	assert.Equal(t, table.Records[0], slice.Records[0])
	assert.Equal(t, table.Records[2], slice.Records[1])
	assert.Equal(t, model.TradePctGDP, slice.Indicator)
}

func TestCountrySlice_Example(t *testing.T) {
	slice := CountrySlice(exampleTable(), "France")

	require.Len(t, slice.Records, 2)
	assert.Equal(t, "2020", slice.Records[0].Period)
	assert.Equal(t, "2021", slice.Records[1].Period)
}

func TestSlices_UnknownKeysAreEmpty(t *testing.T) {
	table := exampleTable()

	year := YearSlice(table, "1899")
	assert.True(t, year.Empty())
	assert.NotNil(t, year.Records)

	country := CountrySlice(table, "Atlantis")
	assert.True(t, country.Empty())

	assert.True(t, YearSlice(model.Table{}, "2020").Empty())
}

func TestSlices_DoNotShareBackingArray(t *testing.T) {
	table := exampleTable()
	slice := YearSlice(table, "2020")
	slice.Records[0].Value = -1

	assert.Equal(t, 60.0, table.Records[0].Value)
}

func syntheticTable() model.Table {
	countries := []struct{ code, label string }{
		{"FRA", "France"}, {"DEU", "Germany"}, {"ITA", "Italy"}, {"ESP", "Spain"},
	}
	years := []string{"2017", "2018", "2019", "2020", "2021"}
	table := model.Table{Indicator: model.TradePctGDP}
	for ci, country := range countries {
		for yi, year := range years {
			// Italy misses 2018, Spain only reports from 2019.
			if (country.code == "ITA" && year == "2018") || (country.code == "ESP" && yi < 2) {
				continue
			}
			table.Records = append(table.Records, model.TradeRecord{
				CountryCode:  country.code,
				CountryLabel: country.label,
				Period:       year,
				Value:        float64(ci*10 + yi),
				Indicator:    model.TradePctGDP,
			})
		}
	}
	return table
}

func TestYearSlice_Properties(t *testing.T) {
	table := syntheticTable()

	for _, year := range Periods(table) {
		reporting := map[string]struct{}{}
		for _, record := range table.Records {
			if record.Period == year {
				reporting[record.CountryCode] = struct{}{}
			}
		}

		slice := YearSlice(table, year)
		assert.Len(t, slice.Records, len(reporting), year)
		for _, record := range slice.Records {
			assert.Equal(t, year, record.Period)
		}
	}
}

func TestCountrySlice_Properties(t *testing.T) {
	table := syntheticTable()

	for _, label := range CountryLabels(table) {
		slice := CountrySlice(table, label)
		require.NotEmpty(t, slice.Records, label)
		for i, record := range slice.Records {
			assert.Equal(t, label, record.CountryLabel)
			if i > 0 {
				assert.Less(t, slice.Records[i-1].Period, record.Period, label)
			}
		}
	}
}

func TestDistinctSortedKeys(t *testing.T) {
	table := syntheticTable()

	assert.Equal(t, []string{"2017", "2018", "2019", "2020", "2021"}, Periods(table))
	assert.Equal(t, []string{"France", "Germany", "Italy", "Spain"}, CountryLabels(table))
	assert.Empty(t, Periods(model.Table{}))
}

func TestLabelForCode(t *testing.T) {
	label, ok := LabelForCode(exampleTable(), "DEU")
	assert.True(t, ok)
	assert.Equal(t, "Germany", label)

	_, ok = LabelForCode(exampleTable(), "USA")
	assert.False(t, ok)
}

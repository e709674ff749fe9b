package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedash/internal/fetcher"
	"tradedash/internal/model"
	"tradedash/internal/providers"
)

type fakeProvider struct {
	err error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) FetchSeries(ctx context.Context, query providers.Query) (model.Table, error) {
	if p.err != nil {
		return model.Table{}, p.err
	}
	if query.Indicator == model.TradeBoPUSD {
		return model.Table{Indicator: query.Indicator, Records: []model.TradeRecord{
			{CountryCode: "DEU", CountryLabel: "Germany", Period: "2021", Value: 1.9e11, Indicator: query.Indicator},
		}}, nil
	}
	return model.Table{Indicator: query.Indicator, Records: []model.TradeRecord{
		{CountryCode: "FRA", CountryLabel: "France", Period: "2020", Value: 58.1, Indicator: query.Indicator},
		{CountryCode: "FRA", CountryLabel: "France", Period: "2021", Value: 62.5, Indicator: query.Indicator},
		{CountryCode: "DEU", CountryLabel: "Germany", Period: "2021", Value: 89.2, Indicator: query.Indicator},
	}}, nil
}

func readJSON(t *testing.T, path string, out any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	files, err := publish(context.Background(), zerolog.Nop(), &fakeProvider{}, []string{"FRA", "DEU"}, dir, now)
	require.NoError(t, err)
	// meta, years, countries, 2 maps, 2 trade, 1 bop
	assert.Equal(t, 8, files)

	var meta metaFile
	readJSON(t, filepath.Join(dir, "meta.json"), &meta)
	assert.Equal(t, "2024-05-01T12:00:00Z", meta.GeneratedAt)
	assert.Equal(t, "fake", meta.Provider)
	require.Len(t, meta.Indicators, 2)
	assert.Equal(t, "NE.TRD.GNFS.ZS", meta.Indicators[0].Code)
	assert.Equal(t, 3, meta.Indicators[0].Rows)

	var years []string
	readJSON(t, filepath.Join(dir, "years.json"), &years)
	assert.Equal(t, []string{"2020", "2021"}, years)

	var countries countriesFile
	readJSON(t, filepath.Join(dir, "countries.json"), &countries)
	assert.Equal(t, []countryEntry{{ISO3: "FRA", Label: "France"}, {ISO3: "DEU", Label: "Germany"}}, countries.Trade)
	assert.Equal(t, []countryEntry{{ISO3: "DEU", Label: "Germany"}}, countries.BoP)

	var mapFig struct {
		Year string `json:"year"`
		Data []struct {
			Locations []string `json:"locations"`
		} `json:"data"`
	}
	readJSON(t, filepath.Join(dir, "map", "2021.json"), &mapFig)
	assert.Equal(t, "2021", mapFig.Year)
	assert.Equal(t, []string{"FRA", "DEU"}, mapFig.Data[0].Locations)

	var line struct {
		Country string `json:"country"`
		Data    []struct {
			X []string `json:"x"`
		} `json:"data"`
	}
	readJSON(t, filepath.Join(dir, "trade", "FRA.json"), &line)
	assert.Equal(t, "France", line.Country)
	assert.Equal(t, []string{"2020", "2021"}, line.Data[0].X)

	assert.FileExists(t, filepath.Join(dir, "bop", "DEU.json"))
	assert.NoFileExists(t, filepath.Join(dir, "bop", "FRA.json"))
}

func TestPublish_FetchError(t *testing.T) {
	dir := t.TempDir()

	_, err := publish(context.Background(), zerolog.Nop(), &fakeProvider{err: errors.New("boom")}, []string{"FRA"}, dir, time.Now())
	require.Error(t, err)
	assert.True(t, fetcher.IsFetchError(err))
	assert.NoFileExists(t, filepath.Join(dir, "meta.json"))
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "years.json")

	require.NoError(t, writeJSON(path, []string{"2020", "2021"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["2020","2021"]`, string(data))

	assert.Error(t, writeJSON(filepath.Join(dir, "missing", "x.json"), 1))
	assert.Error(t, writeJSON(path, func() {}))
}

func TestPublish_ReportsWriteFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(out, []byte("not a directory"), 0o644))

	files, err := publish(context.Background(), zerolog.Nop(), &fakeProvider{}, []string{"FRA"}, out, time.Now())
	require.Error(t, err)
	assert.Equal(t, 0, files)
}

func TestResolveCountries(t *testing.T) {
	list, err := resolveCountries("fra, deu", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"FRA", "DEU"}, list)

	list, err = resolveCountries("", "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCountries, list)

	_, err = resolveCountries("", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

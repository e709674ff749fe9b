// Package dashboard wires fetched tables to the views of the trade dashboard.
package dashboard

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"tradedash/internal/charts"
	"tradedash/internal/model"
	"tradedash/internal/transform"
)

// Source returns the full table for one indicator. *fetcher.Fetcher
// satisfies it.
type Source interface {
	Fetch(ctx context.Context, indicator model.Indicator, countries []string) (model.Table, error)
}

type Service struct {
	source    Source
	countries []string
	provider  string
	log       zerolog.Logger
}

func NewService(source Source, countries []string, provider string, log zerolog.Logger) *Service {
	return &Service{
		source:    source,
		countries: countries,
		provider:  provider,
		log:       log.With().Str("component", "dashboard").Logger(),
	}
}

func (s *Service) Provider() string {
	return s.provider
}

// Table returns the cached table for indicator over the configured countries.
func (s *Service) Table(ctx context.Context, indicator model.Indicator) (model.Table, error) {
	return s.source.Fetch(ctx, indicator, s.countries)
}

// Years lists the periods offered by the map view, taken from the trade/GDP table.
func (s *Service) Years(ctx context.Context) ([]string, error) {
	table, err := s.Table(ctx, model.TradePctGDP)
	if err != nil {
		return nil, err
	}
	return transform.Periods(table), nil
}

// Countries lists the labels present in indicator's own table.
func (s *Service) Countries(ctx context.Context, indicator model.Indicator) ([]string, error) {
	table, err := s.Table(ctx, indicator)
	if err != nil {
		return nil, err
	}
	return transform.CountryLabels(table), nil
}

func (s *Service) MapFigure(ctx context.Context, year string) (charts.MapFigure, error) {
	table, err := s.Table(ctx, model.TradePctGDP)
	if err != nil {
		return charts.MapFigure{}, err
	}
	return charts.BuildMap(transform.YearSlice(table, year), year), nil
}

// Evolution builds the line chart for one country. country is matched
// against labels first and ISO3 codes second.
func (s *Service) Evolution(ctx context.Context, indicator model.Indicator, country string) (charts.LineFigure, error) {
	table, err := s.Table(ctx, indicator)
	if err != nil {
		return charts.LineFigure{}, err
	}
	label := country
	slice := transform.CountrySlice(table, label)
	if slice.Empty() {
		if byCode, ok := transform.LabelForCode(table, strings.ToUpper(country)); ok {
			label = byCode
			slice = transform.CountrySlice(table, label)
		}
	}
	if slice.Empty() {
		s.log.Debug().Str("indicator", indicator.Code()).Str("country", country).Msg("No rows for country")
	}
	return charts.BuildLineChart(slice, label, indicator), nil
}

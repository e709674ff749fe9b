// Package fetcher is the cached boundary between the dashboard and the
// remote series provider.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tradedash/internal/model"
	"tradedash/internal/providers"
)

// FetchError reports a failed remote query for one indicator.
type FetchError struct {
	Indicator model.Indicator
	Provider  string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s from %s: %v", e.Indicator.Code(), e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err carries a FetchError.
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

type Fetcher struct {
	provider providers.Provider
	cache    *Cache
	log      zerolog.Logger
}

func New(provider providers.Provider, cache *Cache, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		provider: provider,
		cache:    cache,
		log:      log.With().Str("component", "fetcher").Str("provider", provider.Name()).Logger(),
	}
}

// Fetch returns the annual table for indicator over countries. Identical
// requests are served from the cache without touching the provider.
func (f *Fetcher) Fetch(ctx context.Context, indicator model.Indicator, countries []string) (model.Table, error) {
	if !indicator.Valid() {
		return model.Table{}, fmt.Errorf("unknown indicator: %s", indicator)
	}
	if len(countries) == 0 {
		return model.Table{}, errors.New("country list is empty")
	}

	key := Key(indicator, countries)
	table, hit, err := f.cache.GetOrLoad(ctx, key, func(ctx context.Context) (model.Table, error) {
		start := time.Now()
		table, err := f.provider.FetchSeries(ctx, providers.NewQuery(indicator, countries))
		if err != nil {
			if isContextErr(err) {
				return model.Table{}, err
			}
			return model.Table{}, &FetchError{Indicator: indicator, Provider: f.provider.Name(), Err: err}
		}
		table = dropMissing(table)
		f.log.Info().
			Str("indicator", indicator.Code()).
			Int("countries", len(countries)).
			Int("rows", table.Len()).
			Dur("duration", time.Since(start)).
			Msg("Fetched series")
		return table, nil
	})
	if err != nil {
		if isContextErr(err) {
			f.log.Debug().Err(err).Str("indicator", indicator.Code()).Msg("Fetch abandoned by caller")
			return model.Table{}, err
		}
		f.log.Error().Err(err).Str("indicator", indicator.Code()).Msg("Fetch failed")
		return model.Table{}, err
	}
	if hit {
		f.log.Debug().Str("indicator", indicator.Code()).Msg("Cache hit")
	}
	return table, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// dropMissing guards the no-NaN invariant regardless of provider.
func dropMissing(table model.Table) model.Table {
	for i, record := range table.Records {
		if !providers.Missing(record.Value) {
			continue
		}
		kept := make([]model.TradeRecord, 0, len(table.Records))
		kept = append(kept, table.Records[:i]...)
		for _, rest := range table.Records[i+1:] {
			if !providers.Missing(rest.Value) {
				kept = append(kept, rest)
			}
		}
		return model.Table{Indicator: table.Indicator, Records: kept}
	}
	return table
}

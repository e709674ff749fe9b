// Package dbnomics fetches World Development Indicators series through the
// DBnomics series API.
package dbnomics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tradedash/internal/model"
	"tradedash/internal/providers"
)

const (
	defaultBaseURL         = "https://api.db.nomics.org/v22/"
	defaultProviderCode    = "WB"
	defaultDatasetCode     = "WDI"
	defaultPageSize        = 1000
	defaultRateLimitPerSec = 5
	defaultRateLimitBurst  = 5
	defaultTimeoutSeconds  = 60
	defaultUserAgent       = "tradedash/0.1"
	countryDimension       = "country"
)

var ErrNoRecords = errors.New("dbnomics: no series found")

type Config struct {
	BaseURL         string
	ProviderCode    string
	DatasetCode     string
	PageSize        int
	RateLimitPerSec float64
	RateLimitBurst  int
	Timeout         time.Duration
	UserAgent       string
}

type Provider struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

func New(log zerolog.Logger) (*Provider, error) {
	return NewWithConfig(ConfigFromEnv(), log)
}

func NewWithConfig(cfg Config, log zerolog.Logger) (*Provider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("dbnomics: invalid base url: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	if strings.TrimSpace(cfg.ProviderCode) == "" {
		cfg.ProviderCode = defaultProviderCode
	}
	if strings.TrimSpace(cfg.DatasetCode) == "" {
		cfg.DatasetCode = defaultDatasetCode
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = defaultRateLimitPerSec
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = defaultRateLimitBurst
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeoutSeconds * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Provider{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst),
		log:     log.With().Str("provider", "dbnomics").Logger(),
	}, nil
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:         providers.Getenv("DBNOMICS_BASE_URL", defaultBaseURL),
		ProviderCode:    providers.Getenv("DBNOMICS_PROVIDER_CODE", defaultProviderCode),
		DatasetCode:     providers.Getenv("DBNOMICS_DATASET_CODE", defaultDatasetCode),
		PageSize:        providers.GetenvInt("DBNOMICS_PAGE_SIZE", defaultPageSize),
		RateLimitPerSec: providers.GetenvFloat("DBNOMICS_RATE_LIMIT_PER_SEC", defaultRateLimitPerSec),
		RateLimitBurst:  providers.GetenvInt("DBNOMICS_RATE_LIMIT_BURST", defaultRateLimitBurst),
		Timeout:         time.Duration(providers.GetenvInt("DBNOMICS_TIMEOUT_SECONDS", defaultTimeoutSeconds)) * time.Second,
		UserAgent:       providers.Getenv("DBNOMICS_USER_AGENT", defaultUserAgent),
	}
}

func (p *Provider) Name() string {
	return "dbnomics"
}

func (p *Provider) FetchSeries(ctx context.Context, query providers.Query) (model.Table, error) {
	countries := providers.NormalizeCountries(query.Countries)
	if len(countries) == 0 {
		return model.Table{}, errors.New("dbnomics: no countries requested")
	}
	maxSeries := query.MaxSeries
	if maxSeries <= 0 {
		maxSeries = providers.MaxSeries
	}
	frequency := query.Frequency
	if frequency == "" {
		frequency = model.FrequencyAnnual
	}

	dimensions, err := json.Marshal(map[string][]string{
		"frequency":      {frequency},
		"indicator":      {query.Indicator.Code()},
		countryDimension: countries,
	})
	if err != nil {
		return model.Table{}, err
	}

	docs := make([]seriesDoc, 0)
	labels := map[string]string{}
	for {
		limit := p.config.PageSize
		if remaining := maxSeries - len(docs); remaining < limit {
			limit = remaining
		}
		params := url.Values{}
		params.Set("dimensions", string(dimensions))
		params.Set("observations", "1")
		params.Set("offset", strconv.Itoa(len(docs)))
		params.Set("limit", strconv.Itoa(limit))

		var page seriesResponse
		if err := p.doJSON(ctx, p.seriesPath(), params, &page); err != nil {
			return model.Table{}, err
		}
		if len(page.Errors) > 0 {
			return model.Table{}, fmt.Errorf("dbnomics: %s", page.Errors[0].String())
		}
		if dataset, ok := page.dataset(p.datasetKey()); ok {
			for code, label := range dataset.countryLabels() {
				labels[code] = label
			}
		}

		numFound := page.Series.NumFound
		if numFound > maxSeries && len(docs) == 0 {
			p.log.Warn().
				Int("num_found", numFound).
				Int("max_series", maxSeries).
				Str("indicator", query.Indicator.Code()).
				Msg("Series count exceeds cap, truncating")
		}

		pageDocs := page.Series.Docs
		if len(docs)+len(pageDocs) > maxSeries {
			pageDocs = pageDocs[:maxSeries-len(docs)]
		}
		docs = append(docs, pageDocs...)

		p.log.Debug().
			Int("page_series", len(pageDocs)).
			Int("total_series", len(docs)).
			Int("num_found", numFound).
			Msg("Fetched series page")

		if len(pageDocs) == 0 || len(docs) >= maxSeries || len(docs) >= numFound {
			break
		}
	}

	if len(docs) == 0 {
		return model.Table{}, ErrNoRecords
	}
	return buildTable(query.Indicator, docs, labels), nil
}

func (p *Provider) seriesPath() string {
	return "series/" + url.PathEscape(p.config.ProviderCode) + "/" + url.PathEscape(p.config.DatasetCode)
}

func (p *Provider) datasetKey() string {
	return p.config.ProviderCode + "/" + p.config.DatasetCode
}

func (p *Provider) doJSON(ctx context.Context, path string, params url.Values, dest any) error {
	body, err := p.doRequest(ctx, path, params)
	if err != nil {
		return err
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("dbnomics: decode response: %w", err)
	}
	return nil
}

func (p *Provider) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := strings.TrimRight(p.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.config.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoRecords
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("dbnomics: request failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

type seriesResponse struct {
	Series   seriesPage                 `json:"series"`
	Dataset  *datasetInfo               `json:"dataset"`
	Datasets map[string]json.RawMessage `json:"datasets"`
	Errors   []apiError                 `json:"errors"`
}

type seriesPage struct {
	NumFound int         `json:"num_found"`
	Offset   int         `json:"offset"`
	Limit    int         `json:"limit"`
	Docs     []seriesDoc `json:"docs"`
}

type seriesDoc struct {
	SeriesCode string            `json:"series_code"`
	SeriesName string            `json:"series_name"`
	Dimensions map[string]string `json:"dimensions"`
	Period     []string          `json:"period"`
	Value      []any             `json:"value"`
}

type datasetInfo struct {
	DimensionsValuesLabels map[string]json.RawMessage `json:"dimensions_values_labels"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e apiError) String() string {
	if e.Type != "" {
		return e.Type + ": " + e.Message
	}
	return e.Message
}

func (r seriesResponse) dataset(key string) (datasetInfo, bool) {
	if raw, ok := r.Datasets[key]; ok {
		var info datasetInfo
		if err := json.Unmarshal(raw, &info); err == nil {
			return info, true
		}
	}
	if r.Dataset != nil {
		return *r.Dataset, true
	}
	return datasetInfo{}, false
}

// countryLabels accepts both label encodings served by the API: an object
// keyed by code, or a list of [code, label] pairs.
func (d datasetInfo) countryLabels() map[string]string {
	raw, ok := d.DimensionsValuesLabels[countryDimension]
	if !ok {
		return nil
	}
	labels := map[string]string{}
	if err := json.Unmarshal(raw, &labels); err == nil {
		return labels
	}
	var pairs [][]string
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil
	}
	for _, pair := range pairs {
		if len(pair) == 2 {
			labels[pair[0]] = pair[1]
		}
	}
	return labels
}

func buildTable(indicator model.Indicator, docs []seriesDoc, labels map[string]string) model.Table {
	records := make([]model.TradeRecord, 0)
	for _, doc := range docs {
		code := strings.ToUpper(strings.TrimSpace(doc.Dimensions[countryDimension]))
		label := labels[code]
		if label == "" {
			label = code
		}
		for i, period := range doc.Period {
			if i >= len(doc.Value) {
				break
			}
			value, ok := parseValue(doc.Value[i])
			if !ok {
				continue
			}
			records = append(records, model.TradeRecord{
				CountryCode:  code,
				CountryLabel: label,
				Period:       strings.TrimSpace(period),
				Value:        value,
				Indicator:    indicator,
			})
		}
	}
	return model.Table{Indicator: indicator, Records: records}
}

// parseValue returns false for "NA", null and anything non-finite.
func parseValue(raw any) (float64, bool) {
	var value float64
	switch typed := raw.(type) {
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		value = parsed
	case float64:
		value = typed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		value = parsed
	default:
		return 0, false
	}
	if providers.Missing(value) {
		return 0, false
	}
	return value, true
}

var _ providers.Provider = (*Provider)(nil)

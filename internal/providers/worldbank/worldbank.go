// Package worldbank fetches indicator series straight from the World Bank
// Indicators API (v2). It serves the same tables as the DBnomics mirror.
package worldbank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tradedash/internal/model"
	"tradedash/internal/providers"
)

const (
	defaultBaseURL         = "https://api.worldbank.org/v2/"
	defaultPathTemplate    = "country/{countries}/indicator/{indicator}"
	defaultPerPage         = 20000
	defaultRateLimitPerSec = 5
	defaultRateLimitBurst  = 5
	defaultTimeoutSeconds  = 60
	defaultUserAgent       = "tradedash/0.1"
)

var ErrNoRecords = errors.New("worldbank: no records found")

type Config struct {
	BaseURL         string
	PathTemplate    string
	PerPage         int
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
		return nil, errors.New("worldbank base url is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	if strings.TrimSpace(cfg.PathTemplate) == "" {
		cfg.PathTemplate = defaultPathTemplate
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
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
		log:     log.With().Str("provider", "worldbank").Logger(),
	}, nil
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:         providers.Getenv("WORLDBANK_BASE_URL", defaultBaseURL),
		PathTemplate:    providers.Getenv("WORLDBANK_PATH", defaultPathTemplate),
		PerPage:         providers.GetenvInt("WORLDBANK_PER_PAGE", defaultPerPage),
		RateLimitPerSec: providers.GetenvFloat("WORLDBANK_RATE_LIMIT_PER_SEC", defaultRateLimitPerSec),
		RateLimitBurst:  providers.GetenvInt("WORLDBANK_RATE_LIMIT_BURST", defaultRateLimitBurst),
		Timeout:         time.Duration(providers.GetenvInt("WORLDBANK_TIMEOUT_SECONDS", defaultTimeoutSeconds)) * time.Second,
		UserAgent:       providers.Getenv("WORLDBANK_USER_AGENT", defaultUserAgent),
	}
}

func (p *Provider) Name() string {
	return "worldbank"
}

func (p *Provider) FetchSeries(ctx context.Context, query providers.Query) (model.Table, error) {
	countries := providers.NormalizeCountries(query.Countries)
	if len(countries) == 0 {
		return model.Table{}, errors.New("worldbank: no countries requested")
	}
	maxSeries := query.MaxSeries
	if maxSeries <= 0 {
		maxSeries = providers.MaxSeries
	}
	if len(countries) > maxSeries {
		p.log.Warn().
			Int("countries", len(countries)).
			Int("max_series", maxSeries).
			Msg("Country list exceeds series cap, truncating")
		countries = countries[:maxSeries]
	}

	path := p.indicatorPath(countries, query.Indicator.Code())
	rows := make([]observation, 0)
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("format", "json")
		params.Set("per_page", strconv.Itoa(p.config.PerPage))
		params.Set("page", strconv.Itoa(page))

		meta, pageRows, err := p.fetchPage(ctx, path, params)
		if err != nil {
			return model.Table{}, err
		}
		rows = append(rows, pageRows...)

		p.log.Debug().
			Int("page", meta.Page).
			Int("pages", meta.Pages).
			Int("rows", len(pageRows)).
			Msg("Fetched indicator page")

		if meta.Pages <= page || len(pageRows) == 0 {
			break
		}
	}

	table := buildTable(query.Indicator, countries, rows)
	if table.Empty() {
		return model.Table{}, ErrNoRecords
	}
	return table, nil
}

func (p *Provider) indicatorPath(countries []string, indicator string) string {
	escaped := make([]string, len(countries))
	for i, country := range countries {
		escaped[i] = url.PathEscape(country)
	}
	path := p.config.PathTemplate
	path = strings.ReplaceAll(path, "{countries}", strings.Join(escaped, ";"))
	path = strings.ReplaceAll(path, "{indicator}", url.PathEscape(indicator))
	return path
}

// per_page is served as a string, so it is not decoded.
type pageMeta struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Total int `json:"total"`
}

type errorMessage struct {
	Message []struct {
		ID    string `json:"id"`
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"message"`
}

type observation struct {
	Country struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"country"`
	CountryISO3 string       `json:"countryiso3code"`
	Date        string       `json:"date"`
	Value       *json.Number `json:"value"`
}

// fetchPage decodes the two-element [meta, rows] envelope. Errors come back
// as a one-element array carrying a message list, usually with status 200.
func (p *Provider) fetchPage(ctx context.Context, path string, params url.Values) (pageMeta, []observation, error) {
	body, err := p.doRequest(ctx, path, params)
	if err != nil {
		return pageMeta{}, nil, err
	}

	var envelope []json.RawMessage
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&envelope); err != nil {
		return pageMeta{}, nil, fmt.Errorf("worldbank: decode response: %w", err)
	}
	if len(envelope) == 0 {
		return pageMeta{}, nil, errors.New("worldbank: empty response")
	}

	var apiErr errorMessage
	if err := json.Unmarshal(envelope[0], &apiErr); err == nil && len(apiErr.Message) > 0 {
		msg := apiErr.Message[0]
		return pageMeta{}, nil, fmt.Errorf("worldbank: %s: %s", msg.Key, strings.TrimSpace(msg.Value))
	}

	var meta pageMeta
	if err := json.Unmarshal(envelope[0], &meta); err != nil {
		return pageMeta{}, nil, fmt.Errorf("worldbank: decode page meta: %w", err)
	}
	if len(envelope) < 2 || string(envelope[1]) == "null" {
		return meta, nil, nil
	}

	var rows []observation
	if err := json.Unmarshal(envelope[1], &rows); err != nil {
		return pageMeta{}, nil, fmt.Errorf("worldbank: decode rows: %w", err)
	}
	return meta, rows, nil
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
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("worldbank: request failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// buildTable groups rows by country in request order and sorts each group by
// year; the API lists the most recent year first.
func buildTable(indicator model.Indicator, countries []string, rows []observation) model.Table {
	byCountry := make(map[string][]model.TradeRecord)
	for _, row := range rows {
		if row.Value == nil {
			continue
		}
		value, err := row.Value.Float64()
		if err != nil || providers.Missing(value) {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(row.CountryISO3))
		if code == "" {
			code = strings.ToUpper(strings.TrimSpace(row.Country.ID))
		}
		label := strings.TrimSpace(row.Country.Value)
		if label == "" {
			label = code
		}
		byCountry[code] = append(byCountry[code], model.TradeRecord{
			CountryCode:  code,
			CountryLabel: label,
			Period:       strings.TrimSpace(row.Date),
			Value:        value,
			Indicator:    indicator,
		})
	}

	records := make([]model.TradeRecord, 0, len(rows))
	appendCountry := func(code string) {
		group := byCountry[code]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Period < group[j].Period
		})
		records = append(records, group...)
		delete(byCountry, code)
	}
	for _, code := range countries {
		appendCountry(code)
	}
	leftovers := make([]string, 0, len(byCountry))
	for code := range byCountry {
		leftovers = append(leftovers, code)
	}
	sort.Strings(leftovers)
	for _, code := range leftovers {
		appendCountry(code)
	}

	return model.Table{Indicator: indicator, Records: records}
}

var _ providers.Provider = (*Provider)(nil)

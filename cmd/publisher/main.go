package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tradedash/internal/charts"
	"tradedash/internal/config"
	"tradedash/internal/fetcher"
	"tradedash/internal/logger"
	"tradedash/internal/model"
	"tradedash/internal/providers"
	"tradedash/internal/providers/registry"
	"tradedash/internal/transform"
)

type metaFile struct {
	GeneratedAt string          `json:"generated_at"`
	Provider    string          `json:"provider"`
	Countries   int             `json:"countries"`
	Indicators  []indicatorInfo `json:"indicators"`
}

type indicatorInfo struct {
	Code string `json:"code"`
	Slug string `json:"slug"`
	Unit string `json:"unit"`
	Rows int    `json:"rows"`
}

type countriesFile struct {
	Trade []countryEntry `json:"trade"`
	BoP   []countryEntry `json:"bop"`
}

type countryEntry struct {
	ISO3  string `json:"iso3"`
	Label string `json:"label"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "build":
		build(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func build(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	outDir := fs.String("out", "site/data", "output directory")
	provider := fs.String("provider", providers.Getenv("PROVIDER", registry.Names[0]), "provider id (dbnomics, worldbank)")
	countries := fs.String("countries", "", "comma-separated ISO3 list (empty = built-in list)")
	allowlist := fs.String("allowlist", "", "path to country file (overrides the built-in list)")
	logLevel := fs.String("log-level", "info", "log level")
	fs.Parse(args)

	log := logger.New(logger.Config{Level: *logLevel, Pretty: true})
	p, err := registry.New(*provider, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid provider:", err)
		os.Exit(1)
	}
	codes, err := resolveCountries(*countries, *allowlist)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid countries:", err)
		os.Exit(1)
	}

	files, err := publish(context.Background(), log, p, codes, *outDir, time.Now().UTC())
	if err != nil {
		fmt.Fprintln(os.Stderr, "publisher build failed:", err)
		os.Exit(1)
	}
	fmt.Printf("publisher build complete (out=%s files=%d)\n", *outDir, files)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: publisher build [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -out         output directory (default: site/data)")
	fmt.Fprintln(os.Stderr, "  -provider    provider id (default: dbnomics)")
	fmt.Fprintln(os.Stderr, "  -countries   comma-separated ISO3 list (default: built-in list)")
	fmt.Fprintln(os.Stderr, "  -allowlist   path to country file")
	fmt.Fprintln(os.Stderr, "  -log-level   log level (default: info)")
}

// publish fetches both indicators and writes the dashboard figures as JSON
// files under outDir. It returns the number of files written.
func publish(ctx context.Context, log zerolog.Logger, provider providers.Provider, countries []string, outDir string, now time.Time) (int, error) {
	cache, err := fetcher.NewCache(len(model.Indicators))
	if err != nil {
		return 0, err
	}
	f := fetcher.New(provider, cache, log)

	tables := make(map[model.Indicator]model.Table, len(model.Indicators))
	for _, indicator := range model.Indicators {
		table, err := f.Fetch(ctx, indicator, countries)
		if err != nil {
			return 0, err
		}
		tables[indicator] = table
	}
	trade := tables[model.TradePctGDP]
	bop := tables[model.TradeBoPUSD]

	w := &writer{root: outDir}

	meta := metaFile{
		GeneratedAt: now.Format(time.RFC3339),
		Provider:    provider.Name(),
		Countries:   len(countries),
	}
	for _, indicator := range model.Indicators {
		meta.Indicators = append(meta.Indicators, indicatorInfo{
			Code: indicator.Code(),
			Slug: indicator.Slug(),
			Unit: indicator.Unit(),
			Rows: tables[indicator].Len(),
		})
	}
	w.write("meta.json", meta)

	years := transform.Periods(trade)
	w.write("years.json", years)
	w.write("countries.json", countriesFile{Trade: countryEntries(trade), BoP: countryEntries(bop)})

	for _, year := range years {
		w.write(filepath.Join("map", year+".json"), charts.BuildMap(transform.YearSlice(trade, year), year))
	}
	for _, indicator := range model.Indicators {
		table := tables[indicator]
		for _, entry := range countryEntries(table) {
			fig := charts.BuildLineChart(transform.CountrySlice(table, entry.Label), entry.Label, indicator)
			w.write(filepath.Join(indicator.Slug(), entry.ISO3+".json"), fig)
		}
	}

	if w.err != nil {
		return w.files, w.err
	}
	log.Info().Int("files", w.files).Str("out", outDir).Msg("Export written")
	return w.files, nil
}

// countryEntries pairs each label with its ISO3 code, in label order.
func countryEntries(table model.Table) []countryEntry {
	labels := transform.CountryLabels(table)
	codes := make(map[string]string, len(labels))
	for _, record := range table.Records {
		if _, ok := codes[record.CountryLabel]; !ok {
			codes[record.CountryLabel] = record.CountryCode
		}
	}
	entries := make([]countryEntry, 0, len(labels))
	for _, label := range labels {
		entries = append(entries, countryEntry{ISO3: codes[label], Label: label})
	}
	return entries
}

// writer stops writing after the first error.
type writer struct {
	root  string
	files int
	err   error
}

func (w *writer) write(name string, value any) {
	if w.err != nil {
		return
	}
	path := filepath.Join(w.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		w.err = err
		return
	}
	if err := writeJSON(path, value); err != nil {
		w.err = fmt.Errorf("write %s: %w", name, err)
		return
	}
	w.files++
}

func writeJSON(path string, value any) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func resolveCountries(countriesCSV, allowlistPath string) ([]string, error) {
	if list := providers.NormalizeCountries(strings.Split(countriesCSV, ",")); len(list) > 0 {
		return list, nil
	}
	if strings.TrimSpace(allowlistPath) != "" {
		return config.LoadCountryFile(allowlistPath)
	}
	return append([]string(nil), model.DefaultCountries...), nil
}

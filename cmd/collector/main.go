package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"tradedash/internal/charts"
	"tradedash/internal/config"
	"tradedash/internal/fetcher"
	"tradedash/internal/logger"
	"tradedash/internal/model"
	"tradedash/internal/providers"
	"tradedash/internal/providers/registry"
	"tradedash/internal/transform"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		run(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func run(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	provider := fs.String("provider", providers.Getenv("PROVIDER", registry.Names[0]), "provider id (dbnomics, worldbank)")
	countries := fs.String("countries", "", "comma-separated ISO3 list (empty = built-in list)")
	allowlist := fs.String("allowlist", "", "path to country file (overrides the built-in list)")
	indicators := fs.String("indicators", "trade,bop", "comma-separated indicators")
	limit := fs.Int("limit", 0, "limit number of countries (0 = all)")
	logLevel := fs.String("log-level", "warn", "log level")
	verbose := fs.Bool("verbose", false, "print each record")
	fs.Parse(args)

	log := logger.New(logger.Config{Level: *logLevel, Pretty: true})
	if err := runCollector(context.Background(), log, os.Stdout, *provider, *countries, *allowlist, *indicators, *limit, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "collector run failed:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: collector run [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -provider    provider id (default: dbnomics)")
	fmt.Fprintln(os.Stderr, "  -countries   comma-separated ISO3 list (default: built-in list)")
	fmt.Fprintln(os.Stderr, "  -allowlist   path to country file")
	fmt.Fprintln(os.Stderr, "  -indicators  comma-separated indicators (default: trade,bop)")
	fmt.Fprintln(os.Stderr, "  -limit       limit number of countries (default: 0)")
	fmt.Fprintln(os.Stderr, "  -log-level   log level (default: warn)")
	fmt.Fprintln(os.Stderr, "  -verbose     print each record")
}

func runCollector(ctx context.Context, log zerolog.Logger, out io.Writer, providerID, countriesCSV, allowlistPath, indicatorsCSV string, limit int, verbose bool) error {
	provider, err := registry.New(providerID, log)
	if err != nil {
		return err
	}
	return collect(ctx, log, out, provider, countriesCSV, allowlistPath, indicatorsCSV, limit, verbose)
}

func collect(ctx context.Context, log zerolog.Logger, out io.Writer, provider providers.Provider, countriesCSV, allowlistPath, indicatorsCSV string, limit int, verbose bool) error {
	countries, err := resolveCountries(countriesCSV, allowlistPath)
	if err != nil {
		return err
	}
	if limit > 0 && len(countries) > limit {
		countries = countries[:limit]
	}

	indicators, err := parseIndicators(indicatorsCSV)
	if err != nil {
		return err
	}

	cache, err := fetcher.NewCache(len(indicators))
	if err != nil {
		return err
	}
	f := fetcher.New(provider, cache, log)

	success := 0
	failed := 0
	skipped := 0
	for _, indicator := range indicators {
		table, err := f.Fetch(ctx, indicator, countries)
		if err != nil {
			if registry.IsNoRecords(err) {
				skipped++
				fmt.Fprintf(out, "skip no-records indicator=%s\n", indicator.Code())
				continue
			}
			failed++
			fmt.Fprintf(out, "fetch failed indicator=%s: %v\n", indicator.Code(), err)
			continue
		}
		success++
		printSummary(out, table)
		if verbose {
			for _, record := range table.Records {
				fmt.Fprintf(out, "%s %s %s %s\n",
					record.CountryCode,
					record.Period,
					record.Indicator.Code(),
					charts.FormatValue(record.Indicator, record.Value),
				)
			}
		}
	}

	fmt.Fprintf(out, "collector run complete (provider=%s countries=%d indicators=%d success=%d failed=%d)\n",
		provider.Name(), len(countries), len(indicators), success, failed,
	)
	if skipped > 0 {
		fmt.Fprintf(out, "collector run skipped=%d\n", skipped)
	}
	if success == 0 && failed > 0 {
		return errors.New("every indicator failed")
	}
	return nil
}

func printSummary(out io.Writer, table model.Table) {
	periods := transform.Periods(table)
	span := "none"
	if len(periods) > 0 {
		span = periods[0] + "-" + periods[len(periods)-1]
	}
	spread := "none"
	if values := table.Values(); len(values) > 0 {
		spread = charts.FormatValue(table.Indicator, floats.Min(values)) + " to " +
			charts.FormatValue(table.Indicator, floats.Max(values))
	}
	fmt.Fprintf(out, "%s (%s): rows=%s countries=%d periods=%s values=%s\n",
		table.Indicator.Code(),
		table.Indicator.Unit(),
		humanize.Comma(int64(table.Len())),
		len(transform.CountryLabels(table)),
		span,
		spread,
	)
}

func resolveCountries(countriesCSV, allowlistPath string) ([]string, error) {
	if list := parseList(countriesCSV); len(list) > 0 {
		return list, nil
	}
	if strings.TrimSpace(allowlistPath) != "" {
		return config.LoadCountryFile(allowlistPath)
	}
	return append([]string(nil), model.DefaultCountries...), nil
}

func parseIndicators(value string) ([]model.Indicator, error) {
	raw := parseList(value)
	if len(raw) == 0 {
		return nil, errors.New("no indicators provided")
	}
	indicators := make([]model.Indicator, 0, len(raw))
	for _, item := range raw {
		indicator, err := model.ParseIndicator(item)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, indicator)
	}
	return indicators, nil
}

func parseList(value string) []string {
	return providers.NormalizeCountries(strings.Split(value, ","))
}

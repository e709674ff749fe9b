// Package config reads dashboard settings from the environment.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"tradedash/internal/fetcher"
	"tradedash/internal/model"
	"tradedash/internal/providers"
)

const (
	ProviderDBnomics  = "dbnomics"
	ProviderWorldBank = "worldbank"
)

type Config struct {
	Port      int
	LogLevel  string
	LogPretty bool
	DevMode   bool
	Provider  string
	CacheSize int
	Countries []string
}

// Load reads configuration from environment variables, after an optional
// .env file in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnvAsInt("PORT", 8501),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),
		DevMode:   getEnvAsBool("DEV_MODE", false),
		Provider:  strings.ToLower(getEnv("PROVIDER", ProviderDBnomics)),
		CacheSize: getEnvAsInt("CACHE_SIZE", fetcher.DefaultCacheSize),
	}

	countries, err := resolveCountries(getEnv("COUNTRIES", ""), getEnv("COUNTRIES_FILE", ""))
	if err != nil {
		return nil, err
	}
	cfg.Countries = countries

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	switch c.Provider {
	case ProviderDBnomics, ProviderWorldBank:
	default:
		return fmt.Errorf("PROVIDER must be %s or %s, got %q", ProviderDBnomics, ProviderWorldBank, c.Provider)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("CACHE_SIZE must be positive, got %d", c.CacheSize)
	}
	if len(c.Countries) == 0 {
		return errors.New("country list is empty")
	}
	if len(c.Countries) > providers.MaxSeries {
		return fmt.Errorf("country list has %d entries, the series cap is %d", len(c.Countries), providers.MaxSeries)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func resolveCountries(list, path string) ([]string, error) {
	if strings.TrimSpace(list) != "" {
		return unique(providers.NormalizeCountries(splitTokens(list))), nil
	}
	if strings.TrimSpace(path) != "" {
		return LoadCountryFile(path)
	}
	return append([]string(nil), model.DefaultCountries...), nil
}

// LoadCountryFile reads ISO3 codes separated by commas, semicolons, tabs or
// newlines. Everything after '#' on a line is ignored, as is an "ISO3"
// header. File order is kept.
func LoadCountryFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open country file: %w", err)
	}
	defer file.Close()

	var codes []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		for _, token := range splitTokens(line) {
			if strings.EqualFold(token, "ISO3") {
				continue
			}
			codes = append(codes, token)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read country file: %w", err)
	}

	codes = unique(providers.NormalizeCountries(codes))
	if len(codes) == 0 {
		return nil, fmt.Errorf("country file %s is empty", path)
	}
	return codes, nil
}

func unique(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := codes[:0]
	for _, code := range codes {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

func splitTokens(line string) []string {
	replacer := strings.NewReplacer(";", ",", "\t", ",", " ", ",")
	parts := strings.Split(replacer.Replace(line), ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

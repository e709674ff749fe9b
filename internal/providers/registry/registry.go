// Package registry resolves a provider id to a configured Provider.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"tradedash/internal/providers"
	"tradedash/internal/providers/dbnomics"
	"tradedash/internal/providers/worldbank"
)

// Names lists the accepted provider ids; the first is the default.
var Names = []string{"dbnomics", "worldbank"}

// New builds the provider named by id with its environment configuration.
func New(id string, log zerolog.Logger) (providers.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case "", "dbnomics":
		return dbnomics.New(log)
	case "worldbank", "wb":
		return worldbank.New(log)
	default:
		return nil, fmt.Errorf("unknown provider: %s", id)
	}
}

// IsNoRecords reports whether err is a provider's empty-answer sentinel.
func IsNoRecords(err error) bool {
	return errors.Is(err, dbnomics.ErrNoRecords) || errors.Is(err, worldbank.ErrNoRecords)
}

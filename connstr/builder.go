// Package connstr builds the connection string shown and persisted by the
// database configuration page of the model wizard.
package connstr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/schemabounce/kolumn/dbwizard/providers"
	"github.com/schemabounce/kolumn/dbwizard/types"
)

// ErrModelRequired is returned in database-first mode when no model file is known.
var ErrModelRequired = errors.New("model location is required for database-first generation")

type options struct {
	designTimeDefaults bool
}

// Option customizes BuildConnectionString.
type Option func(*options)

// WithDesignTimeDefaults appends the keywords Entity Framework expects on
// SQL Server connections (MultipleActiveResultSets and App) when the user
// did not set them. It requires a provider lookup in every mode.
func WithDesignTimeDefaults() Option {
	return func(o *options) { o.designTimeDefaults = true }
}

// BuildConnectionString derives the connection string for mode.
//
// In CodeFirstFromDatabase mode the raw provider connection string is
// returned unchanged. In DatabaseFirstFromEdmx mode it is wrapped in an
// entity connection string whose metadata points at the compiled model and
// whose provider is the invariant name registered for providerID. A missing
// model is reported before the provider is looked up.
func BuildConnectionString(
	reg providers.Registry,
	providerID types.ProviderIdentity,
	raw string,
	mode types.GenerationMode,
	model *types.ModelLocation,
	opts ...Option,
) (string, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	switch mode {
	case types.CodeFirstFromDatabase:
		if !o.designTimeDefaults {
			return raw, nil
		}
		invariantName, err := providers.InvariantName(reg, providerID)
		if err != nil {
			return "", err
		}
		return ApplyDesignTimeDefaults(invariantName, raw), nil

	case types.DatabaseFirstFromEdmx:
		if model == nil {
			return "", ErrModelRequired
		}
		modelName := model.ModelName()
		if modelName == "" {
			return "", ErrModelRequired
		}
		invariantName, err := providers.InvariantName(reg, providerID)
		if err != nil {
			return "", err
		}
		if o.designTimeDefaults {
			raw = ApplyDesignTimeDefaults(invariantName, raw)
		}
		return EntityConnectionString{
			Metadata:                 MetadataResources(modelName),
			Provider:                 invariantName,
			ProviderConnectionString: raw,
		}.String(), nil

	default:
		return "", fmt.Errorf("unsupported generation mode %s", mode)
	}
}

// ApplyDesignTimeDefaults adds MultipleActiveResultSets=True and
// App=EntityFramework to SQL Server connection strings that lack them.
// Other providers, and strings that do not parse, are returned unchanged.
func ApplyDesignTimeDefaults(invariantName types.ProviderInvariantName, raw string) string {
	if invariantName != providers.SQLClient {
		return raw
	}
	keywords, err := ParseKeywords(raw)
	if err != nil {
		return raw
	}

	var extra []string
	if !keywords.Has("MultipleActiveResultSets") {
		extra = append(extra, "MultipleActiveResultSets=True")
	}
	if !keywords.Has("App", "Application Name") {
		extra = append(extra, "App=EntityFramework")
	}
	if len(extra) == 0 {
		return raw
	}

	base := strings.TrimRight(strings.TrimSpace(raw), ";")
	if base == "" {
		return strings.Join(extra, ";")
	}
	return base + ";" + strings.Join(extra, ";")
}

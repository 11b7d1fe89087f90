package connstr

import (
	"fmt"
	"strings"

	"github.com/schemabounce/kolumn/dbwizard/types"
)

// Entity connection string keywords.
const (
	KeywordMetadata                 = "metadata"
	KeywordProvider                 = "provider"
	KeywordProviderConnectionString = "provider connection string"
)

// Metadata artifact extensions, in the order they appear in the metadata clause.
var metadataExtensions = []string{".csdl", ".ssdl", ".msl"}

// MetadataResources returns the embedded-resource paths of a compiled model.
func MetadataResources(modelName string) []string {
	out := make([]string, 0, len(metadataExtensions))
	for _, ext := range metadataExtensions {
		out = append(out, "res://*/"+modelName+ext)
	}
	return out
}

// EntityConnectionString is the connection string consumed by database-first
// models: model metadata, the store provider, and the store connection string.
type EntityConnectionString struct {
	Metadata                 []string
	Provider                 types.ProviderInvariantName
	ProviderConnectionString string
}

// String renders the connection string. The provider connection string is
// wrapped in double quotes verbatim; embedded double quotes are not escaped
// and will make the result unparseable.
func (e EntityConnectionString) String() string {
	return fmt.Sprintf(`%s=%s;%s=%s;%s="%s"`,
		KeywordMetadata, strings.Join(e.Metadata, "|"),
		KeywordProvider, e.Provider,
		KeywordProviderConnectionString, e.ProviderConnectionString)
}

// ParseEntityConnectionString parses a string produced by String or found in
// an application config file.
func ParseEntityConnectionString(s string) (*EntityConnectionString, error) {
	keywords, err := ParseKeywords(s)
	if err != nil {
		return nil, fmt.Errorf("invalid entity connection string: %w", err)
	}

	metadata, ok := keywords.Get(KeywordMetadata)
	if !ok {
		return nil, fmt.Errorf("invalid entity connection string: missing %q", KeywordMetadata)
	}

	e := &EntityConnectionString{}
	for _, part := range strings.Split(metadata, "|") {
		if part = strings.TrimSpace(part); part != "" {
			e.Metadata = append(e.Metadata, part)
		}
	}
	if provider, ok := keywords.Get(KeywordProvider); ok {
		e.Provider = types.ProviderInvariantName(provider)
	}
	e.ProviderConnectionString, _ = keywords.Get(KeywordProviderConnectionString)
	return e, nil
}

// IsEntityConnectionString reports whether s carries a metadata clause.
func IsEntityConnectionString(s string) bool {
	keywords, err := ParseKeywords(s)
	return err == nil && keywords.Has(KeywordMetadata)
}

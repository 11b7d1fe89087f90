// Package sources provides config.Loader implementations for the places an
// application configuration can live: in memory, on disk, in PostgreSQL or
// in S3.
package sources

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/schemabounce/kolumn/dbwizard/config"
)

// SourceType represents the type of configuration source
type SourceType string

const (
	SourceTypeMemory   SourceType = "memory"
	SourceTypeLocal    SourceType = "local"
	SourceTypePostgres SourceType = "postgres"
	SourceTypeS3       SourceType = "s3"
)

// Source is a configuration loader that is set up from a settings map.
type Source interface {
	config.Loader
	Configure(ctx context.Context, settings map[string]interface{}) error
}

// SourceCreator is a function that creates a new, unconfigured source
type SourceCreator func() Source

// SourceFactory creates configuration sources by type
type SourceFactory struct {
	creators map[SourceType]SourceCreator
}

// NewSourceFactory creates a factory with the standard sources registered
func NewSourceFactory() *SourceFactory {
	factory := &SourceFactory{creators: make(map[SourceType]SourceCreator)}

	factory.RegisterSource(SourceTypeMemory, func() Source { return NewMemorySource() })
	factory.RegisterSource(SourceTypeLocal, func() Source { return NewLocalSource() })
	factory.RegisterSource(SourceTypePostgres, func() Source { return NewPostgresSource() })
	factory.RegisterSource(SourceTypeS3, func() Source { return NewS3Source() })

	return factory
}

// RegisterSource registers a source type with its creator function
func (f *SourceFactory) RegisterSource(sourceType SourceType, creator SourceCreator) {
	if f.creators == nil {
		f.creators = make(map[SourceType]SourceCreator)
	}
	f.creators[sourceType] = creator
}

// CreateSource creates a new source instance of the specified type
func (f *SourceFactory) CreateSource(sourceType SourceType) (Source, error) {
	creator, exists := f.creators[sourceType]
	if !exists {
		return nil, fmt.Errorf("unknown source type: %s", sourceType)
	}

	source := creator()
	if source == nil {
		return nil, fmt.Errorf("source creator returned nil for type: %s", sourceType)
	}
	return source, nil
}

// CreateAndConfigureSource creates a new source and configures it
func (f *SourceFactory) CreateAndConfigureSource(ctx context.Context, sourceType SourceType, settings map[string]interface{}) (Source, error) {
	source, err := f.CreateSource(sourceType)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = map[string]interface{}{}
	}
	if err := source.Configure(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to configure %s source: %w", sourceType, err)
	}
	return source, nil
}

// ListAvailableSources returns all registered source types, sorted
func (f *SourceFactory) ListAvailableSources() []SourceType {
	out := make([]SourceType, 0, len(f.creators))
	for sourceType := range f.creators {
		out = append(out, sourceType)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseSourceType parses a string into a SourceType
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "memory":
		return SourceTypeMemory, nil
	case "local", "file", "filesystem":
		return SourceTypeLocal, nil
	case "postgres", "postgresql", "pg":
		return SourceTypePostgres, nil
	case "s3", "aws", "amazon":
		return SourceTypeS3, nil
	default:
		return "", fmt.Errorf("unknown source type: %s", s)
	}
}

// String returns the string representation of a SourceType
func (st SourceType) String() string {
	return string(st)
}

// DefaultSourceFactory has all standard sources registered
var DefaultSourceFactory = NewSourceFactory()

// Open creates and configures a source using the default factory
func Open(ctx context.Context, sourceType SourceType, settings map[string]interface{}) (Source, error) {
	return DefaultSourceFactory.CreateAndConfigureSource(ctx, sourceType, settings)
}

func stringSetting(settings map[string]interface{}, key string, target *string) {
	if v, ok := settings[key].(string); ok {
		*target = v
	}
}

// intSetting accepts int, the float64 produced by encoding/json, and
// numeric strings from command line flags.
func intSetting(settings map[string]interface{}, key string, target *int) {
	switch v := settings[key].(type) {
	case int:
		*target = v
	case float64:
		*target = int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*target = n
		}
	}
}

func boolSetting(settings map[string]interface{}, key string, target *bool) {
	switch v := settings[key].(type) {
	case bool:
		*target = v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*target = b
		}
	}
}

package config

import (
	"context"
	"errors"

	"github.com/schemabounce/kolumn/dbwizard/helpers/logging"
)

// ErrNotFound is returned by loaders when no configuration file exists yet.
var ErrNotFound = errors.New("configuration not found")

// Loader reads the application configuration of the project being edited.
// A loader may report a missing configuration either as (nil, nil) or as
// ErrNotFound.
type Loader interface {
	Load(ctx context.Context) (*Document, error)
}

// LoaderFunc adapts a function into a Loader.
type LoaderFunc func(ctx context.Context) (*Document, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context) (*Document, error) {
	return f(ctx)
}

// LoadOrEmpty loads the configuration and degrades every failure to "no
// document". Missing configurations are logged at debug level, other
// failures at warn level.
func LoadOrEmpty(ctx context.Context, loader Loader) *Document {
	if loader == nil {
		return nil
	}
	doc, err := loader.Load(ctx)
	switch {
	case err == nil:
		return doc
	case errors.Is(err, ErrNotFound):
		logging.ConfigLogger.Debugf("no application configuration found")
	default:
		logging.ConfigLogger.WarnWithFields("failed to load application configuration, assuming no existing connection strings",
			"error", err.Error())
	}
	return nil
}

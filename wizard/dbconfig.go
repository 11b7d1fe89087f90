// Package wizard implements the non-visual core of the model wizard's
// database configuration page.
package wizard

import (
	"context"
	"errors"

	"github.com/schemabounce/kolumn/dbwizard/config"
	"github.com/schemabounce/kolumn/dbwizard/connstr"
	"github.com/schemabounce/kolumn/dbwizard/helpers/logging"
	"github.com/schemabounce/kolumn/dbwizard/names"
	"github.com/schemabounce/kolumn/dbwizard/providers"
	"github.com/schemabounce/kolumn/dbwizard/runtimehelpers/telemetry"
	"github.com/schemabounce/kolumn/dbwizard/types"
)

// State is the part of the host wizard's state the page reads. The host
// owns it and may update FileAlreadyExistsError between activations.
type State struct {
	Mode  types.GenerationMode
	Model *types.ModelLocation
	// FileAlreadyExistsError is set when the model file chosen on a
	// previous page already exists.
	FileAlreadyExistsError bool
}

// DbConfigPage computes the connection string and connection string name
// shown on the database configuration page.
type DbConfigPage struct {
	state  *State
	loader config.Loader
	logger telemetry.Logger
	build  []connstr.Option
}

// PageOption customizes a DbConfigPage.
type PageOption func(*DbConfigPage)

// WithLogger overrides the page logger.
func WithLogger(logger telemetry.Logger) PageOption {
	return func(p *DbConfigPage) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBuildOptions passes options through to connstr.BuildConnectionString.
func WithBuildOptions(opts ...connstr.Option) PageOption {
	return func(p *DbConfigPage) { p.build = append(p.build, opts...) }
}

// NewDbConfigPage creates a page over the host's state. loader may be nil
// when the project has no configuration file.
func NewDbConfigPage(state *State, loader config.Loader, opts ...PageOption) *DbConfigPage {
	if state == nil {
		state = &State{}
	}
	p := &DbConfigPage{
		state:  state,
		loader: loader,
		logger: telemetry.NewLogger("wizard"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the state the page was created with.
func (p *DbConfigPage) State() *State {
	return p.state
}

// OnActivate reports whether the page may be shown. It refuses while the
// target model file already exists.
func (p *DbConfigPage) OnActivate() bool {
	if p.state.FileAlreadyExistsError {
		fields := []interface{}{"reason", "model file already exists"}
		if p.state.Model != nil {
			fields = append(fields, "model", p.state.Model.ModelPath)
		}
		logging.WizardLogger.InfoWithFields("database configuration page not activated", fields...)
		return false
	}
	return true
}

// ConnectionStringValue returns the text of the connection string field.
// An unknown provider yields a *providers.ProviderNotFoundError and the
// host should keep the wizard from moving on.
func (p *DbConfigPage) ConnectionStringValue(
	ctx context.Context,
	reg providers.Registry,
	providerID types.ProviderIdentity,
	providerConnectionString string,
) (string, error) {
	var value string
	err := telemetry.TrackOperation(ctx, p.logger, "wizard.connection_string", func(context.Context) error {
		var err error
		value, err = connstr.BuildConnectionString(reg, providerID, providerConnectionString, p.state.Mode, p.state.Model, p.build...)
		return err
	})
	if err != nil {
		var notFound *providers.ProviderNotFoundError
		if errors.As(err, &notFound) {
			logging.ConnectionLogger.WarnWithFields("provider is not registered",
				"provider", providerID.String(), "mode", p.state.Mode.String())
		}
		return "", err
	}

	p.logger.Debug(ctx, "connection string built", telemetry.Fields{
		"mode":              p.state.Mode.String(),
		"provider":          providerID.String(),
		"connection_string": connstr.Redact(value),
	})
	return value, nil
}

// UniqueConnectionStringName proposes a connection string name based on
// candidate that is not yet used by the project's configuration. When the
// configuration cannot be loaded the candidate is returned unchanged.
func (p *DbConfigPage) UniqueConnectionStringName(ctx context.Context, candidate string) string {
	doc := config.LoadOrEmpty(ctx, p.loader)
	name := names.ResolveUniqueName(candidate, doc)
	if name != candidate {
		p.logger.Info(ctx, "connection string name already in use", telemetry.Fields{
			"candidate": candidate,
			"proposed":  name,
		})
	}
	return name
}

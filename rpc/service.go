package rpc

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/schemabounce/kolumn/dbwizard"
	"github.com/schemabounce/kolumn/dbwizard/config"
	"github.com/schemabounce/kolumn/dbwizard/config/sources"
	"github.com/schemabounce/kolumn/dbwizard/connstr"
	"github.com/schemabounce/kolumn/dbwizard/helpers/logging"
	"github.com/schemabounce/kolumn/dbwizard/providers"
	"github.com/schemabounce/kolumn/dbwizard/types"
	"github.com/schemabounce/kolumn/dbwizard/wizard"
)

// Service is the database configuration page as seen by an IDE host.
type Service interface {
	// BuildConnectionString returns the connection string for the requested
	// workflow.
	BuildConnectionString(ctx context.Context, req *BuildConnectionStringRequest) (string, error)

	// ResolveUniqueName returns a connection string name not yet used in the
	// project's configuration.
	ResolveUniqueName(ctx context.Context, req *ResolveUniqueNameRequest) (string, error)

	// GetInfo describes the plugin build.
	GetInfo(ctx context.Context) (*dbwizard.Info, error)
}

// LocalService implements Service in-process on top of the wizard page.
type LocalService struct {
	Registry providers.Registry
	Sources  *sources.SourceFactory
}

// NewLocalService creates a service over reg using the standard
// configuration sources.
func NewLocalService(reg providers.Registry) *LocalService {
	return &LocalService{
		Registry: reg,
		Sources:  sources.NewSourceFactory(),
	}
}

// BuildConnectionString implements Service.
func (s *LocalService) BuildConnectionString(ctx context.Context, req *BuildConnectionStringRequest) (string, error) {
	if req == nil {
		return "", invalidRequest("BuildConnectionString", "nil request")
	}
	id, err := uuid.Parse(req.ProviderID)
	if err != nil {
		return "", invalidRequest("BuildConnectionString", fmt.Sprintf("provider id %q: %v", req.ProviderID, err))
	}
	mode, err := types.ParseGenerationMode(req.Mode)
	if err != nil {
		return "", invalidRequest("BuildConnectionString", err.Error())
	}

	var opts []wizard.PageOption
	if req.DesignTimeDefaults {
		opts = append(opts, wizard.WithBuildOptions(connstr.WithDesignTimeDefaults()))
	}
	page := wizard.NewDbConfigPage(&wizard.State{Mode: mode, Model: req.Model}, nil, opts...)
	return page.ConnectionStringValue(ctx, s.Registry, id, req.ProviderConnectionString)
}

// ResolveUniqueName implements Service. Configuration that cannot be loaded
// is treated as empty; only an unknown source type is an error.
func (s *LocalService) ResolveUniqueName(ctx context.Context, req *ResolveUniqueNameRequest) (string, error) {
	if req == nil {
		return "", invalidRequest("ResolveUniqueName", "nil request")
	}
	loader, closer, err := s.loader(ctx, req)
	if err != nil {
		return "", err
	}
	if closer != nil {
		defer closer.Close()
	}

	page := wizard.NewDbConfigPage(&wizard.State{}, loader)
	return page.UniqueConnectionStringName(ctx, req.Candidate), nil
}

// GetInfo implements Service.
func (s *LocalService) GetInfo(context.Context) (*dbwizard.Info, error) {
	return dbwizard.GetInfo(), nil
}

func (s *LocalService) loader(ctx context.Context, req *ResolveUniqueNameRequest) (config.Loader, io.Closer, error) {
	if req.ConfigXML != "" {
		return config.LoaderFunc(func(context.Context) (*config.Document, error) {
			return config.ParseString(req.ConfigXML)
		}), nil, nil
	}
	if req.Source == "" {
		return nil, nil, nil
	}

	sourceType, err := sources.ParseSourceType(req.Source)
	if err != nil {
		return nil, nil, invalidRequest("ResolveUniqueName", err.Error())
	}
	factory := s.Sources
	if factory == nil {
		factory = sources.DefaultSourceFactory
	}
	source, err := factory.CreateAndConfigureSource(ctx, sourceType, req.Settings)
	if err != nil {
		logging.RPCLogger.DebugWithFields("configuration source unavailable",
			"source", sourceType.String(), "error", err.Error())
		// surfaces through config.LoadOrEmpty as a load failure
		return config.LoaderFunc(func(context.Context) (*config.Document, error) {
			return nil, err
		}), nil, nil
	}
	closer, _ := source.(io.Closer)
	return source, closer, nil
}

func invalidRequest(method, reason string) error {
	logging.RPCLogger.WarnWithFields("rejected request", "method", method, "reason", reason)
	return fmt.Errorf("%w: %s", ErrInvalidRequest, reason)
}

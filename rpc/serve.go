package rpc

import (
	"errors"
	"fmt"
	"net/rpc"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/schemabounce/kolumn/dbwizard"
	"github.com/schemabounce/kolumn/dbwizard/runtimehelpers/telemetry"
)

// PluginName is the key the wizard service is dispensed under.
const PluginName = "wizard"

// Handshake is the handshake configuration shared by host and plugin
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  uint(dbwizard.ProtocolVersion),
	MagicCookieKey:   "DBWIZARD_PLUGIN",
	MagicCookieValue: "dbwizard-connection-plugin",
}

// ServeConfig contains configuration for serving the wizard plugin
type ServeConfig struct {
	Service Service
	Logger  hclog.Logger
	Debug   bool

	// Test runs the plugin in-process for tests; see plugin.ServeTestConfig.
	Test *plugin.ServeTestConfig
}

// Serve serves the wizard service as a plugin. It blocks until the host
// goes away.
func Serve(config *ServeConfig) error {
	if config == nil {
		return errors.New("serve config cannot be nil")
	}
	if config.Service == nil {
		return errors.New("service cannot be nil in serve config")
	}

	logger := NewLogger(config.Logger, config.Debug)

	// component loggers of the wizard packages report through the host
	telemetry.SetLoggerFactory(telemetry.HCLogFactory(logger))
	defer telemetry.ResetLoggerFactory()

	info := dbwizard.GetInfo()
	logger.Info("starting wizard plugin",
		"version", info.Version,
		"api_version", info.APIVersion,
		"protocol_version", info.ProtocolVersion,
	)

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins:         PluginMap(config.Service, logger),
		Logger:          logger,
		Test:            config.Test,
	})
	return nil
}

// NewLogger returns logger, or a plugin logger at info or debug level when
// logger is nil.
func NewLogger(logger hclog.Logger, debug bool) hclog.Logger {
	if logger != nil {
		return logger
	}

	level := hclog.Info
	if debug {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:  "dbwizard",
		Level: level,
	})
}

// PluginMap returns the plugin set for a host (impl nil) or a plugin process.
func PluginMap(impl Service, logger hclog.Logger) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginName: &WizardPlugin{Impl: impl, Logger: logger},
	}
}

// WizardPlugin implements the plugin.Plugin interface
type WizardPlugin struct {
	Impl   Service
	Logger hclog.Logger
}

// Server returns the RPC server for this plugin
func (p *WizardPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	if p.Impl == nil {
		return nil, errors.New("wizard plugin has no service implementation")
	}
	return &Server{
		Impl:   p.Impl,
		Logger: p.Logger,
	}, nil
}

// Client returns the RPC client for this plugin
func (p *WizardPlugin) Client(_ *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &Client{
		Client: c,
		Logger: p.Logger,
	}, nil
}

// NewClientConfig returns the host-side configuration for launching cmd as
// a wizard plugin.
func NewClientConfig(cmd *exec.Cmd, logger hclog.Logger) *plugin.ClientConfig {
	return &plugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          PluginMap(nil, logger),
		Cmd:              cmd,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Logger:           logger,
	}
}

// Dispense connects to a launched plugin and returns its wizard service.
func Dispense(client *plugin.Client) (Service, error) {
	protocol, err := client.Client()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to wizard plugin: %w", err)
	}
	raw, err := protocol.Dispense(PluginName)
	if err != nil {
		return nil, fmt.Errorf("failed to dispense %s: %w", PluginName, err)
	}
	service, ok := raw.(Service)
	if !ok {
		return nil, fmt.Errorf("plugin %s has unexpected type %T", PluginName, raw)
	}
	return service, nil
}

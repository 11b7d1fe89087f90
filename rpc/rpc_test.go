package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemabounce/kolumn/dbwizard"
	"github.com/schemabounce/kolumn/dbwizard/helpers/logging"
	"github.com/schemabounce/kolumn/dbwizard/providers"
	"github.com/schemabounce/kolumn/dbwizard/types"
)

const configXML = `<configuration>
  <connectionStrings>
    <add name="myModel" connectionString="Data Source=(localdb)\v11.0;" providerName="System.Data.SqlClient" />
    <add name="myModel1" connectionString="metadata=res://*;" providerName="System.Data.EntityClient" />
    <add name="myModel2" connectionString="metadata=res://*;" providerName="System.Data.SqlCe" />
  </connectionStrings>
</configuration>`

func newTestClient(t *testing.T, impl Service) *Client {
	t.Helper()

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName(serviceName, &Server{Impl: impl, Logger: hclog.NewNullLogger()}))

	serverConn, clientConn := net.Pipe()
	go server.ServeConn(serverConn)

	client := rpc.NewClient(clientConn)
	t.Cleanup(func() { _ = client.Close() })
	return &Client{Client: client, Logger: hclog.NewNullLogger()}
}

func newLocalClient(t *testing.T) *Client {
	return newTestClient(t, NewLocalService(providers.NewBuiltinRegistry()))
}

func TestClient_BuildConnectionString_DatabaseFirst(t *testing.T) {
	client := newLocalClient(t)

	value, err := client.BuildConnectionString(context.Background(), &BuildConnectionStringRequest{
		ProviderID:               providers.IdentityFor(providers.SQLClient).String(),
		ProviderConnectionString: "Integrated Security=SSPI",
		Mode:                     "database-first",
		Model:                    &types.ModelLocation{ModelPath: `C:\Project\myModel.edmx`, ProjectRoot: `C:\Project`},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"metadata=res://*/myModel.csdl|res://*/myModel.ssdl|res://*/myModel.msl;provider=System.Data.SqlClient;"+
			`provider connection string="Integrated Security=SSPI"`,
		value)
}

func TestClient_BuildConnectionString_CodeFirst(t *testing.T) {
	client := newLocalClient(t)

	raw := "Server=.;Database=shop;Integrated Security=SSPI"
	value, err := client.BuildConnectionString(context.Background(), &BuildConnectionStringRequest{
		ProviderID:               providers.IdentityFor(providers.SQLClient).String(),
		ProviderConnectionString: raw,
		Mode:                     "code-first",
	})
	require.NoError(t, err)
	assert.Equal(t, raw, value)

	value, err = client.BuildConnectionString(context.Background(), &BuildConnectionStringRequest{
		ProviderID:               providers.IdentityFor(providers.SQLClient).String(),
		ProviderConnectionString: "Integrated Security=SSPI",
		Mode:                     "code-first",
		DesignTimeDefaults:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Integrated Security=SSPI;MultipleActiveResultSets=True;App=EntityFramework", value)
}

func TestClient_BuildConnectionString_Errors(t *testing.T) {
	client := newLocalClient(t)
	model := &types.ModelLocation{ModelPath: "/src/myModel.edmx"}

	tests := []struct {
		name string
		req  *BuildConnectionStringRequest
		code string
	}{
		{
			name: "unknown provider",
			req:  &BuildConnectionStringRequest{ProviderID: "42424242-4242-4242-4242-424242424242", Mode: "edmx", Model: model},
			code: CodeProviderNotFound,
		},
		{
			name: "missing model",
			req:  &BuildConnectionStringRequest{ProviderID: providers.IdentityFor(providers.SQLClient).String(), Mode: "edmx"},
			code: CodeModelRequired,
		},
		{
			name: "malformed provider id",
			req:  &BuildConnectionStringRequest{ProviderID: "not-a-guid", Mode: "edmx", Model: model},
			code: CodeInvalidRequest,
		},
		{
			name: "unknown mode",
			req:  &BuildConnectionStringRequest{ProviderID: providers.IdentityFor(providers.SQLClient).String(), Mode: "model-first"},
			code: CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := client.BuildConnectionString(context.Background(), tt.req)
			require.Error(t, err)
			assert.Empty(t, value)

			var rpcErr *RPCError
			require.True(t, errors.As(err, &rpcErr))
			assert.Equal(t, tt.code, rpcErr.Code)
			assert.Equal(t, tt.code == CodeProviderNotFound, IsProviderNotFound(err))
		})
	}
}

func TestClient_ResolveUniqueName(t *testing.T) {
	client := newLocalClient(t)
	ctx := context.Background()

	name, err := client.ResolveUniqueName(ctx, &ResolveUniqueNameRequest{Candidate: "myModel"})
	require.NoError(t, err)
	assert.Equal(t, "myModel", name)

	name, err = client.ResolveUniqueName(ctx, &ResolveUniqueNameRequest{Candidate: "myModel", ConfigXML: configXML})
	require.NoError(t, err)
	assert.Equal(t, "myModel3", name)

	name, err = client.ResolveUniqueName(ctx, &ResolveUniqueNameRequest{
		Candidate: "myModel",
		Source:    "memory",
		Settings:  map[string]interface{}{"content": configXML},
	})
	require.NoError(t, err)
	assert.Equal(t, "myModel3", name)

	name, err = client.ResolveUniqueName(ctx, &ResolveUniqueNameRequest{Candidate: "other", ConfigXML: configXML})
	require.NoError(t, err)
	assert.Equal(t, "other", name)
}

func TestClient_ResolveUniqueName_UnreadableConfigFallsBack(t *testing.T) {
	client := newLocalClient(t)

	name, err := client.ResolveUniqueName(context.Background(), &ResolveUniqueNameRequest{
		Candidate: "myModel",
		ConfigXML: "<configuration><connectionStrings>",
	})
	require.NoError(t, err)
	assert.Equal(t, "myModel", name)

	// postgres settings without a database never reach the network
	name, err = client.ResolveUniqueName(context.Background(), &ResolveUniqueNameRequest{
		Candidate: "myModel",
		Source:    "postgres",
		Settings:  map[string]interface{}{"host": "localhost"},
	})
	require.NoError(t, err)
	assert.Equal(t, "myModel", name)
}

func TestClient_ResolveUniqueName_UnknownSource(t *testing.T) {
	client := newLocalClient(t)

	_, err := client.ResolveUniqueName(context.Background(), &ResolveUniqueNameRequest{Candidate: "myModel", Source: "ftp"})
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, CodeInvalidRequest, rpcErr.Code)
}

func TestClient_GetInfo(t *testing.T) {
	client := newLocalClient(t)

	info, err := client.GetInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dbwizard.GetInfo(), info)
}

type blockingService struct {
	LocalService
	release chan struct{}
}

func (s *blockingService) ResolveUniqueName(context.Context, *ResolveUniqueNameRequest) (string, error) {
	<-s.release
	return "late", nil
}

func TestClient_ContextCancelled(t *testing.T) {
	impl := &blockingService{release: make(chan struct{})}
	defer close(impl.release)
	client := newTestClient(t, impl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ResolveUniqueName(ctx, &ResolveUniqueNameRequest{Candidate: "myModel"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRPCError(t *testing.T) {
	err := &RPCError{Message: "Failed to build connection string", Code: CodeProviderNotFound, Details: "provider x not found"}
	assert.Equal(t, "Failed to build connection string: provider x not found", err.Error())
	assert.Equal(t, "boom", (&RPCError{Message: "boom"}).Error())

	assert.True(t, IsProviderNotFound(&providers.ProviderNotFoundError{}))
	assert.False(t, IsProviderNotFound(errors.New("provider not found")))
}

func TestWizardPlugin(t *testing.T) {
	_, err := (&WizardPlugin{}).Server(nil)
	require.Error(t, err)

	impl := NewLocalService(providers.NewBuiltinRegistry())
	srv, err := (&WizardPlugin{Impl: impl}).Server(nil)
	require.NoError(t, err)
	assert.IsType(t, &Server{}, srv)

	cl, err := (&WizardPlugin{}).Client(nil, nil)
	require.NoError(t, err)
	assert.Implements(t, (*Service)(nil), cl)
}

func TestServe_RequiresService(t *testing.T) {
	require.Error(t, Serve(nil))
	require.Error(t, Serve(&ServeConfig{}))
}

func TestNewLogger(t *testing.T) {
	base := hclog.NewNullLogger()
	assert.Same(t, base, NewLogger(base, false))

	logger := NewLogger(nil, true)
	assert.True(t, logger.IsDebug())
	assert.Equal(t, "dbwizard", logger.Name())
}

func TestNewClientConfig(t *testing.T) {
	cfg := NewClientConfig(nil, hclog.NewNullLogger())
	assert.Equal(t, Handshake, cfg.HandshakeConfig)
	assert.Contains(t, cfg.Plugins, PluginName)
}

func TestLocalService_RejectedRequestsAreLogged(t *testing.T) {
	_, capture := logging.NewTestLogger(t, "rpc", false)
	service := NewLocalService(providers.NewBuiltinRegistry())

	_, err := service.BuildConnectionString(context.Background(), &BuildConnectionStringRequest{ProviderID: "not-a-guid", Mode: "edmx"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = service.ResolveUniqueName(context.Background(), &ResolveUniqueNameRequest{Candidate: "db", Source: "ftp"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	assert.Equal(t, 2, capture.CountLevel(logging.LevelWarn, "rpc"))
	capture.AssertContains(t, "method=BuildConnectionString")
	capture.AssertContains(t, "method=ResolveUniqueName")
}

package rpc

import (
	"errors"

	"github.com/schemabounce/kolumn/dbwizard"
	"github.com/schemabounce/kolumn/dbwizard/connstr"
	"github.com/schemabounce/kolumn/dbwizard/providers"
	"github.com/schemabounce/kolumn/dbwizard/types"
)

// Error codes carried by RPCError.
const (
	CodeProviderNotFound = "provider_not_found"
	CodeModelRequired    = "model_required"
	CodeInvalidRequest   = "invalid_request"
	CodeInternal         = "internal"
)

// ErrInvalidRequest marks requests that could not be decoded into a wizard call.
var ErrInvalidRequest = errors.New("invalid request")

// BuildConnectionStringRequest represents the request for BuildConnectionString RPC call
type BuildConnectionStringRequest struct {
	// ProviderID is the provider identity in canonical GUID form.
	ProviderID               string               `json:"provider_id"`
	ProviderConnectionString string               `json:"provider_connection_string"`
	Mode                     string               `json:"mode"`
	Model                    *types.ModelLocation `json:"model,omitempty"`
	DesignTimeDefaults       bool                 `json:"design_time_defaults,omitempty"`
}

// BuildConnectionStringResponse represents the response for BuildConnectionString RPC call
type BuildConnectionStringResponse struct {
	ConnectionString string    `json:"connection_string"`
	Error            *RPCError `json:"error,omitempty"`
}

// ResolveUniqueNameRequest represents the request for ResolveUniqueName RPC call.
// The existing names come from ConfigXML when set, otherwise from the named
// configuration source.
type ResolveUniqueNameRequest struct {
	Candidate string                 `json:"candidate"`
	ConfigXML string                 `json:"config_xml,omitempty"`
	Source    string                 `json:"source,omitempty"`
	Settings  map[string]interface{} `json:"settings,omitempty"`
}

// ResolveUniqueNameResponse represents the response for ResolveUniqueName RPC call
type ResolveUniqueNameResponse struct {
	Name  string    `json:"name"`
	Error *RPCError `json:"error,omitempty"`
}

// GetInfoRequest represents the request for GetInfo RPC call
type GetInfoRequest struct{}

// GetInfoResponse represents the response for GetInfo RPC call
type GetInfoResponse struct {
	Info  *dbwizard.Info `json:"info,omitempty"`
	Error *RPCError      `json:"error,omitempty"`
}

// RPCError represents an error in RPC communication
type RPCError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *RPCError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func newRPCError(message string, err error) *RPCError {
	return &RPCError{
		Message: message,
		Code:    errorCode(err),
		Details: err.Error(),
	}
}

func errorCode(err error) string {
	var notFound *providers.ProviderNotFoundError
	switch {
	case errors.As(err, &notFound):
		return CodeProviderNotFound
	case errors.Is(err, connstr.ErrModelRequired):
		return CodeModelRequired
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}

// IsProviderNotFound reports whether err means the provider identity is not
// registered, whether it was raised locally or came back over the wire.
// Hosts use it to keep the wizard from moving on.
func IsProviderNotFound(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code == CodeProviderNotFound
	}
	var notFound *providers.ProviderNotFoundError
	return errors.As(err, &notFound)
}

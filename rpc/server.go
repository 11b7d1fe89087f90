// Package rpc serves the database configuration page to an IDE host as a
// go-plugin net/rpc plugin.
package rpc

import (
	"context"

	"github.com/hashicorp/go-hclog"
)

// Server implements the RPC server side for Service
type Server struct {
	Impl   Service
	Logger hclog.Logger
}

func (s *Server) logger() hclog.Logger {
	if s.Logger == nil {
		return hclog.NewNullLogger()
	}
	return s.Logger
}

// BuildConnectionString handles the BuildConnectionString RPC call
func (s *Server) BuildConnectionString(req *BuildConnectionStringRequest, resp *BuildConnectionStringResponse) error {
	s.logger().Debug("BuildConnectionString called", "mode", req.Mode, "provider", req.ProviderID)

	value, err := s.Impl.BuildConnectionString(context.Background(), req)
	if err != nil {
		s.logger().Error("BuildConnectionString failed", "provider", req.ProviderID, "error", err)
		resp.Error = newRPCError("Failed to build connection string", err)
		return nil
	}

	resp.ConnectionString = value
	s.logger().Debug("BuildConnectionString completed", "mode", req.Mode)
	return nil
}

// ResolveUniqueName handles the ResolveUniqueName RPC call
func (s *Server) ResolveUniqueName(req *ResolveUniqueNameRequest, resp *ResolveUniqueNameResponse) error {
	s.logger().Debug("ResolveUniqueName called", "candidate", req.Candidate, "source", req.Source)

	name, err := s.Impl.ResolveUniqueName(context.Background(), req)
	if err != nil {
		s.logger().Error("ResolveUniqueName failed", "candidate", req.Candidate, "error", err)
		resp.Error = newRPCError("Failed to resolve connection string name", err)
		return nil
	}

	resp.Name = name
	s.logger().Debug("ResolveUniqueName completed", "candidate", req.Candidate, "name", name)
	return nil
}

// GetInfo handles the GetInfo RPC call
func (s *Server) GetInfo(_ *GetInfoRequest, resp *GetInfoResponse) error {
	info, err := s.Impl.GetInfo(context.Background())
	if err != nil {
		resp.Error = newRPCError("Failed to get plugin info", err)
		return nil
	}
	resp.Info = info
	return nil
}

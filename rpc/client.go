package rpc

import (
	"context"
	"net/rpc"

	"github.com/hashicorp/go-hclog"

	"github.com/schemabounce/kolumn/dbwizard"
)

// serviceName is the name go-plugin registers dispensed net/rpc servers under.
const serviceName = "Plugin"

// Client implements the Service interface as an RPC client
type Client struct {
	Client *rpc.Client
	Logger hclog.Logger
}

var _ Service = (*Client)(nil)

// call issues an RPC and gives up waiting when ctx is done. The request
// itself is not cancelled on the plugin side.
func (c *Client) call(ctx context.Context, method string, args, reply interface{}) error {
	pending := c.Client.Go(serviceName+"."+method, args, reply, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case done := <-pending.Done:
		return done.Error
	}
}

// BuildConnectionString calls the plugin's BuildConnectionString method via RPC
func (c *Client) BuildConnectionString(ctx context.Context, req *BuildConnectionStringRequest) (string, error) {
	var resp BuildConnectionStringResponse
	if err := c.call(ctx, "BuildConnectionString", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error
	}
	return resp.ConnectionString, nil
}

// ResolveUniqueName calls the plugin's ResolveUniqueName method via RPC
func (c *Client) ResolveUniqueName(ctx context.Context, req *ResolveUniqueNameRequest) (string, error) {
	var resp ResolveUniqueNameResponse
	if err := c.call(ctx, "ResolveUniqueName", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error
	}
	return resp.Name, nil
}

// GetInfo calls the plugin's GetInfo method via RPC
func (c *Client) GetInfo(ctx context.Context) (*dbwizard.Info, error) {
	var resp GetInfoResponse
	if err := c.call(ctx, "GetInfo", &GetInfoRequest{}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Info, nil
}

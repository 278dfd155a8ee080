// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package api

import (
	"context"

	"github.com/containerd/ttrpc"
)

// TaskService is the shim's lifecycle RPC surface. One shim process
// implements one instance of this service over one per-task socket.
type TaskService interface {
	Create(context.Context, *CreateTaskRequest) (*CreateTaskResponse, error)
	Start(context.Context, *StartRequest) (*StartResponse, error)
	Kill(context.Context, *KillRequest) (*KillResponse, error)
	Wait(context.Context, *WaitRequest) (*WaitResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
	Shutdown(context.Context, *ShutdownRequest) (*ShutdownResponse, error)
	Stats(context.Context, *StatsRequest) (*StatsResponse, error)
}

const taskServiceName = "runc_shim.v1.Task"

// RegisterTaskService registers svc as the task service on srv.
func RegisterTaskService(srv *ttrpc.Server, svc TaskService) {
	srv.RegisterService(taskServiceName, &ttrpc.ServiceDesc{
		Methods: map[string]ttrpc.Method{
			"Create": func(ctx context.Context, unmarshal func(interface{}) error) (interface{}, error) {
				var req CreateTaskRequest
				if err := unmarshal(&req); err != nil {
					return nil, err
				}
				return svc.Create(ctx, &req)
			},
			"Start": func(ctx context.Context, unmarshal func(interface{}) error) (interface{}, error) {
				var req StartRequest
				if err := unmarshal(&req); err != nil {
					return nil, err
				}
				return svc.Start(ctx, &req)
			},
			"Kill": func(ctx context.Context, unmarshal func(interface{}) error) (interface{}, error) {
				var req KillRequest
				if err := unmarshal(&req); err != nil {
					return nil, err
				}
				return svc.Kill(ctx, &req)
			},
			"Wait": func(ctx context.Context, unmarshal func(interface{}) error) (interface{}, error) {
				var req WaitRequest
				if err := unmarshal(&req); err != nil {
					return nil, err
				}
				return svc.Wait(ctx, &req)
			},
			"Delete": func(ctx context.Context, unmarshal func(interface{}) error) (interface{}, error) {
				var req DeleteRequest
				if err := unmarshal(&req); err != nil {
					return nil, err
				}
				return svc.Delete(ctx, &req)
			},
			"Shutdown": func(ctx context.Context, unmarshal func(interface{}) error) (interface{}, error) {
				var req ShutdownRequest
				if err := unmarshal(&req); err != nil {
					return nil, err
				}
				return svc.Shutdown(ctx, &req)
			},
			"Stats": func(ctx context.Context, unmarshal func(interface{}) error) (interface{}, error) {
				var req StatsRequest
				if err := unmarshal(&req); err != nil {
					return nil, err
				}
				return svc.Stats(ctx, &req)
			},
		},
	})
}

type taskClient struct {
	client *ttrpc.Client
}

// NewTaskClient returns a TaskService client bound to an established ttrpc
// connection (e.g. dialed against the socket address a launcher printed).
func NewTaskClient(client *ttrpc.Client) TaskService {
	return &taskClient{client: client}
}

func (c *taskClient) Create(ctx context.Context, req *CreateTaskRequest) (*CreateTaskResponse, error) {
	var resp CreateTaskResponse
	if err := c.client.Call(ctx, taskServiceName, "Create", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *taskClient) Start(ctx context.Context, req *StartRequest) (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call(ctx, taskServiceName, "Start", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *taskClient) Kill(ctx context.Context, req *KillRequest) (*KillResponse, error) {
	var resp KillResponse
	if err := c.client.Call(ctx, taskServiceName, "Kill", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *taskClient) Wait(ctx context.Context, req *WaitRequest) (*WaitResponse, error) {
	var resp WaitResponse
	if err := c.client.Call(ctx, taskServiceName, "Wait", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *taskClient) Delete(ctx context.Context, req *DeleteRequest) (*DeleteResponse, error) {
	var resp DeleteResponse
	if err := c.client.Call(ctx, taskServiceName, "Delete", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *taskClient) Shutdown(ctx context.Context, req *ShutdownRequest) (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call(ctx, taskServiceName, "Shutdown", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *taskClient) Stats(ctx context.Context, req *StatsRequest) (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.client.Call(ctx, taskServiceName, "Stats", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

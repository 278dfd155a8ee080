// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import (
	"context"

	"golang.org/x/sys/unix"

	"github.com/kata-containers/runc-shim/pkg/api"
)

// Service implements api.TaskService, the shim's single RPC surface. It
// owns the container registry and drives every container through Runtime.
type Service struct {
	registry *Registry
	runtime  Runtime
	reaper   *Reaper
	latch    *ExitLatch
}

// NewService wires a Service against rt, r and latch. The caller is
// responsible for starting the exit-event consumer via Run.
func NewService(rt Runtime, r *Reaper, latch *ExitLatch) *Service {
	return &Service{
		registry: NewRegistry(),
		runtime:  rt,
		reaper:   r,
		latch:    latch,
	}
}

// Run consumes reaped exits from the Reaper and binds them to registered
// containers by pid. It blocks until ctx is done or the subscription
// channel is closed, and should run in its own goroutine.
func (s *Service) Run(ctx context.Context) {
	exits := s.reaper.Subscribe()
	defer s.reaper.Unsubscribe(exits)

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-exits:
			if !ok {
				return
			}
			c, found := s.registry.FindByPid(e.Pid)
			if !found {
				continue
			}
			if err := c.SetExited(int32(e.Status)); err != nil {
				shimLog.WithError(err).WithField("container", c.ID).Debug("exit already recorded")
			}
		}
	}
}

func (s *Service) Create(ctx context.Context, req *api.CreateTaskRequest) (*api.CreateTaskResponse, error) {
	c := NewContainer(req.ID, req.Bundle, req.Stdout, req.Stderr)
	if !s.registry.Insert(c) {
		return nil, toGRPCf(ErrAlreadyExists, "container %s already exists", req.ID)
	}

	if err := c.Create(ctx, s.runtime); err != nil {
		s.registry.Remove(req.ID)
		return nil, toGRPCf(err, "create %s", req.ID)
	}
	return &api.CreateTaskResponse{Pid: uint32(c.Pid())}, nil
}

func (s *Service) Start(ctx context.Context, req *api.StartRequest) (*api.StartResponse, error) {
	c, err := s.lookup(req.ID)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx, s.runtime); err != nil {
		return nil, toGRPCf(err, "start %s", req.ID)
	}
	return &api.StartResponse{Pid: uint32(c.Pid())}, nil
}

func (s *Service) Kill(ctx context.Context, req *api.KillRequest) (*api.KillResponse, error) {
	c, err := s.lookup(req.ID)
	if err != nil {
		return nil, err
	}
	if req.Signal == 0 || req.Signal > 64 {
		return nil, toGRPCf(ErrInvalidArgument, "signal %d out of range for %s", req.Signal, req.ID)
	}
	if err := c.Kill(unix.Signal(req.Signal)); err != nil {
		return nil, toGRPCf(err, "kill %s", req.ID)
	}
	return &api.KillResponse{}, nil
}

func (s *Service) Wait(ctx context.Context, req *api.WaitRequest) (*api.WaitResponse, error) {
	c, err := s.lookup(req.ID)
	if err != nil {
		return nil, err
	}

	ch := c.WaitSubscribe()
	select {
	case <-ch:
	case <-ctx.Done():
		return nil, toGRPCf(ctx.Err(), "wait %s", req.ID)
	}

	exitedAt := c.ExitedAt()
	return &api.WaitResponse{
		ExitStatus: uint32(c.ExitCode()),
		ExitedAt:   api.Timestamp{Seconds: exitedAt.Unix(), Nanos: int32(exitedAt.Nanosecond())},
	}, nil
}

func (s *Service) Delete(ctx context.Context, req *api.DeleteRequest) (*api.DeleteResponse, error) {
	c, err := s.lookup(req.ID)
	if err != nil {
		return nil, err
	}
	if err := c.Delete(ctx, s.runtime); err != nil {
		return nil, toGRPCf(err, "delete %s", req.ID)
	}
	s.registry.Remove(req.ID)
	return &api.DeleteResponse{Pid: uint32(c.Pid())}, nil
}

func (s *Service) Shutdown(ctx context.Context, req *api.ShutdownRequest) (*api.ShutdownResponse, error) {
	for _, c := range s.registry.All() {
		if err := c.Delete(ctx, s.runtime); err != nil {
			shimLog.WithError(err).WithField("container", c.ID).Warn("shutdown: best-effort delete failed")
		}
		s.registry.Remove(c.ID)
	}
	s.latch.Signal()
	return &api.ShutdownResponse{}, nil
}

func (s *Service) Stats(ctx context.Context, req *api.StatsRequest) (*api.StatsResponse, error) {
	c, err := s.lookup(req.ID)
	if err != nil {
		return nil, err
	}
	snap := sampleStats(c.Pid())
	return &api.StatsResponse{
		MemoryUsageBytes: snap.MemoryUsageBytes,
		CPUUsageNanos:    snap.CPUUsageNanos,
		Ok:               snap.Ok,
	}, nil
}

func (s *Service) lookup(id string) (*Container, error) {
	c, ok := s.registry.Get(id)
	if !ok {
		return nil, toGRPCf(ErrNotFound, "container %s not found", id)
	}
	return c, nil
}

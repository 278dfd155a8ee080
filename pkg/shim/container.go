// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Status is a container's position in its state machine. Transitions are
// monotonic: UNKNOWN -> CREATED -> RUNNING -> STOPPED, with STOPPED
// terminal.
type Status int

const (
	StatusUnknown Status = iota
	StatusCreated
	StatusRunning
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "CREATED"
	case StatusRunning:
		return "RUNNING"
	case StatusStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

const pidFileName = "container.pid"

// Container owns a single container's identity, bundle path, stdio log
// paths, runtime-reported pid, status, exit code/timestamp, and the set of
// pending wait-subscribers.
//
// All mutable fields are guarded by one mutex with the locked region kept
// small. WaitSubscribe and SetExited are the one pair that must share a
// single critical section, so a subscriber can never miss the exit it
// raced to observe.
type Container struct {
	ID     string
	Bundle string

	StdoutPath string
	StderrPath string

	mu          sync.Mutex
	status      Status
	pid         int32
	exitCode    int32
	exitedAt    time.Time
	subscribers []chan struct{}
}

// NewContainer constructs an unregistered, UNKNOWN-status container.
func NewContainer(id, bundle, stdoutPath, stderrPath string) *Container {
	return &Container{
		ID:         id,
		Bundle:     bundle,
		StdoutPath: stdoutPath,
		StderrPath: stderrPath,
		status:     StatusUnknown,
	}
}

// Create invokes the runtime's create verb and, on success, reads the
// pid file the runtime wrote and transitions to CREATED.
func (c *Container) Create(ctx context.Context, rt Runtime) error {
	c.mu.Lock()
	if c.status != StatusUnknown {
		c.mu.Unlock()
		return errors.Wrapf(ErrInvalidArgument, "container %s: create called in state %s", c.ID, c.status)
	}
	c.mu.Unlock()

	stdout, err := openStdio(c.StdoutPath)
	if err != nil {
		return errors.Wrapf(err, "container %s: open stdout", c.ID)
	}
	defer stdout.Close()

	stderr, err := openStdio(c.StderrPath)
	if err != nil {
		return errors.Wrapf(err, "container %s: open stderr", c.ID)
	}
	defer stderr.Close()

	pidFile := c.Bundle + string(os.PathSeparator) + pidFileName
	if err := rt.Create(ctx, c.ID, c.Bundle, pidFile, stdout, stderr); err != nil {
		return errors.Wrapf(err, "container %s: runtime create failed", c.ID)
	}

	pid, err := readPidFile(pidFile)
	if err != nil {
		return errors.Wrapf(err, "container %s: reading pid file is fatal for create", c.ID)
	}

	c.mu.Lock()
	c.pid = int32(pid)
	c.status = StatusCreated
	c.mu.Unlock()
	return nil
}

// Start invokes the runtime's start verb and transitions CREATED -> RUNNING.
func (c *Container) Start(ctx context.Context, rt Runtime) error {
	c.mu.Lock()
	if c.status != StatusCreated {
		status := c.status
		c.mu.Unlock()
		return errors.Wrapf(ErrInvalidArgument, "container %s: start called in state %s", c.ID, status)
	}
	c.mu.Unlock()

	if err := rt.Start(ctx, c.ID); err != nil {
		return errors.Wrapf(err, "container %s: runtime start failed", c.ID)
	}

	c.mu.Lock()
	c.status = StatusRunning
	c.mu.Unlock()
	return nil
}

// Delete invokes the runtime's delete verb. It does not itself change
// status; the caller removes the container from the registry afterward.
func (c *Container) Delete(ctx context.Context, rt Runtime) error {
	if err := rt.Delete(ctx, c.ID); err != nil {
		return errors.Wrapf(err, "container %s: runtime delete failed", c.ID)
	}
	return nil
}

// Kill forwards sig to the container's pid. ESRCH is tolerated, not an
// error: the process is already gone, which is the outcome the caller
// wanted anyway.
func (c *Container) Kill(sig unix.Signal) error {
	pid := c.Pid()
	if pid == 0 {
		return nil
	}
	if err := unix.Kill(int(pid), sig); err != nil && err != unix.ESRCH {
		return errors.Wrapf(err, "container %s: kill pid %d", c.ID, pid)
	}
	return nil
}

// WaitSubscribe returns a single-use channel that closes when the container
// transitions to STOPPED. If the container is already STOPPED, the returned
// channel is pre-closed. The status check and the enqueue happen in the
// same critical section as SetExited's transition, so no wakeup can be
// lost to a race between the two.
func (c *Container) WaitSubscribe() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan struct{})
	if c.status == StatusStopped {
		close(ch)
		return ch
	}
	c.subscribers = append(c.subscribers, ch)
	return ch
}

// SetExited transitions the container to STOPPED, records the exit code and
// timestamp, and notifies every pending subscriber exactly once.
func (c *Container) SetExited(exitCode int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusStopped {
		return errors.Wrapf(ErrInvalidArgument, "container %s: already stopped", c.ID)
	}

	c.status = StatusStopped
	c.exitCode = exitCode
	c.exitedAt = time.Now().UTC()

	for _, ch := range c.subscribers {
		close(ch)
	}
	c.subscribers = nil
	return nil
}

// Pid returns a snapshot of the container's runtime-reported pid.
func (c *Container) Pid() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid
}

// Status returns a snapshot of the container's current status.
func (c *Container) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ExitCode returns a snapshot of the container's exit code. Only meaningful
// once Status() reports STOPPED.
func (c *Container) ExitCode() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// ExitedAt returns a snapshot of the container's exit timestamp. Only
// meaningful once Status() reports STOPPED.
func (c *Container) ExitedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitedAt
}

func openStdio(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
}

func readPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "malformed pid file")
	}
	return pid, nil
}

// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import (
	"context"
	"io"
	"os"
	"os/exec"

	runc "github.com/containerd/go-runc"
	"github.com/pkg/errors"
)

// Runtime is the subset of OCI runtime operations a container needs. It is
// satisfied by runcRuntime (backed by go-runc) in production and stubbed out
// in tests.
type Runtime interface {
	Create(ctx context.Context, id, bundle, pidFile string, stdout, stderr *os.File) error
	Start(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Kill(ctx context.Context, id string, sig int) error
}

// runcRuntime invokes the runc binary via go-runc, the client library the
// whole containerd shim family uses in place of hand-rolled exec.Cmd
// plumbing.
type runcRuntime struct {
	runc *runc.Runc
}

// NewRuntime returns a Runtime that drives the runc binary at path.
func NewRuntime(path string) Runtime {
	return &runcRuntime{runc: &runc.Runc{Command: path}}
}

// fileIO satisfies go-runc's IO interface by attaching the runtime's
// stdout/stderr directly to already-opened files, rather than piping them
// through the shim: the shim never reads container output itself.
type fileIO struct {
	stdout, stderr *os.File
}

func (f *fileIO) Stdin() io.WriteCloser { return nil }
func (f *fileIO) Stdout() io.ReadCloser { return nil }
func (f *fileIO) Stderr() io.ReadCloser { return nil }

func (f *fileIO) Set(cmd *exec.Cmd) {
	cmd.Stdin = nil
	cmd.Stdout = f.stdout
	cmd.Stderr = f.stderr
}

func (f *fileIO) Close() error {
	var err error
	if f.stdout != nil {
		err = f.stdout.Close()
	}
	if f.stderr != nil {
		if cerr := f.stderr.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (f *fileIO) CloseAfterStart() error { return nil }

func (r *runcRuntime) Create(ctx context.Context, id, bundle, pidFile string, stdout, stderr *os.File) error {
	opts := &runc.CreateOpts{
		PidFile: pidFile,
	}
	opts.IO = devNullStdin(stdout, stderr)
	if err := r.runc.Create(ctx, id, bundle, opts); err != nil {
		return errors.Wrapf(err, "runc create failed for %s", id)
	}
	return nil
}

func (r *runcRuntime) Start(ctx context.Context, id string) error {
	if err := r.runc.Start(ctx, id); err != nil {
		return errors.Wrapf(err, "runc start failed for %s", id)
	}
	return nil
}

func (r *runcRuntime) Delete(ctx context.Context, id string) error {
	if err := r.runc.Delete(ctx, id, &runc.DeleteOpts{}); err != nil {
		return errors.Wrapf(err, "runc delete failed for %s", id)
	}
	return nil
}

func (r *runcRuntime) Kill(ctx context.Context, id string, sig int) error {
	if err := r.runc.Kill(ctx, id, sig, &runc.KillOpts{}); err != nil {
		return errors.Wrapf(err, "runc kill failed for %s", id)
	}
	return nil
}

// devNullStdin builds the IO go-runc's CreateOpts embeds, redirecting the
// runtime's own stdin to /dev/null while stdout/stderr go to the
// caller-provided files.
func devNullStdin(stdout, stderr *os.File) runc.IO {
	return &fileIO{stdout: stdout, stderr: stderr}
}

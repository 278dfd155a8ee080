// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import (
	"context"
	"net"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/containerd/ttrpc"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/kata-containers/runc-shim/pkg/api"
)

// daemonEnvVar marks the re-exec'd child as phase B: the self-exec'd
// process distinguishes its role through this environment marker rather
// than a second binary.
const daemonEnvVar = "RUNC_SHIM_DAEMON"

// listenerFd is the fixed fd number phase B expects its inherited listener
// on, matching cmd.ExtraFiles' append-one-file convention (fd 3 is the
// first fd past stdin/stdout/stderr).
const listenerFd = 3

// Bootstrap is the C5 two-phase launcher. Launch is phase A: it binds the
// control socket, re-execs the binary with the listener inherited on fd 3,
// and returns the socket address as soon as the daemon process has been
// started, without waiting for it; the caller prints that address to
// stdout. Serve is phase B: it runs
// inside the detached process and blocks until the service is told to
// shut down.
type Bootstrap struct {
	ID      string
	Runtime string
	Root    string
}

// Launch performs phase A. It must run in the original foreground process.
func (b *Bootstrap) Launch(ctx context.Context) (string, error) {
	if err := EnsureSocketRoot(b.Root); err != nil {
		return "", errors.Wrap(err, "ensure socket root")
	}
	path := SocketPath(b.Root, b.ID)

	l, err := bindWithRetry(path)
	if err != nil {
		return "", errors.Wrap(err, "bind control socket")
	}

	f, err := l.(*net.UnixListener).File()
	if err != nil {
		l.Close()
		return "", errors.Wrap(err, "obtain listener fd")
	}
	// f is handed to the child via cmd.ExtraFiles below, which clears
	// close-on-exec on the duplicated fd it passes down regardless of
	// this fd's own flag, so no explicit clear is needed here.
	if err := unix.SetNonblock(int(f.Fd()), false); err != nil {
		shimLog.WithError(err).Warn("clear listener nonblocking flag")
	}

	self, err := os.Executable()
	if err != nil {
		l.Close()
		return "", errors.Wrap(err, "resolve own executable")
	}

	cmd := exec.Command(self, "--id", b.ID, "--runtime", b.Runtime, "--socket-root", b.Root, "daemon")
	cmd.ExtraFiles = []*os.File{f}
	cmd.Env = append(os.Environ(), daemonEnvVar+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin = nil
	if cmd.Stdout, err = os.OpenFile(os.DevNull, os.O_WRONLY, 0); err != nil {
		l.Close()
		return "", errors.Wrap(err, "open /dev/null")
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		l.Close()
		return "", errors.Wrap(err, "start daemon")
	}
	// The parent's reference to the listener and its duplicated fd are no
	// longer needed once the child has inherited fd 3.
	l.Close()
	f.Close()

	address := "unix://" + path
	return address, nil
}

func bindWithRetry(path string) (net.Listener, error) {
	l, err := net.Listen("unix", path)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, unix.EADDRINUSE) {
		return nil, err
	}
	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		return nil, errors.Wrap(rmErr, "remove stale socket")
	}
	return net.Listen("unix", path)
}

// Serve performs phase B. It is the daemon's main loop: detach from the
// launching session, become a subreaper, serve the task service over the
// fd-3 listener, and block until shutdown.
func (b *Bootstrap) Serve(ctx context.Context) error {
	if _, err := unix.Setsid(); err != nil {
		shimLog.WithError(err).Debug("setsid (already session leader)")
	}
	if err := unix.Prctl(unix.PR_SET_CHILD_SUBREAPER, 1, 0, 0, 0); err != nil {
		return errors.Wrap(err, "become child subreaper")
	}

	f := os.NewFile(uintptr(listenerFd), "shim-socket")
	l, err := net.FileListener(f)
	if err != nil {
		return errors.Wrap(err, "reconstruct listener from inherited fd")
	}
	defer f.Close()

	rt := NewRuntime(b.Runtime)
	reaper := NewReaper()
	latch := NewExitLatch()
	svc := NewService(rt, reaper, latch)

	dispatcher := NewDispatcher(reaper, func(sig unix.Signal) {
		for _, c := range svc.registry.All() {
			forwardSignal(int(c.Pid()), sig)
		}
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go dispatcher.Run(runCtx)
	go svc.Run(runCtx)

	server, err := ttrpc.NewServer()
	if err != nil {
		return errors.Wrap(err, "new ttrpc server")
	}
	api.RegisterTaskService(server, svc)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(runCtx, l)
	}()

	select {
	case <-latch.Done():
	case err := <-serveErr:
		if err != nil {
			shimLog.WithError(err).Warn("ttrpc server exited")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		shimLog.WithError(err).Warn("ttrpc server shutdown")
	}
	_ = os.Remove(SocketPath(b.Root, b.ID))
	return nil
}

// IsDaemon reports whether the current process was re-exec'd as phase B.
func IsDaemon() bool {
	return os.Getenv(daemonEnvVar) != ""
}

// shutdownTimeout bounds how long Serve waits for the ttrpc server to
// drain in-flight calls once the exit latch fires.
const shutdownTimeout = 5 * time.Second

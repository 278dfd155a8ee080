// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

var shimLog = logrus.WithField("source", "runc-shim")

// Dispatcher subscribes to SIGCHLD, SIGINT, SIGTERM and SIGQUIT for the
// lifetime of the daemon. SIGCHLD triggers a drain of Reaper; the terminal
// signals are forwarded to every currently known container pid.
//
// In production the dispatcher runs until the process exits; ctx is
// consulted only so the dispatcher goroutine can be torn down cleanly
// in tests.
type Dispatcher struct {
	Reaper  *Reaper
	Forward func(sig unix.Signal)
}

// NewDispatcher constructs a Dispatcher bound to r, forwarding terminal
// signals via forward.
func NewDispatcher(r *Reaper, forward func(sig unix.Signal)) *Dispatcher {
	return &Dispatcher{Reaper: r, Forward: forward}
}

// Run installs the signal handlers and processes signals until ctx is
// cancelled. Intended to be started once, in its own goroutine, by the
// daemon bootstrap.
func (d *Dispatcher) Run(ctx context.Context) {
	ch := make(chan os.Signal, 32)
	signal.Notify(ch, unix.SIGCHLD, unix.SIGINT, unix.SIGTERM, unix.SIGQUIT)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			d.handle(sig)
		}
	}
}

func (d *Dispatcher) handle(sig os.Signal) {
	s, ok := sig.(unix.Signal)
	if !ok {
		return
	}
	switch s {
	case unix.SIGCHLD:
		if err := d.Reaper.Reap(); err != nil {
			shimLog.WithError(err).Error("reap exit status")
		}
	case unix.SIGINT, unix.SIGTERM, unix.SIGQUIT:
		if d.Forward != nil {
			d.Forward(s)
		}
	}
}

// forwardSignal sends sig to pid, swallowing ESRCH ("no such process"):
// the kernel has already lost the pid, which is the outcome the caller
// wanted anyway.
func forwardSignal(pid int, sig unix.Signal) {
	if pid == 0 {
		return
	}
	if err := unix.Kill(pid, sig); err != nil {
		if err == unix.ESRCH {
			shimLog.WithField("pid", pid).Warn("process not found, ignoring signal")
			return
		}
		shimLog.WithError(err).WithField("pid", pid).Error("failed to forward signal")
	}
}

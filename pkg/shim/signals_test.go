// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestDispatcherHandleForwardsTerminalSignals(t *testing.T) {
	var forwarded []unix.Signal
	d := NewDispatcher(NewReaper(), func(sig unix.Signal) {
		forwarded = append(forwarded, sig)
	})

	d.handle(unix.SIGTERM)
	d.handle(unix.SIGINT)
	d.handle(unix.SIGQUIT)

	assert.Equal(t, []unix.Signal{unix.SIGTERM, unix.SIGINT, unix.SIGQUIT}, forwarded)
}

func TestDispatcherHandleSigchldDoesNotForward(t *testing.T) {
	var forwarded []unix.Signal
	d := NewDispatcher(NewReaper(), func(sig unix.Signal) {
		forwarded = append(forwarded, sig)
	})

	d.handle(unix.SIGCHLD)

	assert.Empty(t, forwarded)
}

func TestForwardSignalIgnoresZeroPid(t *testing.T) {
	assert.NotPanics(t, func() {
		forwardSignal(0, unix.SIGTERM)
	})
}

func TestForwardSignalSwallowsESRCH(t *testing.T) {
	// pid 1<<30 is virtually guaranteed not to exist; the call must not
	// panic or otherwise surface ESRCH to the caller.
	assert.NotPanics(t, func() {
		forwardSignal(1<<30, unix.SIGTERM)
	})
}

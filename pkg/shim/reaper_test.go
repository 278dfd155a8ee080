// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestExitStatusNormalExit(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Start())
	err := cmd.Wait()
	assert.NoError(t, err)

	ws := cmd.ProcessState.Sys().(unix.WaitStatus)
	assert.Equal(t, 0, exitStatus(ws))
}

func TestExitStatusSignaled(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	require.NoError(t, cmd.Process.Signal(unix.SIGKILL))
	err := cmd.Wait()
	require.Error(t, err)

	ws := cmd.ProcessState.Sys().(unix.WaitStatus)
	assert.Equal(t, 128+int(unix.SIGKILL), exitStatus(ws))
}

func TestReaperSubscribeUnsubscribeClosesChannel(t *testing.T) {
	r := NewReaper()
	c := r.Subscribe()
	r.Unsubscribe(c)

	select {
	case _, ok := <-c:
		assert.False(t, ok, "channel should be closed after Unsubscribe")
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}
}

func TestReaperReapDrainsTerminatedChildren(t *testing.T) {
	r := NewReaper()
	sub := r.Subscribe()
	defer r.Unsubscribe(sub)

	cmd := exec.Command("true")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid

	// the test process is not the child subreaper, but it is the direct
	// parent of cmd, so wait4(-1, WNOHANG) still reaps it once it exits.
	for i := 0; i < 100; i++ {
		if err := unix.Kill(pid, 0); err != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.NoError(t, r.Reap())

	select {
	case e := <-sub:
		assert.Equal(t, pid, e.Pid)
		assert.Equal(t, 0, e.Status)
	case <-time.After(time.Second):
		t.Fatal("did not observe exit event for reaped child")
	}
}

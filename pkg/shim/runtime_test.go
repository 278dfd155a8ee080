// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileIOSetRoutesDirectlyToFiles(t *testing.T) {
	dir := t.TempDir()
	stdout, err := os.OpenFile(filepath.Join(dir, "out"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	stderr, err := os.OpenFile(filepath.Join(dir, "err"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	require.NoError(t, err)

	io := &fileIO{stdout: stdout, stderr: stderr}
	defer io.Close()

	cmd := exec.Command("true")
	io.Set(cmd)

	assert.Nil(t, cmd.Stdin)
	assert.Equal(t, stdout, cmd.Stdout)
	assert.Equal(t, stderr, cmd.Stderr)
}

func TestFileIOCloseClosesBothFiles(t *testing.T) {
	dir := t.TempDir()
	stdout, err := os.OpenFile(filepath.Join(dir, "out"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	stderr, err := os.OpenFile(filepath.Join(dir, "err"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	require.NoError(t, err)

	io := &fileIO{stdout: stdout, stderr: stderr}
	require.NoError(t, io.Close())

	assert.Error(t, stdout.Close())
	assert.Error(t, stderr.Close())
}

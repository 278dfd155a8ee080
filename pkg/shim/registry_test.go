// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryInsertRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	c1 := NewContainer("dup", "/b1", "/o1", "/e1")
	c2 := NewContainer("dup", "/b2", "/o2", "/e2")

	assert.True(t, r.Insert(c1))
	assert.False(t, r.Insert(c2), "second insert under the same id must be rejected")

	got, ok := r.Get("dup")
	assert.True(t, ok)
	assert.Same(t, c1, got)
}

func TestRegistryGetMissingReturnsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nope")
	assert.False(t, ok)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	c := NewContainer("c1", "/b", "/o", "/e")
	require := assert.New(t)
	require.True(r.Insert(c))

	r.Remove("c1")
	_, ok := r.Get("c1")
	require.False(ok)
}

func TestRegistryAllSnapshotsAllEntries(t *testing.T) {
	r := NewRegistry()
	r.Insert(NewContainer("a", "/b", "/o", "/e"))
	r.Insert(NewContainer("b", "/b", "/o", "/e"))

	all := r.All()
	assert.Len(t, all, 2)
}

func TestRegistryFindByPid(t *testing.T) {
	r := NewRegistry()
	c := NewContainer("a", "/b", "/o", "/e")
	c.pid = 999
	r.Insert(c)

	found, ok := r.FindByPid(999)
	assert.True(t, ok)
	assert.Same(t, c, found)

	_, ok = r.FindByPid(1)
	assert.False(t, ok)
}

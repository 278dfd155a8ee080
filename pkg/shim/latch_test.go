// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExitLatchWaitAfterSignalReturnsImmediately(t *testing.T) {
	l := NewExitLatch()
	l.Signal()

	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Signal preceded it")
	}
	assert.True(t, l.Fired())
}

func TestExitLatchSignalIsIdempotent(t *testing.T) {
	l := NewExitLatch()
	assert.NotPanics(t, func() {
		l.Signal()
		l.Signal()
		l.Signal()
	})
	assert.True(t, l.Fired())
}

func TestExitLatchWakesManyConcurrentWaiters(t *testing.T) {
	l := NewExitLatch()
	const waiters = 64

	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			l.Wait()
		}()
	}

	// give the waiters a chance to block before signaling
	time.Sleep(10 * time.Millisecond)
	l.Signal()

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
	case <-time.After(2 * time.Second):
		t.Fatal("not all waiters were woken")
	}
}

func TestExitLatchNotFiredInitially(t *testing.T) {
	l := NewExitLatch()
	assert.False(t, l.Fired())
	select {
	case <-l.Done():
		t.Fatal("unfired latch's Done channel must not be ready")
	default:
	}
}

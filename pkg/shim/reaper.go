// Copyright (c) 2018 HyperHQ Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Exit is the wait4 information for a reaped child.
type Exit struct {
	Pid       int
	Status    int
	Timestamp time.Time
}

const exitBufferSize = 32
const exitSignalOffset = 128

type exitSubscriber struct {
	mu     sync.Mutex
	c      chan Exit
	closed bool
}

func (s *exitSubscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	close(s.c)
	s.closed = true
}

func (s *exitSubscriber) do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Reaper reaps terminated children on SIGCHLD and fans their exit status out
// to subscribers. The shim is set as child subreaper (see bootstrap.go), so
// SIGCHLD may represent more than one exit; Reap always drains every
// terminated child before returning.
type Reaper struct {
	mu          sync.Mutex
	subscribers map[chan Exit]*exitSubscriber
}

// NewReaper returns an empty reaper.
func NewReaper() *Reaper {
	return &Reaper{subscribers: make(map[chan Exit]*exitSubscriber)}
}

// Subscribe registers a new receiver of exit events.
func (r *Reaper) Subscribe() chan Exit {
	c := make(chan Exit, exitBufferSize)
	r.mu.Lock()
	r.subscribers[c] = &exitSubscriber{c: c}
	r.mu.Unlock()
	return c
}

// Unsubscribe removes and closes a previously subscribed channel.
func (r *Reaper) Unsubscribe(c chan Exit) {
	r.mu.Lock()
	s, ok := r.subscribers[c]
	if ok {
		delete(r.subscribers, c)
	}
	r.mu.Unlock()
	if ok {
		s.close()
	}
}

func (r *Reaper) snapshotSubscribers() []*exitSubscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*exitSubscriber, 0, len(r.subscribers))
	for _, s := range r.subscribers {
		out = append(out, s)
	}
	return out
}

// Reap should be called when the process receives SIGCHLD. It performs a
// non-blocking wait4 on pid -1 in a loop until no more terminated children
// remain, notifying subscribers for each one. A single-shot reap would leak
// zombies reparented to this process as subreaper.
func (r *Reaper) Reap() error {
	now := time.Now().UTC()
	exits, err := reapAll()
	for _, e := range exits {
		e.Timestamp = now
		r.notify(e)
	}
	return err
}

// notify delivers e to every current subscriber, waiting briefly for slow
// receivers but never blocking Reap indefinitely on one stuck consumer.
func (r *Reaper) notify(e Exit) {
	const perSubscriberTimeout = 50 * time.Millisecond
	for _, s := range r.snapshotSubscribers() {
		s.do(func() {
			if s.closed {
				return
			}
			select {
			case s.c <- e:
			case <-time.After(perSubscriberTimeout):
				shimLog.WithField("pid", e.Pid).Warn("exit event dropped: subscriber not receiving")
			}
		})
	}
}

func reapAll() ([]Exit, error) {
	var (
		exits []Exit
		ws    unix.WaitStatus
		rus   unix.Rusage
	)
	for {
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG, &rus)
		if err != nil {
			if err == unix.ECHILD {
				return exits, nil
			}
			return exits, err
		}
		if pid <= 0 {
			return exits, nil
		}
		exits = append(exits, Exit{Pid: pid, Status: exitStatus(ws)})
	}
}

func exitStatus(ws unix.WaitStatus) int {
	if ws.Signaled() {
		return exitSignalOffset + int(ws.Signal())
	}
	return ws.ExitStatus()
}

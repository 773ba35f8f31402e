// Package sync holds the small coordination primitives shared by the
// task store and the plan controller: an in-flight flag that rejects
// duplicate submissions and a session token that lets late responses be
// recognised and dropped.
package sync

import (
	"errors"
	gosync "sync"
	"sync/atomic"
)

// ErrBusy is returned when an action is triggered while the same action
// is still in flight.
var ErrBusy = errors.New("already in progress, please wait")

// Flight tracks whether a single kind of action is currently running.
// The zero value is ready to use.
type Flight struct {
	busy atomic.Bool
}

// Begin marks the action as running. It returns ErrBusy if it already is;
// the caller must not queue the action in that case.
func (f *Flight) Begin() error {
	if !f.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

// End marks the action as finished. It must be called on every path,
// including errors, so the UI never sticks in a busy state.
func (f *Flight) End() {
	f.busy.Store(false)
}

// Busy reports whether the action is running.
func (f *Flight) Busy() bool {
	return f.busy.Load()
}

// Session issues tokens for outstanding requests. A response is applied
// only if the token it was issued with is still current.
type Session struct {
	mu     gosync.Mutex
	seq    uint64
	closed bool
}

// Token returns a fresh token, superseding every earlier one.
func (s *Session) Token() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Current reports whether tok is the latest token and the session is
// still open.
func (s *Session) Current(tok uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && tok == s.seq
}

// Open reports whether the session has not been closed. Responses to
// requests that do not supersede each other (updates, deletes) only need
// this check.
func (s *Session) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Close invalidates all outstanding tokens. Later responses are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package engine

import "sync/atomic"

// Handle carries the shared pause/cancel signals between the orchestrator
// and every in-flight operation. The orchestrator owns the write side;
// operations only poll. A new Handle is created per batch so signals from a
// finished batch can never leak into the next one.
type Handle struct {
	cancelled atomic.Bool
	paused    atomic.Bool
}

// NewHandle creates a handle with both flags cleared.
func NewHandle() *Handle {
	return &Handle{}
}

// Cancel sets the cancel flag. It is never cleared on the same handle.
func (h *Handle) Cancel() {
	h.cancelled.Store(true)
}

// Pause sets the pause flag.
func (h *Handle) Pause() {
	h.paused.Store(true)
}

// Resume clears the pause flag.
func (h *Handle) Resume() {
	h.paused.Store(false)
}

// IsCancelled reports whether cancellation was requested.
func (h *Handle) IsCancelled() bool {
	if h == nil {
		return false
	}
	return h.cancelled.Load()
}

// IsPaused reports whether the batch is paused.
func (h *Handle) IsPaused() bool {
	if h == nil {
		return false
	}
	return h.paused.Load()
}

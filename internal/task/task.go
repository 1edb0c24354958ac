// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具
//
// Package task owns the batch queue: an ordered list of transcode tasks, a
// fixed-size worker pool and the batch lifecycle state machine.

package task

// Status of one task. failed, cancelled and completed are terminal; a task
// never re-enters running.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Kind of work a task performs.
type Kind string

const (
	KindConvert Kind = "convert"
	KindMerge   Kind = "merge"
)

// Task is one unit of work. It is mutated only by the worker that owns it
// while the queue lock is held; everyone else takes read-only snapshots.
type Task struct {
	ID           string
	Kind         Kind
	Inputs       []string
	Output       string
	IncludeAudio bool

	Status     Status
	Progress   float64
	Diagnostic string

	CreatedAt int64
	UpdatedAt int64
}

// BatchState of the queue as a whole.
type BatchState string

const (
	StateIdle      BatchState = "idle"
	StateRunning   BatchState = "running"
	StatePaused    BatchState = "paused"
	StateCancelled BatchState = "cancelled"
	StateDrained   BatchState = "drained"
)

// Summary reported once per batch when it settles.
type Summary struct {
	Total     int        `json:"total"`
	Completed int        `json:"completed"`
	Failed    int        `json:"failed"`
	Cancelled int        `json:"cancelled"`
	State     BatchState `json:"state"`
}

// TaskInfo is a read-only task snapshot for consumers.
type TaskInfo struct {
	ID           string   `json:"id"`
	Kind         Kind     `json:"kind"`
	Inputs       []string `json:"inputs"`
	Output       string   `json:"output"`
	IncludeAudio bool     `json:"include_audio"`
	Status       Status   `json:"status"`
	Progress     float64  `json:"progress"`
	Diagnostic   string   `json:"diagnostic,omitempty"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
	CPU          float64  `json:"cpu_usage,omitempty"`
	Memory       uint64   `json:"memory_bytes,omitempty"`
}

// Snapshot of the whole queue.
type Snapshot struct {
	State     BatchState `json:"state"`
	Total     int        `json:"total"`
	Completed int        `json:"completed"`
	Failed    int        `json:"failed"`
	Cancelled int        `json:"cancelled"`
	Tasks     []TaskInfo `json:"tasks"`
}

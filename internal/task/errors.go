// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package task

import "errors"

var (
	ErrBatchRunning  = errors.New("batch is already running")
	ErrNotRunning    = errors.New("batch is not running")
	ErrNotPaused     = errors.New("batch is not paused")
	ErrNoTasks       = errors.New("no tasks to run")
	ErrNoFailedTasks = errors.New("no failed tasks to retry")
	ErrNoInput       = errors.New("task needs at least one input and an output")
)

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package task

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZSC714725/v264convert/internal/engine"
)

func TestPipelineConvertThenMerge(t *testing.T) {
	var mu sync.Mutex
	var mergedInputs []string
	var convertsDone int64

	op := &fakeOp{
		convert: func(string, string, string, bool, *engine.Handle, func(float64)) engine.Result {
			atomic.AddInt64(&convertsDone, 1)
			return engine.Result{OK: true}
		},
		merge: func(_ string, inputs []string, _ string, _ bool, _ *engine.Handle, _ func(float64)) engine.Result {
			// 合并必须在所有转码任务排空之后才开始
			assert.Equal(t, int64(3), atomic.LoadInt64(&convertsDone))
			mu.Lock()
			mergedInputs = append([]string(nil), inputs...)
			mu.Unlock()
			return engine.Result{OK: true}
		},
	}
	q := NewQueue(op, 2, nil)
	done := waitComplete(q)

	q.Add("a.v264", "a.mp4", false)
	q.Add("b.v264", "b.mp4", false)
	q.Add("c.v264", "c.mp4", false)
	require.NoError(t, q.StartPipeline("merged.mp4", false))

	s := recvSummary(t, done)
	assert.Equal(t, Summary{Total: 4, Completed: 4, State: StateDrained}, s)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a.mp4", "b.mp4", "c.mp4"}, mergedInputs)

	snap := q.Snapshot()
	require.Len(t, snap.Tasks, 4)
	assert.Equal(t, KindMerge, snap.Tasks[3].Kind)
	assert.Equal(t, "merged.mp4", snap.Tasks[3].Output)
}

func TestPipelineSkipsFailedConverts(t *testing.T) {
	var mu sync.Mutex
	var mergedInputs []string

	op := &fakeOp{
		convert: func(_, input, _ string, _ bool, _ *engine.Handle, _ func(float64)) engine.Result {
			if input == "bad.v264" {
				return engine.Result{Diagnostic: "transcoder exited with code 1"}
			}
			return engine.Result{OK: true}
		},
		merge: func(_ string, inputs []string, _ string, _ bool, _ *engine.Handle, _ func(float64)) engine.Result {
			mu.Lock()
			mergedInputs = append([]string(nil), inputs...)
			mu.Unlock()
			return engine.Result{OK: true}
		},
	}
	q := NewQueue(op, 1, nil)
	done := waitComplete(q)

	q.Add("good.v264", "good.mp4", false)
	q.Add("bad.v264", "bad.mp4", false)
	require.NoError(t, q.StartPipeline("merged.mp4", false))

	s := recvSummary(t, done)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Failed)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"good.mp4"}, mergedInputs)
}

func TestPipelineAllConvertsFailedSkipsMerge(t *testing.T) {
	var merged int64
	op := &fakeOp{
		convert: func(string, string, string, bool, *engine.Handle, func(float64)) engine.Result {
			return engine.Result{Diagnostic: "transcoder exited with code 1"}
		},
		merge: func(string, []string, string, bool, *engine.Handle, func(float64)) engine.Result {
			atomic.AddInt64(&merged, 1)
			return engine.Result{OK: true}
		},
	}
	q := NewQueue(op, 2, nil)
	done := waitComplete(q)

	q.Add("a.v264", "a.mp4", false)
	q.Add("b.v264", "b.mp4", false)
	require.NoError(t, q.StartPipeline("merged.mp4", false))

	s := recvSummary(t, done)
	assert.Equal(t, Summary{Total: 2, Failed: 2, State: StateDrained}, s)
	assert.Zero(t, atomic.LoadInt64(&merged))
}

func TestPipelineCancelledBeforeMerge(t *testing.T) {
	started := make(chan struct{}, 1)
	var merged int64

	op := &fakeOp{
		convert: func(_, _, _ string, _ bool, h *engine.Handle, _ func(float64)) engine.Result {
			select {
			case started <- struct{}{}:
			default:
			}
			for !h.IsCancelled() {
				time.Sleep(5 * time.Millisecond)
			}
			return engine.Result{Cancelled: true}
		},
		merge: func(string, []string, string, bool, *engine.Handle, func(float64)) engine.Result {
			atomic.AddInt64(&merged, 1)
			return engine.Result{OK: true}
		},
	}
	q := NewQueue(op, 1, nil)
	done := waitComplete(q)

	q.Add("a.v264", "a.mp4", false)
	q.Add("b.v264", "b.mp4", false)
	require.NoError(t, q.StartPipeline("merged.mp4", false))
	<-started

	require.NoError(t, q.Cancel())

	s := recvSummary(t, done)
	assert.Equal(t, StateCancelled, s.State)
	assert.Equal(t, 2, s.Cancelled)
	assert.Zero(t, atomic.LoadInt64(&merged))
}

func TestPipelineRequiresOutput(t *testing.T) {
	q := NewQueue(&fakeOp{}, 1, nil)
	q.Add("a.v264", "a.mp4", false)
	assert.ErrorIs(t, q.StartPipeline("", false), ErrNoInput)
}

func TestPipelineStartFailureRollsBack(t *testing.T) {
	// 没有任务时流水线启动失败，随后的普通启动不得再追加合并
	var merged int64
	op := &fakeOp{
		merge: func(string, []string, string, bool, *engine.Handle, func(float64)) engine.Result {
			atomic.AddInt64(&merged, 1)
			return engine.Result{OK: true}
		},
	}
	q := NewQueue(op, 1, nil)
	assert.ErrorIs(t, q.StartPipeline("merged.mp4", false), ErrNoTasks)

	done := waitComplete(q)
	q.Add("a.v264", "a.mp4", false)
	require.NoError(t, q.Start())

	s := recvSummary(t, done)
	assert.Equal(t, Summary{Total: 1, Completed: 1, State: StateDrained}, s)
	assert.Zero(t, atomic.LoadInt64(&merged))
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/ZSC714725/v264convert/internal/engine"
	"github.com/ZSC714725/v264convert/internal/logger"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"
)

// Operation is what a worker executes for one task. engine.Engine satisfies
// it; tests substitute fakes.
type Operation interface {
	Convert(id, input, output string, includeAudio bool, h *engine.Handle, onProgress func(float64)) engine.Result
	Merge(id string, inputs []string, output string, includeAudio bool, h *engine.Handle, onProgress func(float64)) engine.Result
	Usage(id string) (cpu float64, memory uint64)
}

// ProgressFunc receives per-task progress. It may be called concurrently
// for different tasks; consumers index by task ID, never by arrival order.
type ProgressFunc func(taskID string, progress float64)

// CompleteFunc fires exactly once per batch, after the last task settles.
type CompleteFunc func(Summary)

type mergeSpec struct {
	output       string
	includeAudio bool
}

// Queue is the batch orchestrator.
type Queue struct {
	op      Operation
	workers int
	logger  logger.Logger
	events  *EventBus

	mu              sync.Mutex
	tasks           []*Task
	state           BatchState
	handle          *engine.Handle
	gen             uint64
	completionFired bool
	phase           int
	merge           *mergeSpec

	onProgress ProgressFunc
	onComplete CompleteFunc
}

// NewQueue creates an idle queue with a fixed worker count.
func NewQueue(op Operation, workers int, log logger.Logger) *Queue {
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Queue{
		op:      op,
		workers: workers,
		logger:  log,
		events:  NewEventBus(0),
		state:   StateIdle,
	}
}

// Events exposes the bounded event buffer for polling consumers.
func (q *Queue) Events() *EventBus {
	return q.events
}

// SetCallbacks installs the consumer callbacks. Must be called before Start.
func (q *Queue) SetCallbacks(onProgress ProgressFunc, onComplete CompleteFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onProgress = onProgress
	q.onComplete = onComplete
}

// Add appends one convert task. Rejected while the batch is running so a
// running batch's total count never changes under the workers.
func (q *Queue) Add(input, output string, includeAudio bool) (*Task, error) {
	return q.add(KindConvert, []string{input}, output, includeAudio)
}

// AddMerge appends one merge task over the given inputs.
func (q *Queue) AddMerge(inputs []string, output string, includeAudio bool) (*Task, error) {
	return q.add(KindMerge, inputs, output, includeAudio)
}

func (q *Queue) add(kind Kind, inputs []string, output string, includeAudio bool) (*Task, error) {
	if len(inputs) == 0 || inputs[0] == "" || output == "" {
		return nil, ErrNoInput
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state == StateRunning || q.state == StatePaused {
		return nil, ErrBatchRunning
	}

	now := time.Now().Unix()
	t := &Task{
		ID:           shortuuid.New(),
		Kind:         kind,
		Inputs:       inputs,
		Output:       output,
		IncludeAudio: includeAudio,
		Status:       StatusWaiting,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	q.tasks = append(q.tasks, t)
	q.logger.Info("added %s task %s: %v -> %s (audio: %v)", kind, t.ID, inputs, output, includeAudio)
	return t, nil
}

// Start dispatches every waiting task to the worker pool and returns without
// blocking. No-op with a warning when already running or when the list is
// empty.
func (q *Queue) Start() error {
	return q.start(false)
}

// StartPipeline runs the batch in two phases: the convert tasks first, then,
// once they drain, a single merge of the successful outputs into
// mergedOutput. The completion callback fires only after the merge settles.
func (q *Queue) StartPipeline(mergedOutput string, includeAudio bool) error {
	if mergedOutput == "" {
		return ErrNoInput
	}
	q.mu.Lock()
	q.merge = &mergeSpec{output: mergedOutput, includeAudio: includeAudio}
	q.mu.Unlock()

	if err := q.start(true); err != nil {
		q.mu.Lock()
		q.merge = nil
		q.mu.Unlock()
		return err
	}
	return nil
}

func (q *Queue) start(pipeline bool) error {
	q.mu.Lock()

	if q.state == StateRunning || q.state == StatePaused {
		q.mu.Unlock()
		q.logger.Warn("start ignored: batch is already running")
		return ErrBatchRunning
	}

	var waiting []*Task
	for _, t := range q.tasks {
		if t.Status == StatusWaiting {
			waiting = append(waiting, t)
		}
	}
	if len(waiting) == 0 {
		q.mu.Unlock()
		q.logger.Warn("start ignored: no waiting tasks")
		return ErrNoTasks
	}

	if pipeline {
		q.phase = 1
	} else {
		q.phase = 0
		q.merge = nil
	}

	q.state = StateRunning
	q.handle = engine.NewHandle()
	q.completionFired = false
	q.gen++

	gen := q.gen
	handle := q.handle
	total := len(q.tasks)
	q.mu.Unlock()

	q.logger.Info("starting batch: %d tasks, %d workers", total, q.workers)
	q.events.Publish(Event{Type: EventState, State: StateRunning})

	go q.dispatch(gen, handle, waiting)
	return nil
}

// dispatch fans the tasks out to at most q.workers concurrent workers.
// Tasks run in list order but may complete out of order.
func (q *Queue) dispatch(gen uint64, h *engine.Handle, tasks []*Task) {
	g := new(errgroup.Group)
	g.SetLimit(q.workers)

	for _, t := range tasks {
		t := t
		g.Go(func() error {
			q.runTask(gen, h, t)
			return nil
		})
	}

	g.Wait()
}

// runTask drives one task to a terminal status and performs the settle
// check. The task is owned by exactly this worker until it settles.
func (q *Queue) runTask(gen uint64, h *engine.Handle, t *Task) {
	q.mu.Lock()
	if gen != q.gen || t.Status != StatusWaiting {
		// 任务在派发前被取消（或批次已被清空），只做收尾检查
		q.mu.Unlock()
		q.settle(gen)
		return
	}
	t.Status = StatusRunning
	t.Progress = 0
	t.Diagnostic = ""
	t.UpdatedAt = time.Now().Unix()
	q.mu.Unlock()

	// 任务开始即上报 0%，消费者不必等第一行 FFmpeg 输出
	q.emitProgress(t, 0)

	res := q.execute(t, h)

	q.mu.Lock()
	switch {
	case res.OK:
		t.Status = StatusCompleted
		t.Progress = 100
		t.Diagnostic = ""
	case res.Cancelled:
		t.Status = StatusCancelled
	default:
		t.Status = StatusFailed
		t.Diagnostic = res.Diagnostic
	}
	t.UpdatedAt = time.Now().Unix()
	q.mu.Unlock()

	switch {
	case res.OK:
		q.emitProgress(t, 100)
		q.logger.Info("task %s completed: %s", t.ID, t.Output)
	case res.Cancelled:
		q.logger.Info("task %s cancelled", t.ID)
	default:
		q.logger.Error("task %s failed: %s", t.ID, res.Diagnostic)
	}

	q.settle(gen)
}

// execute runs the operation with a panic barrier so an internal fault in
// one task never takes down the batch.
func (q *Queue) execute(t *Task, h *engine.Handle) (res engine.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = engine.Result{Diagnostic: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	onProgress := func(p float64) {
		q.updateProgress(t, p)
	}

	if t.Kind == KindMerge {
		return q.op.Merge(t.ID, t.Inputs, t.Output, t.IncludeAudio, h, onProgress)
	}
	return q.op.Convert(t.ID, t.Inputs[0], t.Output, t.IncludeAudio, h, onProgress)
}

// updateProgress keeps per-task progress monotonic while running and
// forwards increases to the consumer.
func (q *Queue) updateProgress(t *Task, p float64) {
	if p > 100 {
		p = 100
	}

	q.mu.Lock()
	if t.Status != StatusRunning || p <= t.Progress {
		q.mu.Unlock()
		return
	}
	t.Progress = p
	q.mu.Unlock()

	q.emitProgress(t, p)
}

func (q *Queue) emitProgress(t *Task, p float64) {
	q.mu.Lock()
	cb := q.onProgress
	q.mu.Unlock()

	q.events.Publish(Event{Type: EventProgress, TaskID: t.ID, Progress: p})
	if cb != nil {
		cb(t.ID, p)
	}
}

// settle is the race-free completion check. The worker that observes the
// last task reaching a terminal status transitions the batch and fires the
// completion callback; the fired flag and the generation counter guarantee
// at most one fire per batch even when workers finish simultaneously.
func (q *Queue) settle(gen uint64) {
	q.mu.Lock()

	if gen != q.gen || q.completionFired {
		q.mu.Unlock()
		return
	}

	total := len(q.tasks)
	completed, failed, cancelled := q.countsLocked()
	if total == 0 || completed+failed+cancelled != total {
		q.mu.Unlock()
		return
	}

	// 两阶段流水线：转码批次排空后追加合并任务
	if q.merge != nil && q.phase == 1 && q.state != StateCancelled {
		q.phase = 2
		spec := q.merge

		var outputs []string
		for _, t := range q.tasks {
			if t.Kind == KindConvert && t.Status == StatusCompleted {
				outputs = append(outputs, t.Output)
			}
		}

		if len(outputs) > 0 {
			now := time.Now().Unix()
			mt := &Task{
				ID:           shortuuid.New(),
				Kind:         KindMerge,
				Inputs:       outputs,
				Output:       spec.output,
				IncludeAudio: spec.includeAudio,
				Status:       StatusWaiting,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			q.tasks = append(q.tasks, mt)
			handle := q.handle
			q.mu.Unlock()

			q.logger.Info("convert phase drained, merging %d files -> %s", len(outputs), spec.output)
			go q.dispatch(gen, handle, []*Task{mt})
			return
		}
		// 没有可合并的产物，直接收尾
	}

	q.completionFired = true
	if q.state == StateRunning || q.state == StatePaused {
		q.state = StateDrained
	}
	summary := Summary{
		Total:     total,
		Completed: completed,
		Failed:    failed,
		Cancelled: cancelled,
		State:     q.state,
	}
	cb := q.onComplete
	q.mu.Unlock()

	q.logger.Info("batch settled: %d completed, %d failed, %d cancelled of %d",
		summary.Completed, summary.Failed, summary.Cancelled, summary.Total)
	q.events.Publish(Event{Type: EventComplete, State: summary.State, Summary: &summary})

	if cb != nil {
		cb(summary)
	}
}

// Pause asks all in-flight operations to hold. No-op with a warning when
// the batch is not running.
func (q *Queue) Pause() error {
	q.mu.Lock()
	if q.state != StateRunning {
		q.mu.Unlock()
		q.logger.Warn("pause ignored: batch is not running")
		return ErrNotRunning
	}
	q.state = StatePaused
	h := q.handle
	q.mu.Unlock()

	h.Pause()
	q.logger.Info("batch paused")
	q.events.Publish(Event{Type: EventState, State: StatePaused})
	return nil
}

// Resume releases a paused batch.
func (q *Queue) Resume() error {
	q.mu.Lock()
	if q.state != StatePaused {
		q.mu.Unlock()
		q.logger.Warn("resume ignored: batch is not paused")
		return ErrNotPaused
	}
	q.state = StateRunning
	h := q.handle
	q.mu.Unlock()

	h.Resume()
	q.logger.Info("batch resumed")
	q.events.Publish(Event{Type: EventState, State: StateRunning})
	return nil
}

// Cancel requests cancellation: waiting tasks are cancelled immediately and
// never dispatched; in-flight operations observe the flag at their next
// poll. Cancel does not wait for the workers to finish.
func (q *Queue) Cancel() error {
	q.mu.Lock()
	if q.state != StateRunning && q.state != StatePaused {
		q.mu.Unlock()
		q.logger.Warn("cancel ignored: batch is not running")
		return ErrNotRunning
	}

	q.handle.Cancel()
	// 恢复暂停，避免挂起的 worker 永远停在暂停轮询里
	q.handle.Resume()

	now := time.Now().Unix()
	for _, t := range q.tasks {
		if t.Status == StatusWaiting {
			t.Status = StatusCancelled
			t.UpdatedAt = now
		}
	}
	q.state = StateCancelled
	gen := q.gen
	q.mu.Unlock()

	q.logger.Info("batch cancelled")
	q.events.Publish(Event{Type: EventState, State: StateCancelled})

	q.settle(gen)
	return nil
}

// RetryFailed resets every failed task to waiting and starts the batch
// again. Tasks in other states are untouched.
func (q *Queue) RetryFailed() error {
	q.mu.Lock()
	if q.state == StateRunning || q.state == StatePaused {
		q.mu.Unlock()
		return ErrBatchRunning
	}

	count := 0
	for _, t := range q.tasks {
		if t.Status != StatusFailed {
			continue
		}
		t.Status = StatusWaiting
		t.Progress = 0
		t.Diagnostic = ""
		t.UpdatedAt = time.Now().Unix()
		count++
	}
	q.mu.Unlock()

	if count == 0 {
		q.logger.Warn("retry ignored: no failed tasks")
		return ErrNoFailedTasks
	}

	q.logger.Info("retrying %d failed tasks", count)
	return q.Start()
}

// Clear resets the queue to empty and idle. When workers are still in
// flight this is a hard reset: the shared handle is cancelled, the task
// list is replaced, and the generation counter turns the orphaned workers'
// settle checks into no-ops.
func (q *Queue) Clear() {
	q.mu.Lock()
	if q.state == StateRunning || q.state == StatePaused {
		q.logger.Warn("clearing a running batch, in-flight workers will be orphaned")
		q.handle.Cancel()
		q.handle.Resume()
	}
	q.tasks = nil
	q.state = StateIdle
	q.handle = nil
	q.gen++
	q.completionFired = false
	q.phase = 0
	q.merge = nil
	q.mu.Unlock()

	q.logger.Info("queue cleared")
	q.events.Publish(Event{Type: EventState, State: StateIdle})
}

// State returns the current batch state.
func (q *Queue) State() BatchState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Snapshot returns a consistent read-only view of the queue. CPU/memory of
// running tasks is sampled outside the lock.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	s := Snapshot{State: q.state, Total: len(q.tasks)}
	s.Completed, s.Failed, s.Cancelled = q.countsLocked()

	s.Tasks = make([]TaskInfo, 0, len(q.tasks))
	for _, t := range q.tasks {
		s.Tasks = append(s.Tasks, TaskInfo{
			ID:           t.ID,
			Kind:         t.Kind,
			Inputs:       append([]string(nil), t.Inputs...),
			Output:       t.Output,
			IncludeAudio: t.IncludeAudio,
			Status:       t.Status,
			Progress:     t.Progress,
			Diagnostic:   t.Diagnostic,
			CreatedAt:    t.CreatedAt,
			UpdatedAt:    t.UpdatedAt,
		})
	}
	q.mu.Unlock()

	for i := range s.Tasks {
		if s.Tasks[i].Status == StatusRunning {
			s.Tasks[i].CPU, s.Tasks[i].Memory = q.op.Usage(s.Tasks[i].ID)
		}
	}
	return s
}

func (q *Queue) countsLocked() (completed, failed, cancelled int) {
	for _, t := range q.tasks {
		switch t.Status {
		case StatusCompleted:
			completed++
		case StatusFailed:
			failed++
		case StatusCancelled:
			cancelled++
		}
	}
	return completed, failed, cancelled
}

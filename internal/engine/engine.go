// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具
//
// Package engine runs the two transcode operations, convert-one and
// merge-many, on top of the process runner. Every failure is contained in
// the returned Result; nothing escapes the operation boundary.

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ZSC714725/v264convert/internal/ffmpeg"
	"github.com/ZSC714725/v264convert/internal/ffmpeg/parse"
	"github.com/ZSC714725/v264convert/internal/logger"
	"github.com/ZSC714725/v264convert/internal/process"
)

// Result of one operation. Cancelled is distinguished from failure.
type Result struct {
	OK         bool
	Cancelled  bool
	Diagnostic string
}

// Runner abstracts the process runner so tests can substitute one.
type Runner interface {
	Run(binary string, args []string, onLine func(string), isCancelled, isPaused func() bool) (process.Result, error)
	Usage() (cpu float64, memory uint64)
}

// Engine executes transcode operations.
type Engine struct {
	binary          string
	params          ffmpeg.Params
	assumedDuration float64
	logger          logger.Logger

	newRunner func() Runner

	mu     sync.Mutex
	active map[string]Runner
}

// New creates an Engine bound to a resolved FFmpeg installation.
func New(ff ffmpeg.FFmpeg, assumedDurationSeconds float64, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{
		binary:          ff.Binary(),
		params:          ff.Params(),
		assumedDuration: assumedDurationSeconds,
		logger:          log,
		active:          make(map[string]Runner),
	}
	e.newRunner = func() Runner { return process.NewRunner(log) }
	return e
}

// Usage returns CPU percent and RSS bytes of the process currently running
// for the given operation id, zeros when idle.
func (e *Engine) Usage(id string) (cpu float64, memory uint64) {
	e.mu.Lock()
	r := e.active[id]
	e.mu.Unlock()
	if r == nil {
		return 0, 0
	}
	return r.Usage()
}

// Convert transcodes one input file to output. Progress percentages are
// delivered through onProgress as lines arrive.
func (e *Engine) Convert(id, input, output string, includeAudio bool, h *Handle, onProgress func(float64)) (res Result) {
	defer e.contain(&res, "convert")

	e.logger.Info("convert %s -> %s (audio: %v)", input, output, includeAudio)

	if diag := checkInput(input); diag != "" {
		return failed(diag)
	}
	if diag := ensureOutputDir(output); diag != "" {
		return failed(diag)
	}

	args := ffmpeg.BuildConvertArgs(input, output, includeAudio, e.params)

	res = e.run(id, args, h, onProgress)
	if res.OK {
		e.logger.Info("convert done: %s", output)
	}
	return res
}

// Merge concatenates inputs into one output file. A temporary manifest is
// written next to the output and removed again on every exit path.
func (e *Engine) Merge(id string, inputs []string, output string, includeAudio bool, h *Handle, onProgress func(float64)) (res Result) {
	defer e.contain(&res, "merge")

	e.logger.Info("merge %d files -> %s (audio: %v)", len(inputs), output, includeAudio)

	if len(inputs) == 0 {
		return failed("merge failed: input file list is empty")
	}

	var invalid []string
	for _, in := range inputs {
		if diag := checkInput(in); diag != "" {
			invalid = append(invalid, diag)
		}
	}
	if len(invalid) > 0 {
		return failed("merge failed:\n" + strings.Join(invalid, "\n"))
	}

	if diag := ensureOutputDir(output); diag != "" {
		return failed(diag)
	}

	args, manifest, err := ffmpeg.BuildMergeArgs(inputs, output, includeAudio, e.params)
	if err != nil {
		return failed(fmt.Sprintf("merge failed: %v", err))
	}
	defer func() {
		if err := os.Remove(manifest); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("cannot remove concat manifest %s: %v", manifest, err)
		}
	}()

	res = e.run(id, args, h, onProgress)
	if !res.OK {
		return res
	}

	// concat 偶尔以 0 退出但没有产出文件
	info, err := os.Stat(output)
	if err != nil {
		return failed(fmt.Sprintf("merge finished but output is missing: %s", output))
	}
	e.logger.Info("merge done: %s (%.2f MB)", output, float64(info.Size())/1024/1024)
	return res
}

// run launches the process and translates its outcome into a Result.
func (e *Engine) run(id string, args []string, h *Handle, onProgress func(float64)) Result {
	runner := e.newRunner()

	e.mu.Lock()
	e.active[id] = runner
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.active, id)
		e.mu.Unlock()
	}()

	lastError := ""
	onLine := func(line string) {
		if parse.IsErrorLine(line) {
			lastError = strings.TrimSpace(line)
			e.logger.Debug("ffmpeg: %s", lastError)
		}
		if pct, ok := parse.Percent(line, e.assumedDuration); ok && onProgress != nil {
			onProgress(pct)
		}
	}

	result, err := runner.Run(e.binary, args, onLine, h.IsCancelled, h.IsPaused)
	if err != nil {
		return failed(fmt.Sprintf("cannot launch transcoder: %v", err))
	}

	if result.Cancelled {
		return Result{Cancelled: true, Diagnostic: "operation cancelled"}
	}

	if result.ExitCode != 0 {
		diag := fmt.Sprintf("transcoder exited with code %d", result.ExitCode)
		if lastError != "" {
			diag += "\nlast error: " + lastError
		}
		if len(result.Tail) > 0 {
			diag += "\noutput tail:\n" + strings.Join(result.Tail, "\n")
		}
		return failed(diag)
	}

	if onProgress != nil {
		onProgress(100)
	}
	return Result{OK: true}
}

// contain converts a panic at the operation boundary into a failed result so
// one task's internal fault never aborts the batch.
func (e *Engine) contain(res *Result, op string) {
	if r := recover(); r != nil {
		e.logger.Error("%s: internal error: %v", op, r)
		*res = failed(fmt.Sprintf("internal error during %s: %v", op, r))
	}
}

func checkInput(input string) string {
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Sprintf("input file does not exist: %s", input)
	}
	if info.Size() == 0 {
		return fmt.Sprintf("input file is empty: %s", input)
	}
	return ""
}

func ensureOutputDir(output string) string {
	dir := filepath.Dir(output)
	if dir == "" || dir == "." {
		return ""
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Sprintf("cannot create output directory %s: %v", dir, err)
	}
	return ""
}

func failed(diagnostic string) Result {
	return Result{Diagnostic: diagnostic}
}

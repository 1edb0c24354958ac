// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具
//
// Package process wraps exec.Cmd for running one FFmpeg invocation to
// completion while streaming its output line by line.

package process

import (
	"bufio"
	"container/ring"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"time"
	"unicode/utf8"

	"github.com/ZSC714725/v264convert/internal/logger"
)

const (
	// tailLines is how many trailing output lines are kept for diagnostics.
	tailLines = 50

	pausePollInterval = 100 * time.Millisecond

	// killGracePeriod is how long a terminated process gets before SIGKILL.
	killGracePeriod = 5 * time.Second
)

// Result of one process run.
type Result struct {
	ExitCode  int
	Cancelled bool
	Tail      []string
}

// Runner runs one external process at a time and samples its resource usage.
type Runner struct {
	limits Limiter
	logger logger.Logger
}

// NewRunner creates a Runner.
func NewRunner(log logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		limits: NewSysLimiter(),
		logger: log,
	}
}

// Usage returns CPU percent and RSS bytes of the currently running child,
// zeros when nothing is running.
func (r *Runner) Usage() (cpu float64, memory uint64) {
	return r.limits.Current()
}

// Run launches binary with args, stdout and stderr merged. onLine is invoked
// once per output line. isCancelled is polled before every line; when it
// returns true the process is terminated and the run returns a cancelled
// result after at most the kill grace period. isPaused blocks line
// consumption in a sleep loop; the underlying process keeps running.
func (r *Runner) Run(binary string, args []string, onLine func(string), isCancelled, isPaused func() bool) (Result, error) {
	cmd := exec.Command(binary, args...)

	pr, pw, err := os.Pipe()
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return Result{ExitCode: -1}, err
	}
	// 父进程侧关闭写端，子进程退出后读端才能收到 EOF
	pw.Close()

	if err := r.limits.Start(cmd.Process.Pid); err != nil {
		r.logger.Debug("usage sampling unavailable for pid %d: %v", cmd.Process.Pid, err)
	}
	defer r.limits.Stop()

	tail := ring.New(tailLines)
	cancelled := false
	var killTimer *time.Timer

	scanner := bufio.NewScanner(pr)
	scanner.Split(scanLine)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		tail.Value = line
		tail = tail.Next()

		if isCancelled != nil && isCancelled() {
			cancelled = true
			killTimer = r.terminate(cmd)
			break
		}

		for isPaused != nil && isPaused() {
			if isCancelled != nil && isCancelled() {
				break
			}
			time.Sleep(pausePollInterval)
		}

		if onLine != nil {
			onLine(line)
		}
	}

	pr.Close()

	waitErr := cmd.Wait()
	if killTimer != nil {
		killTimer.Stop()
	}

	code := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		} else if !cancelled {
			return Result{ExitCode: -1, Tail: collectTail(tail)}, waitErr
		} else {
			code = -1
		}
	}

	return Result{ExitCode: code, Cancelled: cancelled, Tail: collectTail(tail)}, nil
}

// terminate asks the process to exit and arms a kill timer as backstop.
func (r *Runner) terminate(cmd *exec.Cmd) *time.Timer {
	if runtime.GOOS == "windows" {
		cmd.Process.Kill()
		return nil
	}
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		cmd.Process.Kill()
		return nil
	}
	return time.AfterFunc(killGracePeriod, func() {
		cmd.Process.Kill()
	})
}

func collectTail(tail *ring.Ring) []string {
	var out []string
	tail.Do(func(v interface{}) {
		if v != nil {
			out = append(out, v.(string))
		}
	})
	return out
}

// scanLine splits on \n and \r so FFmpeg progress lines, which are
// rewritten in place with carriage returns, surface individually.
func scanLine(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) {
		r, w := utf8.DecodeRune(data[start:])
		if r != '\n' && r != '\r' {
			break
		}
		start += w
	}

	for i := start; i < len(data); {
		r, w := utf8.DecodeRune(data[i:])
		if r == '\n' || r == '\r' {
			return i + w, data[start:i], nil
		}
		i += w
	}

	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

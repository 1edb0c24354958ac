// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具
//
// Package parse extracts progress information from FFmpeg output lines.

package parse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// 匹配 time=00:01:23.45，支持 .0 .00 .000 等
	reTime  = regexp.MustCompile(`time=\s*([0-9]+):([0-9]{2}):([0-9]{2})\.([0-9]+)`)
	reFrame = regexp.MustCompile(`frame=\s*([0-9]+)`)
	reSpeed = regexp.MustCompile(`speed=\s*([0-9.]+)x`)
)

// errorKeywords mark lines worth surfacing as diagnostics. FFmpeg keeps
// going after many of these, so a match is informational, not fatal.
var errorKeywords = []string{
	"error:",
	"failed:",
	"could not",
	"unable to",
	"no start code",
	"invalid data",
}

// Percent extracts the elapsed transcode time from line and converts it to a
// percentage of assumedTotalSeconds, clamped to [0,100]. ok is false when
// the line carries no time= field, which is the case for most lines.
//
// The total duration is an assumption, not a probe of the actual input, so
// the returned percentage is an approximation.
func Percent(line string, assumedTotalSeconds float64) (pct float64, ok bool) {
	if assumedTotalSeconds <= 0 {
		return 0, false
	}

	m := reTime.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}

	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])

	frac := 0.0
	if len(m[4]) > 0 {
		if x, err := strconv.ParseUint(m[4], 10, 64); err == nil {
			div := 1.0
			for range m[4] {
				div *= 10
			}
			frac = float64(x) / div
		}
	}

	elapsed := float64(h*3600+mm*60+s) + frac
	pct = elapsed / assumedTotalSeconds * 100

	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

// Frame returns the frame counter from a progress line, 0 when absent.
func Frame(line string) uint64 {
	m := reFrame.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	x, _ := strconv.ParseUint(m[1], 10, 64)
	return x
}

// Speed returns the encode speed multiplier from a progress line, 0 when absent.
func Speed(line string) float64 {
	m := reSpeed.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	x, _ := strconv.ParseFloat(m[1], 64)
	return x
}

// IsErrorLine reports whether line looks like an FFmpeg error message.
func IsErrorLine(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range errorKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const progressLine = "frame=  120 fps= 25 q=28.0 size=    1024kB time=00:01:30.00 bitrate= 93.2kbits/s speed=3.1x"

func TestPercent(t *testing.T) {
	pct, ok := Percent(progressLine, 600)
	require.True(t, ok)
	assert.InDelta(t, 15.0, pct, 0.001)
}

func TestPercentFractionDigits(t *testing.T) {
	// 不同长度的小数部分都要正确换算
	for _, tc := range []struct {
		line string
		want float64
	}{
		{"time=00:00:30.5 bitrate=N/A", 30.5 / 600 * 100},
		{"time=00:00:30.50 bitrate=N/A", 30.5 / 600 * 100},
		{"time=00:00:30.500 bitrate=N/A", 30.5 / 600 * 100},
	} {
		pct, ok := Percent(tc.line, 600)
		require.True(t, ok, tc.line)
		assert.InDelta(t, tc.want, pct, 0.001, tc.line)
	}
}

func TestPercentNoTimeField(t *testing.T) {
	for _, line := range []string{
		"",
		"Press [q] to stop, [?] for help",
		"frame=  120 fps= 25 q=28.0",
		"Stream #0:0: Video: hevc (Main)",
	} {
		_, ok := Percent(line, 600)
		assert.False(t, ok, line)
	}
}

func TestPercentClamped(t *testing.T) {
	// 实际时长超过假定时长时封顶 100
	pct, ok := Percent("time=00:20:00.00 bitrate=N/A", 600)
	require.True(t, ok)
	assert.Equal(t, 100.0, pct)
}

func TestPercentInvalidTotal(t *testing.T) {
	_, ok := Percent(progressLine, 0)
	assert.False(t, ok)
	_, ok = Percent(progressLine, -1)
	assert.False(t, ok)
}

func TestFrame(t *testing.T) {
	assert.Equal(t, uint64(120), Frame(progressLine))
	assert.Equal(t, uint64(0), Frame("no counters here"))
}

func TestSpeed(t *testing.T) {
	assert.Equal(t, 3.1, Speed(progressLine))
	assert.Equal(t, 0.0, Speed("no counters here"))
}

func TestIsErrorLine(t *testing.T) {
	for _, line := range []string{
		"Error: could not open file",
		"[h264 @ 0x55] no start code found",
		"Invalid data found when processing input",
		"Conversion failed: unknown encoder",
	} {
		assert.True(t, IsErrorLine(line), line)
	}

	for _, line := range []string{
		progressLine,
		"Output #0, mp4, to 'out.mp4':",
	} {
		assert.False(t, IsErrorLine(line), line)
	}
}

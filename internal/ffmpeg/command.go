// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package ffmpeg

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Params are the user-tunable encode settings.
type Params struct {
	CRF          int
	AudioCodec   string
	AudioBitrate string
	Overwrite    bool
}

// BuildConvertArgs builds the argument list for converting one raw .v264
// recording to a seekable MP4. The camera writes bare HEVC streams with
// broken timestamps, hence the generous probing and error tolerance on the
// input side. Arguments are discrete tokens; paths are never quoted or
// concatenated into a shell string.
func BuildConvertArgs(input, output string, includeAudio bool, p Params) []string {
	args := []string{
		// 输入参数：不强制指定输入格式，让 FFmpeg 自动检测裸流
		"-analyzeduration", "20M",
		"-probesize", "20M",
		"-fflags", "+genpts+igndts",
		"-err_detect", "ignore_err",
		"-i", input,
		// 视频编码参数
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", strconv.Itoa(p.CRF),
		"-tune", "zerolatency",
		"-x264opts", "keyint=25:min-keyint=25:no-scenecut",
	}

	args = append(args, audioArgs(includeAudio, p)...)

	args = append(args,
		// 兼容性参数
		"-profile:v", "main",
		"-level", "4.0",
		"-pix_fmt", "yuv420p",
		// 元数据移到文件头部，支持拖动播放
		"-movflags", "faststart",
		overwriteFlag(p.Overwrite),
		"-strict", "experimental",
		output,
	)

	return args
}

// BuildMergeArgs builds the concat invocation for merging inputs into one
// MP4 and writes the temporary manifest the concat demuxer reads. The caller
// must remove manifestPath after the process exits, on every outcome.
func BuildMergeArgs(inputs []string, output string, includeAudio bool, p Params) (args []string, manifestPath string, err error) {
	manifestPath = output + ".txt"

	var b strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return nil, "", fmt.Errorf("resolve input path %s: %w", in, err)
		}
		// 使用绝对路径，避免 FFmpeg 找不到文件
		fmt.Fprintf(&b, "file \"%s\"\n", abs)
	}

	if err := os.WriteFile(manifestPath, []byte(b.String()), 0o644); err != nil {
		return nil, "", fmt.Errorf("write concat manifest: %w", err)
	}

	args = []string{
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", strconv.Itoa(p.CRF),
	}

	args = append(args, audioArgs(includeAudio, p)...)

	args = append(args,
		"-movflags", "faststart",
		"-profile:v", "main",
		"-level", "3.0",
		"-pix_fmt", "yuv420p",
		overwriteFlag(p.Overwrite),
		output,
	)

	return args, manifestPath, nil
}

func audioArgs(includeAudio bool, p Params) []string {
	if includeAudio {
		return []string{"-c:a", p.AudioCodec, "-b:a", p.AudioBitrate}
	}
	// .v264 文件通常没有音频，默认禁用音频流
	return []string{"-an"}
}

func overwriteFlag(overwrite bool) string {
	if overwrite {
		return "-y"
	}
	return "-n"
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package ffmpeg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{CRF: 18, AudioCodec: "aac", AudioBitrate: "128k"}
}

// indexOf returns the position of tok in args, -1 when absent.
func indexOf(args []string, tok string) int {
	for i, a := range args {
		if a == tok {
			return i
		}
	}
	return -1
}

func TestBuildConvertArgs(t *testing.T) {
	args := BuildConvertArgs("in.v264", "out.mp4", false, testParams())

	// 输入容错参数必须排在 -i 之前
	i := indexOf(args, "-i")
	require.True(t, i > 0)
	assert.Equal(t, "in.v264", args[i+1])
	assert.True(t, indexOf(args, "-analyzeduration") < i)
	assert.True(t, indexOf(args, "-probesize") < i)
	assert.True(t, indexOf(args, "-fflags") < i)
	assert.True(t, indexOf(args, "-err_detect") < i)

	crf := indexOf(args, "-crf")
	require.True(t, crf > 0)
	assert.Equal(t, "18", args[crf+1])

	assert.Contains(t, args, "libx264")
	assert.Contains(t, args, "zerolatency")
	assert.Contains(t, args, "faststart")
	assert.Contains(t, args, "-an")
	assert.Contains(t, args, "-n")
	assert.NotContains(t, args, "-y")
	assert.Equal(t, "out.mp4", args[len(args)-1])
}

func TestBuildConvertArgsAudio(t *testing.T) {
	args := BuildConvertArgs("in.v264", "out.mp4", true, testParams())

	assert.NotContains(t, args, "-an")
	ca := indexOf(args, "-c:a")
	require.True(t, ca > 0)
	assert.Equal(t, "aac", args[ca+1])
	ba := indexOf(args, "-b:a")
	require.True(t, ba > 0)
	assert.Equal(t, "128k", args[ba+1])
}

func TestBuildConvertArgsOverwrite(t *testing.T) {
	p := testParams()
	p.Overwrite = true
	args := BuildConvertArgs("in.v264", "out.mp4", false, p)

	assert.Contains(t, args, "-y")
	assert.NotContains(t, args, "-n")
}

func TestBuildMergeArgs(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "merged.mp4")

	args, manifest, err := BuildMergeArgs([]string{"a.mp4", "b.mp4"}, out, false, testParams())
	require.NoError(t, err)
	defer os.Remove(manifest)

	assert.Equal(t, out+".txt", manifest)

	// 清单里必须是绝对路径
	data, err := os.ReadFile(manifest)
	require.NoError(t, err)
	absA, _ := filepath.Abs("a.mp4")
	absB, _ := filepath.Abs("b.mp4")
	assert.Equal(t, "file \""+absA+"\"\nfile \""+absB+"\"\n", string(data))

	i := indexOf(args, "-i")
	require.True(t, i > 0)
	assert.Equal(t, manifest, args[i+1])
	assert.Contains(t, args, "concat")
	assert.Contains(t, args, "-safe")
	assert.Equal(t, out, args[len(args)-1])
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const encodersOutput = `Encoders:
 V..... = Video
 A..... = Audio
 S..... = Subtitle
 .F.... = Frame-level multithreading
 ------
 V....D a64multi             Multicolor charset for Commodore 64 (codec a64_multi)
 V..X.. libx264              libx264 H.264 / AVC / MPEG-4 AVC (codec h264)
 A....D aac                  AAC (Advanced Audio Coding)
 S..... srt                  SubRip subtitle
`

func TestParseEncoders(t *testing.T) {
	encoders := parseEncoders([]byte(encodersOutput))
	require.Len(t, encoders, 4)

	assert.Equal(t, Encoder{Id: "libx264", Name: "libx264 H.264 / AVC / MPEG-4 AVC (codec h264)", Type: "video"}, encoders[1])
	assert.Equal(t, "aac", encoders[2].Id)
	assert.Equal(t, "audio", encoders[2].Type)
	assert.Equal(t, "subtitle", encoders[3].Type)
}

func TestHasEncoder(t *testing.T) {
	s := Skills{Encoders: parseEncoders([]byte(encodersOutput))}
	assert.True(t, s.HasEncoder("libx264"))
	assert.False(t, s.HasEncoder("libx265"))
}

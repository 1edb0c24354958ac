// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "0-102042.v264"))
	touch(t, filepath.Join(dir, "sub", "0-102055.V264"))
	touch(t, filepath.Join(dir, "notes.txt"))

	found, err := Scan(dir, ".v264")
	require.NoError(t, err)
	assert.Len(t, found, 2)
	for _, f := range found {
		assert.NotContains(t, f, "notes.txt")
	}
}

func TestScanMissingDir(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"), ".v264")
	assert.Error(t, err)
}

func TestSortByTimestamp(t *testing.T) {
	paths := []string{
		"/rec/0-102055.v264",
		"/rec/0-102042.v264",
		"/rec/1-095900.v264",
	}

	sorted := SortByTimestamp(paths)
	assert.Equal(t, []string{
		"/rec/1-095900.v264",
		"/rec/0-102042.v264",
		"/rec/0-102055.v264",
	}, sorted)

	// 原切片不被改动
	assert.Equal(t, "/rec/0-102055.v264", paths[0])
}

func TestSortByTimestampNoTimestampFirst(t *testing.T) {
	sorted := SortByTimestamp([]string{
		"/rec/0-102042.v264",
		"/rec/leftover.v264",
	})
	assert.Equal(t, "/rec/leftover.v264", sorted[0])
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, filepath.Join("converted", "0-102042.mp4"),
		OutputName("/rec/0-102042.v264", "converted"))
}

func TestMergedName(t *testing.T) {
	name := MergedName("converted")
	assert.Contains(t, name, "merged_")
	assert.Equal(t, ".mp4", filepath.Ext(name))
}

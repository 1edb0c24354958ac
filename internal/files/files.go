// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具
//
// Package files discovers camera recordings and orders them by the
// timestamp embedded in their filenames.

package files

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// 摄像头文件名形如 0-102042.v264，第二段是时间戳
var reTimestamp = regexp.MustCompile(`^\d+-(\d+)\.`)

// Scan walks dir recursively and returns every file with the given
// extension (case-insensitive). The extension must include the dot.
func Scan(dir, ext string) ([]string, error) {
	ext = strings.ToLower(ext)

	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), ext) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	return out, nil
}

// SortByTimestamp orders paths by the numeric timestamp in the filename.
// Files without a recognizable timestamp sort first, keeping their relative
// order.
func SortByTimestamp(paths []string) []string {
	sorted := append([]string(nil), paths...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return timestampOf(sorted[i]) < timestampOf(sorted[j])
	})
	return sorted
}

func timestampOf(path string) int64 {
	m := reTimestamp.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

// OutputName derives the MP4 output path for one input recording.
func OutputName(input, outputDir string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, stem+".mp4")
}

// MergedName derives a timestamped output path for a merged recording.
func MergedName(outputDir string) string {
	return filepath.Join(outputDir, "merged_"+time.Now().Format("20060102_150405")+".mp4")
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package ffmpeg

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator decides whether a path is eligible as transcode input.
type Validator interface {
	IsValid(path string) bool
}

type validator struct {
	allow []*regexp.Regexp
	block []*regexp.Regexp
}

// NewValidator creates a Validator from allow/block expressions matched
// against the input path. Empty expressions are ignored; with no allow
// expressions everything not blocked passes.
func NewValidator(allow, block []string) (Validator, error) {
	v := &validator{}

	for _, exp := range allow {
		exp = strings.TrimSpace(exp)
		if exp == "" {
			continue
		}
		re, err := regexp.Compile(exp)
		if err != nil {
			return nil, fmt.Errorf("invalid allow expression '%s': %w", exp, err)
		}
		v.allow = append(v.allow, re)
	}

	for _, exp := range block {
		exp = strings.TrimSpace(exp)
		if exp == "" {
			continue
		}
		re, err := regexp.Compile(exp)
		if err != nil {
			return nil, fmt.Errorf("invalid block expression '%s': %w", exp, err)
		}
		v.block = append(v.block, re)
	}

	return v, nil
}

func (v *validator) IsValid(path string) bool {
	for _, e := range v.block {
		if e.MatchString(path) {
			return false
		}
	}
	if len(v.allow) == 0 {
		return true
	}
	for _, e := range v.allow {
		if e.MatchString(path) {
			return true
		}
	}
	return false
}

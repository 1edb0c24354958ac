// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具
//
// Package ffmpeg locates the FFmpeg binary, verifies its capabilities and
// builds the argument lists for convert and merge operations.

package ffmpeg

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/ZSC714725/v264convert/internal/ffmpeg/skills"
)

// FFmpeg manages the FFmpeg binary and its detected capabilities.
type FFmpeg interface {
	Binary() string
	Params() Params
	ValidateInput(path string) bool
	Skills() skills.Skills
	ReloadSkills() error
}

// Config for FFmpeg
type Config struct {
	Binary         string
	Params         Params
	ValidatorInput Validator
}

type ffmpeg struct {
	binary      string
	params      Params
	validatorIn Validator
	skills      skills.Skills
	skillsLock  sync.RWMutex
}

// New resolves the binary, probes its capabilities and checks that the
// libx264 encoder every built command relies on is present.
func New(config Config) (FFmpeg, error) {
	binary, err := exec.LookPath(config.Binary)
	if err != nil {
		return nil, fmt.Errorf("invalid ffmpeg binary: %w", err)
	}

	f := &ffmpeg{
		binary: binary,
		params: config.Params,
	}

	if config.ValidatorInput != nil {
		f.validatorIn = config.ValidatorInput
	} else {
		f.validatorIn, _ = NewValidator(nil, nil)
	}

	s, err := skills.New(binary)
	if err != nil {
		return nil, fmt.Errorf("invalid ffmpeg: %w", err)
	}
	if !s.HasEncoder("libx264") {
		return nil, fmt.Errorf("ffmpeg build at %s has no libx264 encoder", binary)
	}
	f.skills = s

	return f, nil
}

func (f *ffmpeg) Binary() string {
	return f.binary
}

func (f *ffmpeg) Params() Params {
	return f.params
}

func (f *ffmpeg) ValidateInput(path string) bool {
	return f.validatorIn.IsValid(path)
}

func (f *ffmpeg) Skills() skills.Skills {
	f.skillsLock.RLock()
	defer f.skillsLock.RUnlock()
	return f.skills
}

func (f *ffmpeg) ReloadSkills() error {
	s, err := skills.New(f.binary)
	if err != nil {
		return fmt.Errorf("reload skills: %w", err)
	}
	f.skillsLock.Lock()
	f.skills = s
	f.skillsLock.Unlock()
	return nil
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package skills

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Encoder is one encoder the FFmpeg build provides.
type Encoder struct {
	Id   string
	Name string
	Type string // video, audio, subtitle
}

// Skills are the detected capabilities of the FFmpeg binary.
type Skills struct {
	Version  string
	Encoders []Encoder
}

var (
	reVersion = regexp.MustCompile(`ffmpeg version ([0-9A-Za-z.\-_]+)`)
	reEncoder = regexp.MustCompile(`^ ([VAS])[FSXBD.]{5} ([^ ]+) +(.*)$`)
)

// New probes the binary for its version and encoder list.
func New(binary string) (Skills, error) {
	s := Skills{}

	version, err := getVersion(binary)
	if err != nil {
		return Skills{}, fmt.Errorf("can't parse ffmpeg version: %w", err)
	}
	s.Version = version

	s.Encoders = getEncoders(binary)

	return s, nil
}

// HasEncoder reports whether an encoder with the given id is available.
func (s Skills) HasEncoder(id string) bool {
	for _, e := range s.Encoders {
		if e.Id == id {
			return true
		}
	}
	return false
}

func getVersion(binary string) (string, error) {
	cmd := exec.Command(binary, "-version")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", err
	}

	m := reVersion.FindSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("no version banner in output")
	}
	return string(m[1]), nil
}

func getEncoders(binary string) []Encoder {
	cmd := exec.Command(binary, "-encoders")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil
	}
	return parseEncoders(out)
}

func parseEncoders(out []byte) []Encoder {
	var encoders []Encoder

	scanner := bufio.NewScanner(bytes.NewReader(out))
	header := true
	for scanner.Scan() {
		line := scanner.Text()
		// 编码器列表在 "------" 分隔行之后
		if header {
			if strings.Contains(line, "------") {
				header = false
			}
			continue
		}

		m := reEncoder.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		e := Encoder{
			Id:   m[2],
			Name: strings.TrimSpace(m[3]),
		}
		switch m[1] {
		case "V":
			e.Type = "video"
		case "A":
			e.Type = "audio"
		case "S":
			e.Type = "subtitle"
		}
		encoders = append(encoders, e)
	}

	return encoders
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg" json:"ffmpeg"`
	Transcode TranscodeConfig `yaml:"transcode" json:"transcode"`
	Queue     QueueConfig     `yaml:"queue" json:"queue"`
	Files     FilesConfig     `yaml:"files" json:"files"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Bind string `yaml:"bind" json:"bind"`
}

// FFmpegConfig FFmpeg 配置
type FFmpegConfig struct {
	Path string `yaml:"path" json:"path"`
}

// TranscodeConfig 转码参数
type TranscodeConfig struct {
	CRF          int     `yaml:"crf" json:"crf"`
	AudioCodec   string  `yaml:"audio_codec" json:"audio_codec"`
	AudioBitrate string  `yaml:"audio_bitrate" json:"audio_bitrate"`
	Overwrite    bool    `yaml:"overwrite" json:"overwrite"`
	IncludeAudio bool    `yaml:"include_audio" json:"include_audio"`
	// 进度按固定假定时长估算，不探测真实时长
	AssumedDurationSeconds float64 `yaml:"assumed_duration_seconds" json:"assumed_duration_seconds"`
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	Workers int `yaml:"workers" json:"workers"`
}

// FilesConfig 文件扫描配置
type FilesConfig struct {
	SourceDir string `yaml:"source_dir" json:"source_dir"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`
	Extension string `yaml:"extension" json:"extension"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Bind: ":8080"},
		FFmpeg: FFmpegConfig{Path: "ffmpeg"},
		Transcode: TranscodeConfig{
			CRF:                    18,
			AudioCodec:             "aac",
			AudioBitrate:           "128k",
			Overwrite:              false,
			IncludeAudio:           false,
			AssumedDurationSeconds: 600,
		},
		Queue: QueueConfig{Workers: 4},
		Files: FilesConfig{
			OutputDir: "converted",
			Extension: ".v264",
		},
	}
}

// Load 从 YAML 文件加载配置，文件不存在时返回默认配置
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.fillDefaults()
	return cfg, nil
}

// Save 将配置写回 YAML 文件
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// fillDefaults 填充空值
func (c *Config) fillDefaults() {
	def := Default()
	if c.Server.Bind == "" {
		c.Server.Bind = def.Server.Bind
	}
	if c.FFmpeg.Path == "" {
		c.FFmpeg.Path = def.FFmpeg.Path
	}
	if c.Transcode.CRF <= 0 {
		c.Transcode.CRF = def.Transcode.CRF
	}
	if c.Transcode.AudioCodec == "" {
		c.Transcode.AudioCodec = def.Transcode.AudioCodec
	}
	if c.Transcode.AudioBitrate == "" {
		c.Transcode.AudioBitrate = def.Transcode.AudioBitrate
	}
	if c.Transcode.AssumedDurationSeconds <= 0 {
		c.Transcode.AssumedDurationSeconds = def.Transcode.AssumedDurationSeconds
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = def.Queue.Workers
	}
	if c.Files.OutputDir == "" {
		c.Files.OutputDir = def.Files.OutputDir
	}
	if c.Files.Extension == "" {
		c.Files.Extension = def.Files.Extension
	}
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package main

import (
	"flag"
	"log"
	"regexp"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/v264convert/internal/api"
	"github.com/ZSC714725/v264convert/internal/config"
	"github.com/ZSC714725/v264convert/internal/engine"
	"github.com/ZSC714725/v264convert/internal/ffmpeg"
	"github.com/ZSC714725/v264convert/internal/logger"
	"github.com/ZSC714725/v264convert/internal/task"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	bind := flag.String("bind", "", "Bind address (overrides config)")
	ffmpegBin := flag.String("ffmpeg", "", "FFmpeg binary path (overrides config)")
	workers := flag.Int("workers", 0, "Worker count (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Load config: %v", err)
		}
	}

	if *bind != "" {
		cfg.Server.Bind = *bind
	}
	if *ffmpegBin != "" {
		cfg.FFmpeg.Path = *ffmpegBin
	}
	if *workers > 0 {
		cfg.Queue.Workers = *workers
	}

	appLogger := logger.New("v264convert", *debug)

	// 只接受配置的扩展名作为转码输入
	inputValidator, err := ffmpeg.NewValidator(
		[]string{regexp.QuoteMeta(cfg.Files.Extension) + "$"}, nil)
	if err != nil {
		log.Fatalf("Input validator: %v", err)
	}

	ff, err := ffmpeg.New(ffmpeg.Config{
		Binary: cfg.FFmpeg.Path,
		Params: ffmpeg.Params{
			CRF:          cfg.Transcode.CRF,
			AudioCodec:   cfg.Transcode.AudioCodec,
			AudioBitrate: cfg.Transcode.AudioBitrate,
			Overwrite:    cfg.Transcode.Overwrite,
		},
		ValidatorInput: inputValidator,
	})
	if err != nil {
		log.Fatalf("FFmpeg init: %v", err)
	}

	eng := engine.New(ff, cfg.Transcode.AssumedDurationSeconds, appLogger)
	queue := task.NewQueue(eng, cfg.Queue.Workers, appLogger)

	handler := api.NewHandler(queue, ff, cfg, *configPath, appLogger)

	r := gin.Default()
	r.Use(gin.Recovery(), cors.Default())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/queue", handler.GetQueue)
		v1.POST("/queue/tasks", handler.AddTasks)
		v1.PUT("/queue/command", handler.Command)
		v1.POST("/queue/pipeline", handler.Pipeline)
		v1.GET("/queue/events", handler.Events)

		v1.GET("/files", handler.Files)

		v1.GET("/skills", handler.Skills)
		v1.POST("/skills/reload", handler.ReloadSkills)

		v1.GET("/config", handler.GetConfig)
		v1.PUT("/config", handler.PutConfig)
	}

	log.Printf("V264Convert listening on %s", cfg.Server.Bind)
	if err := r.Run(cfg.Server.Bind); err != nil {
		log.Fatalf("Server: %v", err)
	}
}

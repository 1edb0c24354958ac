// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/v264convert/internal/config"
	"github.com/ZSC714725/v264convert/internal/ffmpeg"
	"github.com/ZSC714725/v264convert/internal/files"
	"github.com/ZSC714725/v264convert/internal/logger"
	"github.com/ZSC714725/v264convert/internal/task"
)

// Handler holds dependencies
type Handler struct {
	queue      *task.Queue
	ffmpeg     ffmpeg.FFmpeg
	cfg        *config.Config
	configPath string
	logger     logger.Logger
}

// NewHandler creates the API handler
func NewHandler(queue *task.Queue, ff ffmpeg.FFmpeg, cfg *config.Config, configPath string, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		queue:      queue,
		ffmpeg:     ff,
		cfg:        cfg,
		configPath: configPath,
		logger:     log,
	}
}

func errResp(c *gin.Context, code int, msg, detail string) {
	c.JSON(code, ErrorResponse{Code: code, Message: msg, Detail: detail})
}

// GetQueue GET /api/v1/queue
func (h *Handler) GetQueue(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.Snapshot())
}

// AddTasks POST /api/v1/queue/tasks
func (h *Handler) AddTasks(c *gin.Context) {
	var req AddTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if len(req.Items) == 0 {
		errResp(c, http.StatusBadRequest, "At least one item required", "")
		return
	}

	resp := AddTasksResponse{Added: make([]string, 0, len(req.Items))}
	for _, item := range req.Items {
		if !h.ffmpeg.ValidateInput(item.Input) {
			errResp(c, http.StatusBadRequest, "Input rejected", item.Input)
			return
		}

		output := item.Output
		if output == "" {
			output = files.OutputName(item.Input, h.cfg.Files.OutputDir)
		}

		includeAudio := h.cfg.Transcode.IncludeAudio
		if item.IncludeAudio != nil {
			includeAudio = *item.IncludeAudio
		}

		t, err := h.queue.Add(item.Input, output, includeAudio)
		if err != nil {
			if errors.Is(err, task.ErrBatchRunning) {
				errResp(c, http.StatusConflict, "Batch is running", err.Error())
				return
			}
			errResp(c, http.StatusBadRequest, "Cannot add task", err.Error())
			return
		}
		resp.Added = append(resp.Added, t.ID)
	}

	c.JSON(http.StatusOK, resp)
}

// Command PUT /api/v1/queue/command
func (h *Handler) Command(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	var err error
	switch req.Command {
	case "start":
		err = h.queue.Start()
	case "pause":
		err = h.queue.Pause()
	case "resume":
		err = h.queue.Resume()
	case "cancel":
		err = h.queue.Cancel()
	case "retry":
		err = h.queue.RetryFailed()
	case "clear":
		h.queue.Clear()
	default:
		errResp(c, http.StatusBadRequest, "Unknown command", "Known: start, pause, resume, cancel, retry, clear")
		return
	}

	if err != nil {
		errResp(c, http.StatusConflict, "Command failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, "OK")
}

// Pipeline POST /api/v1/queue/pipeline
func (h *Handler) Pipeline(c *gin.Context) {
	var req PipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	inputs := req.Inputs
	if len(inputs) == 0 {
		if req.Directory == "" {
			errResp(c, http.StatusBadRequest, "Either inputs or directory required", "")
			return
		}
		found, err := files.Scan(req.Directory, h.cfg.Files.Extension)
		if err != nil {
			errResp(c, http.StatusBadRequest, "Scan failed", err.Error())
			return
		}
		inputs = files.SortByTimestamp(found)
	}
	if len(inputs) == 0 {
		errResp(c, http.StatusBadRequest, "No input files found", "")
		return
	}

	includeAudio := h.cfg.Transcode.IncludeAudio
	if req.IncludeAudio != nil {
		includeAudio = *req.IncludeAudio
	}

	for _, in := range inputs {
		if !h.ffmpeg.ValidateInput(in) {
			errResp(c, http.StatusBadRequest, "Input rejected", in)
			return
		}
		if _, err := h.queue.Add(in, files.OutputName(in, h.cfg.Files.OutputDir), includeAudio); err != nil {
			if errors.Is(err, task.ErrBatchRunning) {
				errResp(c, http.StatusConflict, "Batch is running", err.Error())
				return
			}
			errResp(c, http.StatusBadRequest, "Cannot add task", err.Error())
			return
		}
	}

	merged := req.MergedOutput
	if merged == "" {
		merged = files.MergedName(h.cfg.Files.OutputDir)
	}

	if err := h.queue.StartPipeline(merged, includeAudio); err != nil {
		errResp(c, http.StatusConflict, "Cannot start pipeline", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"merged_output": merged, "tasks": len(inputs)})
}

// Events GET /api/v1/queue/events?since=N
func (h *Handler) Events(c *gin.Context) {
	since, err := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil {
		errResp(c, http.StatusBadRequest, "Invalid since parameter", err.Error())
		return
	}

	events := h.queue.Events().Since(since)
	if events == nil {
		events = []task.Event{}
	}
	c.JSON(http.StatusOK, events)
}

// Files GET /api/v1/files?dir=...
func (h *Handler) Files(c *gin.Context) {
	dir := c.DefaultQuery("dir", h.cfg.Files.SourceDir)
	if dir == "" {
		errResp(c, http.StatusBadRequest, "No directory given and no source_dir configured", "")
		return
	}

	found, err := files.Scan(dir, h.cfg.Files.Extension)
	if err != nil {
		errResp(c, http.StatusBadRequest, "Scan failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, FilesResponse{
		Directory: dir,
		Files:     files.SortByTimestamp(found),
	})
}

// Skills GET /api/v1/skills
func (h *Handler) Skills(c *gin.Context) {
	sk := h.ffmpeg.Skills()

	resp := SkillsResponse{Version: sk.Version}
	resp.Encoders = make([]SkillsEncoder, 0, len(sk.Encoders))
	for _, e := range sk.Encoders {
		resp.Encoders = append(resp.Encoders, SkillsEncoder{ID: e.Id, Name: e.Name, Type: e.Type})
	}

	c.JSON(http.StatusOK, resp)
}

// ReloadSkills POST /api/v1/skills/reload
func (h *Handler) ReloadSkills(c *gin.Context) {
	if err := h.ffmpeg.ReloadSkills(); err != nil {
		errResp(c, http.StatusInternalServerError, "Reload failed", err.Error())
		return
	}
	h.Skills(c)
}

// GetConfig GET /api/v1/config
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.cfg)
}

// PutConfig PUT /api/v1/config
//
// Transcode and file settings take effect for the next batch; server bind,
// ffmpeg path and worker count apply after restart.
func (h *Handler) PutConfig(c *gin.Context) {
	var req config.Config
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	h.cfg.Transcode = req.Transcode
	h.cfg.Files = req.Files

	if h.configPath != "" {
		if err := h.cfg.Save(h.configPath); err != nil {
			h.logger.Error("save config: %v", err)
			errResp(c, http.StatusInternalServerError, "Save failed", err.Error())
			return
		}
	}

	c.JSON(http.StatusOK, h.cfg)
}

// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package api

// AddTaskItem is one conversion to queue. Output is derived from the input
// name and configured output directory when empty.
type AddTaskItem struct {
	Input        string `json:"input" binding:"required"`
	Output       string `json:"output"`
	IncludeAudio *bool  `json:"include_audio"`
}

// AddTasksRequest for POST /queue/tasks
type AddTasksRequest struct {
	Items []AddTaskItem `json:"items" binding:"required"`
}

// AddTasksResponse lists the IDs of the queued tasks
type AddTasksResponse struct {
	Added []string `json:"added"`
}

// CommandRequest for PUT /queue/command
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
}

// PipelineRequest for POST /queue/pipeline. Either Directory or Inputs must
// be given; inputs found via Directory are sorted by filename timestamp.
type PipelineRequest struct {
	Directory    string   `json:"directory"`
	Inputs       []string `json:"inputs"`
	MergedOutput string   `json:"merged_output"`
	IncludeAudio *bool    `json:"include_audio"`
}

// FilesResponse for GET /files
type FilesResponse struct {
	Directory string   `json:"directory"`
	Files     []string `json:"files"`
}

// SkillsEncoder is one available encoder
type SkillsEncoder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// SkillsResponse for GET /skills
type SkillsResponse struct {
	Version  string          `json:"version"`
	Encoders []SkillsEncoder `json:"encoders"`
}

// ErrorResponse for API errors
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

package model

import (
	"encoding/json"
	"time"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is a scheduled unit of work loaded from configuration.
type Job struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Spec    string          `json:"spec"`
	Timeout time.Duration   `json:"timeout"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JobRun records one execution of a job.
type JobRun struct {
	JobName      string     `json:"job_name"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	ExitCode     int32      `json:"exit_code"`
	Output       string     `json:"output,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type JobStatus struct {
	Job
	NextRun *time.Time `json:"next_run,omitempty"`
	LastRun *JobRun    `json:"last_run,omitempty"`
}

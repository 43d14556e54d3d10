package models

import "time"

// JobEvent represents a state transition event for a job
type JobEvent struct {
	ID         int64
	JobID      string
	At         time.Time
	FromStatus *ServerStatus
	ToStatus   ServerStatus
	Reason     string
	Meta       map[string]interface{}
}

// ArtifactType represents the type of job artifact
type ArtifactType string

const (
	ArtifactTypeModel   ArtifactType = "model"
	ArtifactTypeMetrics ArtifactType = "metrics"
)

// JobArtifact represents a job artifact (saved model, metrics export, ...)
type JobArtifact struct {
	ID        int64
	JobID     string
	Type      ArtifactType
	URI       string
	CreatedAt time.Time
	Meta      map[string]interface{}
}

// LogLevel classifies a user-visible activity entry
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// LogEntry is one line of the monitor's activity log
type LogEntry struct {
	At      time.Time
	Level   LogLevel
	Message string
}

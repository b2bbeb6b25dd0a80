package models

import (
	"encoding/json"
	"time"
)

type LogLevel string

const (
	LevelInfo     LogLevel = "info"
	LevelWarn     LogLevel = "warn"
	LevelError    LogLevel = "error"
	LevelDebug    LogLevel = "debug"
	LevelDatabase LogLevel = "database"
	LevelTimeout  LogLevel = "timeout"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// LogEntry is an append-only audit record.
type LogEntry struct {
	ID             string          `json:"id"`
	Level          LogLevel        `json:"level"`
	Message        string          `json:"message"`
	Description    string          `json:"description,omitempty"`
	Severity       Severity        `json:"severity"`
	Action         string          `json:"action,omitempty"`
	Resource       string          `json:"resource,omitempty"`
	ResourceID     string          `json:"resourceId,omitempty"`
	OldData        json.RawMessage `json:"oldData,omitempty"`
	NewData        json.RawMessage `json:"newData,omitempty"`
	UserID         string          `json:"userId,omitempty"`
	Username       string          `json:"username,omitempty"`
	IP             string          `json:"ip,omitempty"`
	UserAgent      string          `json:"userAgent,omitempty"`
	ResponseTimeMs int64           `json:"responseTimeMs,omitempty"`
	StatusCode     int             `json:"statusCode,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// LogFilter narrows log listings. Zero values match everything.
type LogFilter struct {
	Level    LogLevel
	Severity Severity
	Limit    int
}

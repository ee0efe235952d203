package store

import "time"

// Session statuses. A session is created in-process and moved exactly once
// to a terminal status.
const (
	SessionInProcess = "in_process"
	SessionSuccess   = "success"
	SessionError     = "error"
)

// UploadedFile statuses written by the pipeline. Encoding statuses
// reported by the platform (e.g. "ready", "processing") are stored as-is.
const (
	FileStatusUploaded = "uploaded"
	FileStatusError    = "error"
	FileStatusFailed   = "failed"
)

// Session records one pipeline run.
type Session struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}

// UploadedFile tracks one video handled within a session.
type UploadedFile struct {
	ID           int64     `json:"id"`
	SessionID    int64     `json:"session_id"`
	VideoID      string    `json:"video_id"`
	Name         string    `json:"name"`
	OriginalPath string    `json:"original_path"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

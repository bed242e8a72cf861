package domain

import "encoding/json"

// Job status constants
const (
	JobStatusPending   = "PENDING"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
)

// Job represents a claimed job row handed to a domain handler.
// Progress is maintained by the worker and never decreases; AttemptsMade
// is maintained by the broker/storage layer and is read-only here.
type Job struct {
	JobID        string
	Type         JobType
	Queue        Queue
	TenantID     string
	UserID       string
	Payload      json.RawMessage
	Progress     int
	AttemptsMade int
	MaxRetries   int
	Status       string
	WorkerID     string
}

// JobMessage is the broker transport envelope for a job.
type JobMessage struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
}

// Contact is a normalized contact record flowing through import
// validation, batching and campaign dispatch.
type Contact struct {
	Name     string            `json:"name"`
	Phone    string            `json:"phone"`
	Email    string            `json:"email,omitempty"`
	Tags     []string          `json:"tags"`
	Metadata map[string]string `json:"metadata"`
}

// JobError is one bounded error sample entry in a job result.
type JobError struct {
	// Origin is "validation" or "insertion".
	Origin string `json:"origin"`
	// Row is the source row number for validation errors, -1 otherwise.
	Row int `json:"row,omitempty"`
	// Batch is the zero-based batch index for insertion errors, -1 otherwise.
	Batch   int    `json:"batch,omitempty"`
	Message string `json:"message"`
}

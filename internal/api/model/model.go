package model

import (
	"database/sql"
	"time"
)

// Job is the jobs table row as seen by the API service.
type Job struct {
	JobID          string         `db:"job_id"`
	IdempotencyKey string         `db:"idempotency_key"`
	TenantID       string         `db:"tenant_id"`
	UserID         string         `db:"user_id"`
	JobType        string         `db:"job_type"`
	QueueName      string         `db:"queue_name"`
	Payload        string         `db:"payload"`
	Status         string         `db:"status"`
	Progress       int            `db:"progress"`
	AttemptsMade   int            `db:"attempts_made"`
	MaxRetries     int            `db:"max_retries"`
	Result         sql.NullString `db:"result"`
	ErrorMessage   sql.NullString `db:"error_message"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

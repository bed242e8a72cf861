package dto

// CreateImportRequest enqueues a process_file job on the import queue.
type CreateImportRequest struct {
	IdempotencyKey string            `json:"idempotency_key" binding:"required"`
	TenantID       string            `json:"tenant_id" binding:"required"`
	UserID         string            `json:"user_id" binding:"required"`
	FilePath       string            `json:"file_path" binding:"required"`
	FileType       string            `json:"file_type"`
	FieldMapping   map[string]string `json:"field_mapping"`
}

// CreateReportRequest enqueues one of the report-domain jobs.
type CreateReportRequest struct {
	IdempotencyKey string            `json:"idempotency_key" binding:"required"`
	TenantID       string            `json:"tenant_id" binding:"required"`
	UserID         string            `json:"user_id"`
	ReportType     string            `json:"report_type" binding:"required"`
	CampaignID     string            `json:"campaign_id"`
	DateFrom       string            `json:"date_from"`
	DateTo         string            `json:"date_to"`
	Filters        map[string]string `json:"filters"`
	Format         string            `json:"format"`
	Period         string            `json:"period"`
}

// DispatchCampaignRequest enqueues a dispatch_campaign job.
type DispatchCampaignRequest struct {
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
	TenantID       string `json:"tenant_id" binding:"required"`
	UserID         string `json:"user_id" binding:"required"`
	TemplateID     string `json:"template_id"`
}

// SendTestMessageRequest enqueues a send_test_message job for one phone.
type SendTestMessageRequest struct {
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
	TenantID       string `json:"tenant_id" binding:"required"`
	UserID         string `json:"user_id" binding:"required"`
	Phone          string `json:"phone" binding:"required"`
}

type ListJobsRequest struct {
	TenantID string `form:"tenant_id"`
	UserID   string `form:"user_id"`
	JobType  string `form:"job_type"`
	Queue    string `form:"queue"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID          string `json:"job_id"`
	IdempotencyKey string `json:"idempotency_key"`
	TenantID       string `json:"tenant_id"`
	UserID         string `json:"user_id"`
	JobType        string `json:"job_type"`
	Queue          string `json:"queue"`
	Status         string `json:"status"`
	Progress       int    `json:"progress"`
	AttemptsMade   int    `json:"attempts_made"`
	Result         string `json:"result,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

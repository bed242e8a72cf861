package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zaptalk/zaptalk-be/internal/api/dto"
	"github.com/zaptalk/zaptalk-be/internal/api/model"
	"github.com/zaptalk/zaptalk-be/internal/api/storage"
	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

const defaultMaxRetries = 3

// enqueueJob creates the job row and publishes its broker envelope to the
// domain queue. The row is created first so a consumer can always claim it.
func (h *JobHandler) enqueueJob(c *gin.Context, idempotencyKey, tenantID, userID string, jobType domain.JobType, queue domain.Queue, payload any) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal job payload", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	job := model.Job{
		JobID:          uuid.New().String(),
		IdempotencyKey: idempotencyKey,
		TenantID:       tenantID,
		UserID:         userID,
		JobType:        string(jobType),
		QueueName:      string(queue),
		Payload:        string(payloadJSON),
		Status:         domain.JobStatusPending,
		Progress:       0,
		AttemptsMade:   0,
		MaxRetries:     defaultMaxRetries,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := h.storage.CreateJob(c.Request.Context(), &job); err != nil {
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	message, err := json.Marshal(domain.JobMessage{JobID: job.JobID})
	if err != nil {
		h.logger.Error("Failed to marshal job message", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue job",
		})
		return
	}

	err = h.rabbitClient.PublishWithRetry(c.Request.Context(), string(queue), message, "application/json")
	if err != nil {
		h.logger.Error("Failed to publish job message",
			slog.String("job_id", job.JobID),
			slog.String("queue", string(queue)),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue job",
		})
		return
	}

	h.logger.Info("Job enqueued",
		slog.String("job_id", job.JobID),
		slog.String("job_type", job.JobType),
		slog.String("queue", job.QueueName),
		slog.String("tenant_id", job.TenantID),
	)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":          job.JobID,
		"idempotency_key": job.IdempotencyKey,
		"tenant_id":       job.TenantID,
		"user_id":         job.UserID,
		"job_type":        job.JobType,
		"queue":           job.QueueName,
		"status":          job.Status,
		"created_at":      job.CreatedAt,
	})
}

// CreateImport handles POST /api/v1/imports
// Enqueues a process_file job on the import queue
func (h *JobHandler) CreateImport(c *gin.Context) {
	h.logger.Info("CreateImport called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)

	var req dto.CreateImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	payload := domain.ProcessFilePayload{
		ImportID:     uuid.New().String(),
		UserID:       req.UserID,
		TenantID:     req.TenantID,
		FilePath:     req.FilePath,
		FileType:     req.FileType,
		FieldMapping: req.FieldMapping,
	}

	h.enqueueJob(c, req.IdempotencyKey, req.TenantID, req.UserID, domain.TypeProcessFile, domain.QueueImport, payload)
}

// CreateReport handles POST /api/v1/reports
// Enqueues one of the report-domain jobs based on report_type
func (h *JobHandler) CreateReport(c *gin.Context) {
	h.logger.Info("CreateReport called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)

	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	jobType := domain.JobType(req.ReportType)

	var payload any
	switch jobType {
	case domain.TypeCampaignReport:
		if req.CampaignID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "campaign_id is required for campaign_report",
			})
			return
		}
		payload = domain.CampaignReportPayload{
			ReportID:   uuid.New().String(),
			UserID:     req.UserID,
			TenantID:   req.TenantID,
			CampaignID: req.CampaignID,
			Format:     req.Format,
		}
	case domain.TypeAnalyticsReport:
		payload = domain.AnalyticsReportPayload{
			ReportID: uuid.New().String(),
			TenantID: req.TenantID,
			DateFrom: req.DateFrom,
			DateTo:   req.DateTo,
			Format:   req.Format,
		}
	case domain.TypeExportContacts, domain.TypeExportMessages:
		payload = domain.ExportPayload{
			ExportID: uuid.New().String(),
			UserID:   req.UserID,
			TenantID: req.TenantID,
			Filters:  req.Filters,
			Format:   req.Format,
		}
	case domain.TypeUsageReport:
		payload = domain.UsageReportPayload{
			ReportID: uuid.New().String(),
			TenantID: req.TenantID,
			Period:   req.Period,
		}
	default:
		h.logger.Error("Unknown report type", slog.String("report_type", req.ReportType))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown report_type: " + req.ReportType,
		})
		return
	}

	h.enqueueJob(c, req.IdempotencyKey, req.TenantID, req.UserID, jobType, domain.QueueReport, payload)
}

// DispatchCampaign handles POST /api/v1/campaigns/:campaign_id/dispatch
// Enqueues a dispatch_campaign job on the campaign queue
func (h *JobHandler) DispatchCampaign(c *gin.Context) {
	campaignID := c.Param("campaign_id")

	h.logger.Info("DispatchCampaign called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("campaign_id", campaignID),
	)

	if _, err := uuid.Parse(campaignID); err != nil {
		h.logger.Error("Invalid campaign_id format", slog.String("campaign_id", campaignID), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "campaign_id must be a valid UUID",
		})
		return
	}

	var req dto.DispatchCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	payload := domain.DispatchCampaignPayload{
		CampaignID: campaignID,
		TenantID:   req.TenantID,
		UserID:     req.UserID,
		TemplateID: req.TemplateID,
	}

	h.enqueueJob(c, req.IdempotencyKey, req.TenantID, req.UserID, domain.TypeDispatchCampaign, domain.QueueCampaign, payload)
}

// SendTestMessage handles POST /api/v1/campaigns/:campaign_id/test
// Enqueues a send_test_message job on the campaign queue
func (h *JobHandler) SendTestMessage(c *gin.Context) {
	campaignID := c.Param("campaign_id")

	h.logger.Info("SendTestMessage called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("campaign_id", campaignID),
	)

	if _, err := uuid.Parse(campaignID); err != nil {
		h.logger.Error("Invalid campaign_id format", slog.String("campaign_id", campaignID), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "campaign_id must be a valid UUID",
		})
		return
	}

	var req dto.SendTestMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	payload := domain.SendTestMessagePayload{
		CampaignID: campaignID,
		TenantID:   req.TenantID,
		UserID:     req.UserID,
		Phone:      req.Phone,
	}

	h.enqueueJob(c, req.IdempotencyKey, req.TenantID, req.UserID, domain.TypeSendTestMessage, domain.QueueCampaign, payload)
}

// GetJob handles GET /api/v1/jobs/:job_id
// Retrieves detailed information about a specific job
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id is required",
		})
		return
	}

	h.logger.Info("GetJob called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("job_id", jobID),
	)

	if _, err := uuid.Parse(jobID); err != nil {
		h.logger.Error("Invalid job_id format", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":          job.JobID,
		"idempotency_key": job.IdempotencyKey,
		"tenant_id":       job.TenantID,
		"user_id":         job.UserID,
		"job_type":        job.JobType,
		"queue":           job.QueueName,
		"status":          job.Status,
		"progress":        job.Progress,
		"attempts_made":   job.AttemptsMade,
		"result":          job.Result.String,
		"error_message":   job.ErrorMessage.String,
		"created_at":      job.CreatedAt,
		"updated_at":      job.UpdatedAt,
	})
}

// ListJobs handles GET /api/v1/jobs
// Lists jobs with optional filtering and cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	h.logger.Info("ListJobs called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
	)

	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	h.logger.Debug("Decoded cursor", slog.Any("cursor", cursor))

	filter := storage.JobFilter{
		TenantID: req.TenantID,
		UserID:   req.UserID,
		JobType:  req.JobType,
		Queue:    req.Queue,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.storage.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i, job := range jobs {
		jobResponse[i] = dto.JobDTO{
			JobID:          job.JobID,
			IdempotencyKey: job.IdempotencyKey,
			TenantID:       job.TenantID,
			UserID:         job.UserID,
			JobType:        job.JobType,
			Queue:          job.QueueName,
			Status:         job.Status,
			Progress:       job.Progress,
			AttemptsMade:   job.AttemptsMade,
			Result:         job.Result.String,
			ErrorMessage:   job.ErrorMessage.String,
			CreatedAt:      job.CreatedAt.Format(time.RFC3339),
			UpdatedAt:      job.UpdatedAt.Format(time.RFC3339),
		}
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		cursorObj := storage.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		}
		nextCursor, err = EncodeJobCursor(&cursorObj)
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

// Package storage implements the worker-side persistence collaborators:
// job claiming and bookkeeping, batch contact insertion, the report
// queries and the campaign message outbox.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimJob attempts to claim a job using optimistic locking. The claim
// also bumps attempts_made, so the returned job carries the attempt count
// of the run that is about to start.
func (s *Storage) ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    worker_id = $2,
		    attempts_made = attempts_made + 1,
		    started_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status = $4
		RETURNING job_id, job_type, queue_name, tenant_id, user_id, payload, progress, attempts_made, max_retries
	`

	var job domain.Job
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, domain.JobStatusRunning, workerID, jobID, domain.JobStatusPending).Scan(
		&job.JobID,
		&job.Type,
		&job.Queue,
		&job.TenantID,
		&job.UserID,
		&payload,
		&job.Progress,
		&job.AttemptsMade,
		&job.MaxRetries,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Warn("Failed to claim job - already claimed or not found",
				slog.String("job_id", jobID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrJobAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.Payload = payload
	job.Status = domain.JobStatusRunning
	job.WorkerID = workerID

	s.logger.Info("Job claimed successfully",
		slog.String("job_id", jobID),
		slog.String("worker_id", workerID),
		slog.String("job_type", string(job.Type)),
	)

	return &job, nil
}

// UpdateJobStatus updates the job status and optionally sets result/error
func (s *Storage) UpdateJobStatus(ctx context.Context, jobID, status string, result any, errorMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1::text,
			result = $2,
			error_message = $3,
			completed_at = CASE
				WHEN $1::text IN ($4::text, $5::text) THEN NOW()
				ELSE NULL
			END,
			updated_at = NOW()
		WHERE job_id = $6
	`

	var resultJSON []byte
	var err error
	if result != nil {
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, query, status, resultJSON, errorMsg, domain.JobStatusCompleted, domain.JobStatusFailed, jobID)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)

	return nil
}

// UpdateJobProgress records job progress. GREATEST keeps the stored value
// monotonic even if updates arrive out of order.
func (s *Storage) UpdateJobProgress(ctx context.Context, jobID string, progress int) error {
	query := `
		UPDATE jobs
		SET progress = GREATEST(progress, $2),
		    updated_at = NOW()
		WHERE job_id = $1 AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, jobID, progress, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Job progress update - no rows affected (job may not be running)",
			slog.String("job_id", jobID),
		)
	}

	return nil
}

// InsertContacts persists one validated contact batch. Rows colliding
// with an existing (tenant_id, phone) are skipped and counted as failed.
func (s *Storage) InsertContacts(ctx context.Context, tenantID, userID string, contacts []domain.Contact) (int, int, error) {
	if len(contacts) == 0 {
		return 0, 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO contacts (contact_id, tenant_id, created_by, name, phone, email, tags, metadata, created_at, updated_at)
		VALUES `)

	args := make([]any, 0, len(contacts)*8)
	for i, c := range contacts {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 8
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, NOW(), NOW())",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)

		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to marshal contact metadata: %w", err)
		}
		args = append(args, uuid.New().String(), tenantID, userID, c.Name, c.Phone, c.Email, pq.Array(c.Tags), metadata)
	}
	sb.WriteString(` ON CONFLICT (tenant_id, phone) DO NOTHING`)

	result, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to insert contact batch: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	inserted := int(rowsAffected)
	return inserted, len(contacts) - inserted, nil
}

// CampaignStats aggregates delivery counters for one campaign.
func (s *Storage) CampaignStats(ctx context.Context, tenantID, campaignID string) (*domain.CampaignStats, error) {
	query := `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE status = 'delivered') AS delivered,
		       COUNT(*) FILTER (WHERE status = 'failed') AS failed
		FROM messages
		WHERE tenant_id = $1 AND campaign_id = $2
	`

	var total, delivered, failed int
	if err := s.db.QueryRowContext(ctx, query, tenantID, campaignID).Scan(&total, &delivered, &failed); err != nil {
		return nil, fmt.Errorf("failed to query campaign stats: %w", err)
	}

	stats := &domain.CampaignStats{
		TotalMessages: total,
		Delivered:     delivered,
		Failed:        failed,
	}
	if total > 0 {
		stats.DeliveryRate = float64(delivered) / float64(total)
	}
	return stats, nil
}

// AnalyticsSummary aggregates tenant-wide counters for a date range.
func (s *Storage) AnalyticsSummary(ctx context.Context, tenantID, dateFrom, dateTo string) (*domain.AnalyticsSummary, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM messages
			  WHERE tenant_id = $1 AND created_at >= $2::date AND created_at < $3::date + 1),
			(SELECT COUNT(*) FROM messages
			  WHERE tenant_id = $1 AND status = 'delivered' AND created_at >= $2::date AND created_at < $3::date + 1),
			(SELECT COUNT(*) FROM campaigns
			  WHERE tenant_id = $1 AND started_at >= $2::date AND started_at < $3::date + 1),
			(SELECT COUNT(*) FROM contacts
			  WHERE tenant_id = $1 AND created_at >= $2::date AND created_at < $3::date + 1)
	`

	var summary domain.AnalyticsSummary
	err := s.db.QueryRowContext(ctx, query, tenantID, dateFrom, dateTo).Scan(
		&summary.MessagesSent,
		&summary.MessagesDelivered,
		&summary.CampaignsRun,
		&summary.NewContacts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics summary: %w", err)
	}

	if summary.MessagesSent > 0 {
		summary.DeliveryRate = float64(summary.MessagesDelivered) / float64(summary.MessagesSent)
	}
	return &summary, nil
}

// ContactRows fetches a tenant's contacts for export.
func (s *Storage) ContactRows(ctx context.Context, tenantID string, filters map[string]string) ([]string, [][]string, error) {
	query := `
		SELECT contact_id, name, phone, COALESCE(email, ''), created_at
		FROM contacts
		WHERE tenant_id = $1
	`
	args := []any{tenantID}

	if tag := filters["tag"]; tag != "" {
		query += ` AND $2 = ANY(tags)`
		args = append(args, tag)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query contacts for export: %w", err)
	}
	defer rows.Close()

	header := []string{"contact_id", "name", "phone", "email", "created_at"}
	var out [][]string
	for rows.Next() {
		var id, name, phone, email, createdAt string
		if err := rows.Scan(&id, &name, &phone, &email, &createdAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan contact row: %w", err)
		}
		out = append(out, []string{id, name, phone, email, createdAt})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate contact rows: %w", err)
	}
	return header, out, nil
}

// MessageRows fetches a tenant's messages for export.
func (s *Storage) MessageRows(ctx context.Context, tenantID string, filters map[string]string) ([]string, [][]string, error) {
	query := `
		SELECT message_id, campaign_id, phone, status, created_at
		FROM messages
		WHERE tenant_id = $1
	`
	args := []any{tenantID}

	if campaignID := filters["campaign_id"]; campaignID != "" {
		query += ` AND campaign_id = $2`
		args = append(args, campaignID)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query messages for export: %w", err)
	}
	defer rows.Close()

	header := []string{"message_id", "campaign_id", "phone", "status", "created_at"}
	var out [][]string
	for rows.Next() {
		var id, campaignID, phone, status, createdAt string
		if err := rows.Scan(&id, &campaignID, &phone, &status, &createdAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		out = append(out, []string{id, campaignID, phone, status, createdAt})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return header, out, nil
}

// UsageTotals aggregates a tenant's billing-period usage counters.
// Period is YYYY-MM.
func (s *Storage) UsageTotals(ctx context.Context, tenantID, period string) (*domain.UsageTotals, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM messages
			  WHERE tenant_id = $1 AND to_char(created_at, 'YYYY-MM') = $2),
			(SELECT COUNT(*) FROM campaigns
			  WHERE tenant_id = $1 AND to_char(started_at, 'YYYY-MM') = $2),
			(SELECT COUNT(*) FROM contacts WHERE tenant_id = $1)
	`

	var usage domain.UsageTotals
	err := s.db.QueryRowContext(ctx, query, tenantID, period).Scan(
		&usage.Messages,
		&usage.Campaigns,
		&usage.Contacts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage totals: %w", err)
	}
	return &usage, nil
}

// CampaignAudience returns the recipients of a campaign.
func (s *Storage) CampaignAudience(ctx context.Context, tenantID, campaignID string) ([]domain.Contact, error) {
	query := `
		SELECT c.name, c.phone, COALESCE(c.email, '')
		FROM contacts c
		JOIN campaign_recipients cr ON cr.contact_id = c.contact_id
		WHERE cr.campaign_id = $1 AND c.tenant_id = $2
		ORDER BY c.created_at
	`

	rows, err := s.db.QueryContext(ctx, query, campaignID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign audience: %w", err)
	}
	defer rows.Close()

	var audience []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.Name, &c.Phone, &c.Email); err != nil {
			return nil, fmt.Errorf("failed to scan audience row: %w", err)
		}
		audience = append(audience, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audience rows: %w", err)
	}
	return audience, nil
}

// SendBatch enqueues one message row per recipient into the delivery
// outbox. Downstream delivery infrastructure picks the rows up from
// there, so a batch is "sent" once its rows are durably queued.
func (s *Storage) SendBatch(ctx context.Context, tenantID, campaignID, templateID string, recipients []domain.Contact) (int, int, error) {
	if len(recipients) == 0 {
		return 0, 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO messages (message_id, tenant_id, campaign_id, template_id, phone, status, created_at)
		VALUES `)

	args := make([]any, 0, len(recipients)*5)
	for i, r := range recipients {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, 'queued', NOW())",
			base+1, base+2, base+3, base+4, base+5)
		args = append(args, uuid.New().String(), tenantID, campaignID, templateID, r.Phone)
	}

	result, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to enqueue message batch: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	sent := int(rowsAffected)
	return sent, len(recipients) - sent, nil
}

// SendOne enqueues a single test message and returns its id.
func (s *Storage) SendOne(ctx context.Context, tenantID, campaignID, phone string) (string, error) {
	messageID := uuid.New().String()
	query := `
		INSERT INTO messages (message_id, tenant_id, campaign_id, phone, status, created_at)
		VALUES ($1, $2, $3, $4, 'queued', NOW())
	`
	if _, err := s.db.ExecContext(ctx, query, messageID, tenantID, campaignID, phone); err != nil {
		return "", fmt.Errorf("failed to enqueue test message: %w", err)
	}
	return messageID, nil
}

// Package reporter implements the report domain: report generation and
// contact/message export job handlers.
package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/zaptalk/zaptalk-be/internal/jobs"
	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

// ExportRow is one record of an export document.
type ExportRow = []string

// Store fetches the business data behind reports and exports.
type Store interface {
	CampaignStats(ctx context.Context, tenantID, campaignID string) (*domain.CampaignStats, error)
	AnalyticsSummary(ctx context.Context, tenantID, dateFrom, dateTo string) (*domain.AnalyticsSummary, error)
	ContactRows(ctx context.Context, tenantID string, filters map[string]string) (header []string, rows []ExportRow, err error)
	MessageRows(ctx context.Context, tenantID string, filters map[string]string) (header []string, rows []ExportRow, err error)
	UsageTotals(ctx context.Context, tenantID, period string) (*domain.UsageTotals, error)
}

// Handlers holds the report domain job handlers and their collaborators.
type Handlers struct {
	store     Store
	generator Generator
	logger    *slog.Logger
}

// NewHandlers creates the report handlers.
func NewHandlers(store Store, generator Generator, logger *slog.Logger) *Handlers {
	return &Handlers{store: store, generator: generator, logger: logger}
}

// Router builds the report domain router with its closed set of job types.
func (h *Handlers) Router() *jobs.Router {
	r := jobs.NewRouter(domain.QueueReport)
	r.Handle(domain.TypeCampaignReport, h.CampaignReport)
	r.Handle(domain.TypeAnalyticsReport, h.AnalyticsReport)
	r.Handle(domain.TypeExportContacts, h.ExportContacts)
	r.Handle(domain.TypeExportMessages, h.ExportMessages)
	r.Handle(domain.TypeUsageReport, h.UsageReport)
	return r
}

// CampaignReport builds a delivery report for one campaign.
func (h *Handlers) CampaignReport(ctx context.Context, job *domain.Job, report jobs.ProgressFunc) (any, error) {
	var p domain.CampaignReportPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	report(10)

	stats, err := h.store.CampaignStats(ctx, p.TenantID, p.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch campaign stats: %w", err)
	}
	report(60)

	header := []string{"campaign_id", "total_messages", "delivered", "failed", "delivery_rate"}
	rows := []ExportRow{{
		p.CampaignID,
		strconv.Itoa(stats.TotalMessages),
		strconv.Itoa(stats.Delivered),
		strconv.Itoa(stats.Failed),
		strconv.FormatFloat(stats.DeliveryRate, 'f', 2, 64),
	}}

	path, err := h.generator.Generate(ctx, "campaign-report-"+p.ReportID, p.Format, header, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to generate campaign report: %w", err)
	}
	report(100)

	return &domain.CampaignReportResult{
		ReportID:    p.ReportID,
		CampaignID:  p.CampaignID,
		Format:      p.Format,
		Path:        path,
		GeneratedAt: time.Now().UTC(),
		Stats:       *stats,
	}, nil
}

// AnalyticsReport builds a tenant-wide summary for a date range.
func (h *Handlers) AnalyticsReport(ctx context.Context, job *domain.Job, report jobs.ProgressFunc) (any, error) {
	var p domain.AnalyticsReportPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	report(10)

	summary, err := h.store.AnalyticsSummary(ctx, p.TenantID, p.DateFrom, p.DateTo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch analytics summary: %w", err)
	}
	report(60)

	header := []string{"messages_sent", "messages_delivered", "campaigns_run", "new_contacts", "delivery_rate"}
	rows := []ExportRow{{
		strconv.Itoa(summary.MessagesSent),
		strconv.Itoa(summary.MessagesDelivered),
		strconv.Itoa(summary.CampaignsRun),
		strconv.Itoa(summary.NewContacts),
		strconv.FormatFloat(summary.DeliveryRate, 'f', 2, 64),
	}}

	path, err := h.generator.Generate(ctx, "analytics-report-"+p.ReportID, p.Format, header, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to generate analytics report: %w", err)
	}
	report(100)

	return &domain.AnalyticsReportResult{
		ReportID: p.ReportID,
		Format:   p.Format,
		Path:     path,
		Period:   p.DateFrom + "/" + p.DateTo,
		Summary:  *summary,
	}, nil
}

// ExportContacts exports the tenant's contacts matching the filters.
func (h *Handlers) ExportContacts(ctx context.Context, job *domain.Job, report jobs.ProgressFunc) (any, error) {
	return h.export(ctx, job, report, "contacts", h.store.ContactRows)
}

// ExportMessages exports the tenant's messages matching the filters.
func (h *Handlers) ExportMessages(ctx context.Context, job *domain.Job, report jobs.ProgressFunc) (any, error) {
	return h.export(ctx, job, report, "messages", h.store.MessageRows)
}

func (h *Handlers) export(ctx context.Context, job *domain.Job, report jobs.ProgressFunc, kind string,
	fetch func(ctx context.Context, tenantID string, filters map[string]string) ([]string, []ExportRow, error)) (any, error) {

	var p domain.ExportPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	report(10)

	header, rows, err := fetch(ctx, p.TenantID, p.Filters)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s for export: %w", kind, err)
	}
	report(60)

	path, err := h.generator.Generate(ctx, kind+"-export-"+p.ExportID, p.Format, header, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s export: %w", kind, err)
	}
	report(100)

	h.logger.Info("Export generated",
		slog.String("export_id", p.ExportID),
		slog.String("kind", kind),
		slog.Int("total_records", len(rows)),
		slog.String("path", path),
	)

	return &domain.ExportResult{
		ExportID:     p.ExportID,
		Format:       p.Format,
		Path:         path,
		TotalRecords: len(rows),
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

// UsageReport aggregates the tenant's usage counters for a billing period.
func (h *Handlers) UsageReport(ctx context.Context, job *domain.Job, report jobs.ProgressFunc) (any, error) {
	var p domain.UsageReportPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	report(20)

	usage, err := h.store.UsageTotals(ctx, p.TenantID, p.Period)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch usage totals: %w", err)
	}
	report(100)

	return &domain.UsageReportResult{
		ReportID: p.ReportID,
		Period:   p.Period,
		Usage:    *usage,
	}, nil
}

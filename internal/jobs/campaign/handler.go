// Package campaign implements the campaign domain: bulk message dispatch
// through the batch engine and single-recipient test sends.
package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/zaptalk/zaptalk-be/internal/jobs"
	"github.com/zaptalk/zaptalk-be/internal/jobs/batch"
	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

// Store fetches the audience of a campaign.
type Store interface {
	CampaignAudience(ctx context.Context, tenantID, campaignID string) ([]domain.Contact, error)
}

// Sender delivers rendered campaign messages. SendBatch reports how many
// of the batch were accepted by the messaging provider and how many were
// rejected; a returned error fails the whole batch, not the job.
type Sender interface {
	SendBatch(ctx context.Context, tenantID, campaignID, templateID string, recipients []domain.Contact) (sent int, failed int, err error)
	SendOne(ctx context.Context, tenantID, campaignID, phone string) (messageID string, err error)
}

// Handlers holds the campaign domain job handlers and their collaborators.
type Handlers struct {
	store     Store
	sender    Sender
	processor *batch.Processor
	logger    *slog.Logger
}

// NewHandlers creates the campaign handlers.
func NewHandlers(store Store, sender Sender, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:     store,
		sender:    sender,
		processor: batch.NewProcessor(domain.BatchSize, logger),
		logger:    logger,
	}
}

// Router builds the campaign domain router with its closed set of job types.
func (h *Handlers) Router() *jobs.Router {
	r := jobs.NewRouter(domain.QueueCampaign)
	r.Handle(domain.TypeDispatchCampaign, h.DispatchCampaign)
	r.Handle(domain.TypeSendTestMessage, h.SendTestMessage)
	return r
}

// DispatchCampaign sends a campaign to its full audience in sequential
// batches (progress 10-90%). A failed batch counts all of its recipients
// as failed and the dispatch continues.
func (h *Handlers) DispatchCampaign(ctx context.Context, job *domain.Job, report jobs.ProgressFunc) (any, error) {
	var p domain.DispatchCampaignPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	audience, err := h.store.CampaignAudience(ctx, p.TenantID, p.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch campaign audience: %w", err)
	}
	report(10)

	h.logger.Info("Dispatching campaign",
		slog.String("job_id", job.JobID),
		slog.String("campaign_id", p.CampaignID),
		slog.Int("recipients", len(audience)),
	)

	sink := batch.SinkFunc(func(ctx context.Context, tenantID, _ string, recipients []domain.Contact) (int, int, error) {
		return h.sender.SendBatch(ctx, tenantID, p.CampaignID, p.TemplateID, recipients)
	})

	res := h.processor.Run(ctx, audience, p.TenantID, p.UserID, sink, report, 10, 80)
	report(100)

	return &domain.DispatchCampaignResult{
		CampaignID:      p.CampaignID,
		TotalRecipients: len(audience),
		Sent:            res.Inserted,
		Failed:          res.Failed,
		Errors:          res.Errors,
	}, nil
}

// SendTestMessage delivers one probe message to a single phone number.
func (h *Handlers) SendTestMessage(ctx context.Context, job *domain.Job, report jobs.ProgressFunc) (any, error) {
	var p domain.SendTestMessagePayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	report(20)

	messageID, err := h.sender.SendOne(ctx, p.TenantID, p.CampaignID, p.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to send test message: %w", err)
	}
	report(100)

	return &domain.SendTestMessageResult{
		CampaignID: p.CampaignID,
		To:         p.Phone,
		MessageID:  messageID,
	}, nil
}

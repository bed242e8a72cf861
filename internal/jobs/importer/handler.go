// Package importer implements the import domain: contact validation and
// the file-import job handlers.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/zaptalk/zaptalk-be/internal/jobs"
	"github.com/zaptalk/zaptalk-be/internal/jobs/batch"
	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

// ContactStore persists validated contact batches.
type ContactStore interface {
	InsertContacts(ctx context.Context, tenantID, userID string, contacts []domain.Contact) (inserted int, failed int, err error)
}

// Handlers holds the import domain job handlers and their collaborators.
type Handlers struct {
	parser    Parser
	store     ContactStore
	processor *batch.Processor
	logger    *slog.Logger
}

// NewHandlers creates the import handlers.
func NewHandlers(parser Parser, store ContactStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		parser:    parser,
		store:     store,
		processor: batch.NewProcessor(domain.BatchSize, logger),
		logger:    logger,
	}
}

// Router builds the import domain router with its closed set of job types.
func (h *Handlers) Router() *jobs.Router {
	r := jobs.NewRouter(domain.QueueImport)
	r.Handle(domain.TypeProcessFile, h.ProcessFile)
	r.Handle(domain.TypeValidateContacts, h.ValidateContacts)
	r.Handle(domain.TypeInsertBatch, h.InsertBatch)
	return r
}

// ProcessFile runs the full import pipeline: parse, validate (0-30%),
// insert in batches (30-90%), finalize (90-100%). Per-row validation
// failures and per-batch insertion failures land in the result; only an
// unreadable input source fails the job.
func (h *Handlers) ProcessFile(ctx context.Context, job *domain.Job, report jobs.ProgressFunc) (any, error) {
	var p domain.ProcessFilePayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	h.logger.Info("Starting file import",
		slog.String("job_id", job.JobID),
		slog.String("import_id", p.ImportID),
		slog.String("file_path", p.FilePath),
	)

	raw, err := h.parser.Parse(ctx, p.FilePath, p.FileType, p.FieldMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to parse import file: %w", err)
	}

	validated := ValidateContacts(raw)
	report(30)

	inserted := h.processor.Run(ctx, validated.Valid, p.TenantID, p.UserID,
		batch.SinkFunc(h.store.InsertContacts), report, 30, 60)
	report(90)

	errs := make([]domain.JobError, 0, len(validated.Errors)+len(inserted.Errors))
	errs = append(errs, validated.Errors...)
	errs = append(errs, inserted.Errors...)

	result := &domain.ProcessFileResult{
		ImportID:      p.ImportID,
		TotalParsed:   len(raw),
		TotalValid:    len(validated.Valid),
		TotalInvalid:  len(validated.Invalid),
		TotalInserted: inserted.Inserted,
		TotalFailed:   inserted.Failed,
		Errors:        errs,
	}
	report(100)

	h.logger.Info("File import finished",
		slog.String("import_id", p.ImportID),
		slog.Int("total_parsed", result.TotalParsed),
		slog.Int("total_inserted", result.TotalInserted),
		slog.Int("total_failed", result.TotalFailed),
	)

	return result, nil
}

// ValidateContacts runs only the validation stage over an inline contact
// collection.
func (h *Handlers) ValidateContacts(ctx context.Context, job *domain.Job, report jobs.ProgressFunc) (any, error) {
	var p domain.ValidateContactsPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	res := ValidateContacts(p.Contacts)
	report(100)

	return &domain.ValidateContactsResult{
		Valid:   res.Valid,
		Invalid: res.Invalid,
		Errors:  res.Errors,
	}, nil
}

// InsertBatch persists an inline, already-validated contact collection
// through the batch engine.
func (h *Handlers) InsertBatch(ctx context.Context, job *domain.Job, report jobs.ProgressFunc) (any, error) {
	var p domain.InsertBatchPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	res := h.processor.Run(ctx, p.Contacts, p.TenantID, p.UserID,
		batch.SinkFunc(h.store.InsertContacts), report, 0, 100)

	return &domain.InsertBatchResult{
		Inserted: res.Inserted,
		Failed:   res.Failed,
		Errors:   res.Errors,
	}, nil
}

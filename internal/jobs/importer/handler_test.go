package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

type fakeParser struct {
	contacts []domain.Contact
	err      error
}

func (f *fakeParser) Parse(ctx context.Context, path, fileType string, mapping map[string]string) ([]domain.Contact, error) {
	return f.contacts, f.err
}

type fakeContactStore struct {
	calls   int
	failOn  int // 1-based call number that errors, 0 = never
	batches [][]domain.Contact
}

func (f *fakeContactStore) InsertContacts(ctx context.Context, tenantID, userID string, contacts []domain.Contact) (int, int, error) {
	f.calls++
	f.batches = append(f.batches, contacts)
	if f.failOn != 0 && f.calls == f.failOn {
		return 0, 0, fmt.Errorf("deadlock detected")
	}
	return len(contacts), 0, nil
}

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func importJob(t *testing.T, jobType domain.JobType, payload any) *domain.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &domain.Job{
		JobID:    "7b0d9ad6-0000-4000-8000-000000000001",
		Type:     jobType,
		Queue:    domain.QueueImport,
		TenantID: "tenant-1",
		UserID:   "user-1",
		Payload:  raw,
	}
}

func validContacts(n int) []domain.Contact {
	contacts := make([]domain.Contact, n)
	for i := range contacts {
		contacts[i] = domain.Contact{
			Name:  fmt.Sprintf("contact-%d", i),
			Phone: fmt.Sprintf("55119999%04d", i),
		}
	}
	return contacts
}

func TestHandlers_ProcessFile(t *testing.T) {
	t.Run("full pipeline with one failing batch", func(t *testing.T) {
		parser := &fakeParser{contacts: validContacts(250)}
		store := &fakeContactStore{failOn: 2}
		h := NewHandlers(parser, store, testLog())

		job := importJob(t, domain.TypeProcessFile, domain.ProcessFilePayload{
			ImportID: "import-1",
			TenantID: "tenant-1",
			UserID:   "user-1",
			FilePath: "/uploads/contacts.csv",
		})

		var reported []int
		out, err := h.ProcessFile(context.Background(), job, func(p int) { reported = append(reported, p) })
		require.NoError(t, err)

		res, ok := out.(*domain.ProcessFileResult)
		require.True(t, ok)

		assert.Equal(t, "import-1", res.ImportID)
		assert.Equal(t, 250, res.TotalParsed)
		assert.Equal(t, 250, res.TotalValid)
		assert.Equal(t, 0, res.TotalInvalid)
		assert.Equal(t, 150, res.TotalInserted)
		assert.Equal(t, 100, res.TotalFailed)

		require.Len(t, res.Errors, 1)
		assert.Equal(t, "insertion", res.Errors[0].Origin)
		assert.Equal(t, 1, res.Errors[0].Batch)

		// Checkpoints stay monotonic across the stage boundaries.
		assert.Equal(t, []int{30, 50, 70, 90, 90, 100}, reported)
		assert.Equal(t, 3, store.calls)
	})

	t.Run("invalid rows are excluded before insertion", func(t *testing.T) {
		contacts := validContacts(10)
		contacts[3].Phone = "123"
		contacts[7].Email = "broken"

		parser := &fakeParser{contacts: contacts}
		store := &fakeContactStore{}
		h := NewHandlers(parser, store, testLog())

		job := importJob(t, domain.TypeProcessFile, domain.ProcessFilePayload{ImportID: "import-2"})

		out, err := h.ProcessFile(context.Background(), job, func(int) {})
		require.NoError(t, err)

		res := out.(*domain.ProcessFileResult)
		assert.Equal(t, 10, res.TotalParsed)
		assert.Equal(t, 8, res.TotalValid)
		assert.Equal(t, 2, res.TotalInvalid)
		assert.Equal(t, 8, res.TotalInserted)
		assert.Equal(t, 0, res.TotalFailed)

		require.Len(t, res.Errors, 2)
		assert.Equal(t, "validation", res.Errors[0].Origin)
		assert.Equal(t, 3, res.Errors[0].Row)
		assert.Equal(t, 7, res.Errors[1].Row)
	})

	t.Run("unreadable file fails the job", func(t *testing.T) {
		parser := &fakeParser{err: fmt.Errorf("permission denied")}
		h := NewHandlers(parser, &fakeContactStore{}, testLog())

		job := importJob(t, domain.TypeProcessFile, domain.ProcessFilePayload{ImportID: "import-3"})

		_, err := h.ProcessFile(context.Background(), job, func(int) {})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse import file")
	})

	t.Run("malformed payload", func(t *testing.T) {
		h := NewHandlers(&fakeParser{}, &fakeContactStore{}, testLog())

		job := importJob(t, domain.TypeProcessFile, nil)
		job.Payload = []byte(`{"file_path": 42`)

		_, err := h.ProcessFile(context.Background(), job, func(int) {})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidPayload))
	})
}

func TestHandlers_ValidateContacts(t *testing.T) {
	h := NewHandlers(&fakeParser{}, &fakeContactStore{}, testLog())

	job := importJob(t, domain.TypeValidateContacts, domain.ValidateContactsPayload{
		Contacts: []domain.Contact{
			{Name: "Ana", Phone: "5511999990001"},
			{Name: "Bad", Phone: "12"},
		},
	})

	var reported []int
	out, err := h.ValidateContacts(context.Background(), job, func(p int) { reported = append(reported, p) })
	require.NoError(t, err)

	res := out.(*domain.ValidateContactsResult)
	assert.Len(t, res.Valid, 1)
	assert.Len(t, res.Invalid, 1)
	assert.Len(t, res.Errors, 1)
	assert.Equal(t, []int{100}, reported)
}

func TestHandlers_InsertBatch(t *testing.T) {
	store := &fakeContactStore{}
	h := NewHandlers(&fakeParser{}, store, testLog())

	job := importJob(t, domain.TypeInsertBatch, domain.InsertBatchPayload{
		Contacts: validContacts(150),
		TenantID: "tenant-1",
		UserID:   "user-1",
	})

	var reported []int
	out, err := h.InsertBatch(context.Background(), job, func(p int) { reported = append(reported, p) })
	require.NoError(t, err)

	res := out.(*domain.InsertBatchResult)
	assert.Equal(t, 150, res.Inserted)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 2, store.calls)
	assert.Equal(t, []int{50, 100}, reported)
}

package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeContacts(n int) []domain.Contact {
	contacts := make([]domain.Contact, n)
	for i := range contacts {
		contacts[i] = domain.Contact{
			Name:  fmt.Sprintf("contact-%d", i),
			Phone: fmt.Sprintf("55119999%04d", i),
		}
	}
	return contacts
}

func TestProcessor_NumBatches(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		items    int
		expected int
	}{
		{name: "empty input", size: 100, items: 0, expected: 0},
		{name: "single partial batch", size: 100, items: 1, expected: 1},
		{name: "exactly one batch", size: 100, items: 100, expected: 1},
		{name: "one over a full batch", size: 100, items: 101, expected: 2},
		{name: "two and a half batches", size: 100, items: 250, expected: 3},
		{name: "non-positive size falls back to default", size: 0, items: 250, expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcessor(tt.size, testLogger())
			assert.Equal(t, tt.expected, p.NumBatches(tt.items))
		})
	}
}

func TestProcessor_Run_SequentialBatches(t *testing.T) {
	p := NewProcessor(100, testLogger())

	var batches [][]domain.Contact
	sink := SinkFunc(func(ctx context.Context, tenantID, userID string, items []domain.Contact) (int, int, error) {
		assert.Equal(t, "tenant-1", tenantID)
		assert.Equal(t, "user-1", userID)
		batches = append(batches, items)
		return len(items), 0, nil
	})

	res := p.Run(context.Background(), makeContacts(250), "tenant-1", "user-1", sink, nil, 0, 100)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[1], 100)
	assert.Len(t, batches[2], 50)

	// Order reconstruction: concatenating the batches gives back the input.
	assert.Equal(t, "contact-0", batches[0][0].Name)
	assert.Equal(t, "contact-100", batches[1][0].Name)
	assert.Equal(t, "contact-249", batches[2][49].Name)

	assert.Equal(t, 250, res.Inserted)
	assert.Equal(t, 0, res.Failed)
	assert.Empty(t, res.Errors)
}

func TestProcessor_Run_BatchFailureContinues(t *testing.T) {
	p := NewProcessor(100, testLogger())

	call := 0
	sink := SinkFunc(func(ctx context.Context, tenantID, userID string, items []domain.Contact) (int, int, error) {
		call++
		if call == 2 {
			return 0, 0, fmt.Errorf("connection reset by peer")
		}
		return len(items), 0, nil
	})

	res := p.Run(context.Background(), makeContacts(250), "tenant-1", "user-1", sink, nil, 0, 100)

	// Batches 1 and 3 persist 150 contacts; the whole second batch fails.
	assert.Equal(t, 3, call)
	assert.Equal(t, 150, res.Inserted)
	assert.Equal(t, 100, res.Failed)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "insertion", res.Errors[0].Origin)
	assert.Equal(t, 1, res.Errors[0].Batch)
	assert.Equal(t, -1, res.Errors[0].Row)
	assert.Contains(t, res.Errors[0].Message, "connection reset")
}

func TestProcessor_Run_PartialRejectionsWithinBatch(t *testing.T) {
	p := NewProcessor(100, testLogger())

	sink := SinkFunc(func(ctx context.Context, tenantID, userID string, items []domain.Contact) (int, int, error) {
		// Sink reports duplicates as rejected without erroring.
		return len(items) - 3, 3, nil
	})

	res := p.Run(context.Background(), makeContacts(200), "tenant-1", "user-1", sink, nil, 0, 100)

	assert.Equal(t, 194, res.Inserted)
	assert.Equal(t, 6, res.Failed)
	assert.Empty(t, res.Errors)
}

func TestProcessor_Run_ErrorSampleCapped(t *testing.T) {
	p := NewProcessor(10, testLogger())

	sink := SinkFunc(func(ctx context.Context, tenantID, userID string, items []domain.Contact) (int, int, error) {
		return 0, 0, fmt.Errorf("insert failed")
	})

	// 20 batches all fail; the sample stays capped while counts are exact.
	res := p.Run(context.Background(), makeContacts(200), "tenant-1", "user-1", sink, nil, 0, 100)

	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 200, res.Failed)
	assert.Len(t, res.Errors, domain.MaxErrorSample)
	assert.Equal(t, 0, res.Errors[0].Batch)
	assert.Equal(t, domain.MaxErrorSample-1, res.Errors[len(res.Errors)-1].Batch)
}

func TestProcessor_Run_ProgressReporting(t *testing.T) {
	p := NewProcessor(100, testLogger())

	sink := SinkFunc(func(ctx context.Context, tenantID, userID string, items []domain.Contact) (int, int, error) {
		return len(items), 0, nil
	})

	var reported []int
	report := func(percent int) {
		reported = append(reported, percent)
	}

	p.Run(context.Background(), makeContacts(250), "t", "u", sink, report, 30, 60)

	// base + span*(done/total) after each of the three batches.
	assert.Equal(t, []int{50, 70, 90}, reported)

	for i := 1; i < len(reported); i++ {
		assert.GreaterOrEqual(t, reported[i], reported[i-1])
	}
}

func TestProcessor_Run_EmptyInput(t *testing.T) {
	p := NewProcessor(100, testLogger())

	sink := SinkFunc(func(ctx context.Context, tenantID, userID string, items []domain.Contact) (int, int, error) {
		t.Fatal("sink must not be called for empty input")
		return 0, 0, nil
	})

	var reported []int
	res := p.Run(context.Background(), nil, "t", "u", sink, func(p int) { reported = append(reported, p) }, 30, 60)

	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 0, res.Failed)
	assert.Empty(t, res.Errors)
	// An empty run still completes its progress window.
	assert.Equal(t, []int{90}, reported)
}

package handler

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zaptalk/zaptalk-be/internal/api/storage"
)

func TestJobCursor_RoundTrip(t *testing.T) {
	original := &storage.JobCursor{
		CreatedAt: time.Date(2026, 8, 24, 12, 30, 0, 123456789, time.UTC),
		JobID:     "7b0d9ad6-0000-4000-8000-000000000001",
	}

	encoded, err := EncodeJobCursor(original)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeJobCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)

	assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, original.JobID, decoded.JobID)
}

func TestDecodeJobCursor(t *testing.T) {
	tests := []struct {
		name      string
		cursor    string
		wantNil   bool
		wantErr   bool
		errString string
	}{
		{
			name:    "empty cursor means no cursor",
			cursor:  "",
			wantNil: true,
		},
		{
			name:    "not base64",
			cursor:  "%%%not-base64%%%",
			wantErr: true,
		},
		{
			name:      "missing separator",
			cursor:    base64.StdEncoding.EncodeToString([]byte("1234567890")),
			wantErr:   true,
			errString: "invalid cursor format",
		},
		{
			name:      "non-numeric timestamp",
			cursor:    base64.StdEncoding.EncodeToString([]byte("abc|job-1")),
			wantErr:   true,
			errString: "invalid createdAt in cursor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, err := DecodeJobCursor(tt.cursor)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errString != "" {
					assert.Contains(t, err.Error(), tt.errString)
				}
				return
			}

			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, cursor)
			}
		})
	}
}

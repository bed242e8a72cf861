package importer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

func TestValidateContacts(t *testing.T) {
	tests := []struct {
		name        string
		contact     domain.Contact
		wantValid   bool
		errContains string
	}{
		{
			name:      "valid contact with plain digits",
			contact:   domain.Contact{Name: "Ana", Phone: "5511999990001"},
			wantValid: true,
		},
		{
			name:      "valid contact with formatted phone",
			contact:   domain.Contact{Name: "Bruno", Phone: "+55 (11) 99999-0002"},
			wantValid: true,
		},
		{
			name:      "valid contact with email",
			contact:   domain.Contact{Name: "Carla", Phone: "5511999990003", Email: "Carla@Example.COM"},
			wantValid: true,
		},
		{
			name:      "minimum phone length",
			contact:   domain.Contact{Name: "Duda", Phone: "1234567890"},
			wantValid: true,
		},
		{
			name:        "phone too short",
			contact:     domain.Contact{Name: "Eva", Phone: "123456789"},
			wantValid:   false,
			errContains: "phone must have 10-13 digits, got 9",
		},
		{
			name:        "phone too long",
			contact:     domain.Contact{Name: "Fabio", Phone: "12345678901234"},
			wantValid:   false,
			errContains: "phone must have 10-13 digits, got 14",
		},
		{
			name:        "empty phone",
			contact:     domain.Contact{Name: "Gil", Phone: ""},
			wantValid:   false,
			errContains: "phone must have 10-13 digits, got 0",
		},
		{
			name:        "invalid email",
			contact:     domain.Contact{Name: "Hugo", Phone: "5511999990004", Email: "not-an-email"},
			wantValid:   false,
			errContains: "invalid email address",
		},
		{
			name:      "empty email is allowed",
			contact:   domain.Contact{Name: "Iris", Phone: "5511999990005", Email: ""},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateContacts([]domain.Contact{tt.contact})

			if tt.wantValid {
				require.Len(t, res.Valid, 1)
				assert.Empty(t, res.Invalid)
				assert.Empty(t, res.Errors)
			} else {
				assert.Empty(t, res.Valid)
				require.Len(t, res.Invalid, 1)
				require.Len(t, res.Errors, 1)
				assert.Equal(t, "validation", res.Errors[0].Origin)
				assert.Equal(t, 0, res.Errors[0].Row)
				assert.Contains(t, res.Errors[0].Message, tt.errContains)
			}
		})
	}
}

func TestValidateContacts_Normalization(t *testing.T) {
	res := ValidateContacts([]domain.Contact{
		{Name: "  Ana Souza  ", Phone: "+55 (11) 99999-0001", Email: "  Ana@Example.COM "},
	})

	require.Len(t, res.Valid, 1)
	c := res.Valid[0]
	assert.Equal(t, "Ana Souza", c.Name)
	assert.Equal(t, "5511999990001", c.Phone)
	assert.Equal(t, "ana@example.com", c.Email)
	assert.NotNil(t, c.Tags)
	assert.NotNil(t, c.Metadata)
}

func TestValidateContacts_PartitionAndErrorSample(t *testing.T) {
	var raw []domain.Contact
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			raw = append(raw, domain.Contact{Name: fmt.Sprintf("ok-%d", i), Phone: fmt.Sprintf("55119999%04d", i)})
		} else {
			raw = append(raw, domain.Contact{Name: fmt.Sprintf("bad-%d", i), Phone: "123"})
		}
	}

	res := ValidateContacts(raw)

	// Every contact lands in exactly one set; counts stay exact.
	assert.Len(t, res.Valid, 15)
	assert.Len(t, res.Invalid, 15)
	assert.Len(t, res.Errors, domain.MaxErrorSample)

	// Error rows reference the source positions of the first failures.
	assert.Equal(t, 1, res.Errors[0].Row)
	assert.Equal(t, 3, res.Errors[1].Row)
}

package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

// Parser reads an uploaded contact file into raw contact records. An
// unreadable source is whole-job-fatal, so Parse may return an error.
type Parser interface {
	Parse(ctx context.Context, path, fileType string, mapping map[string]string) ([]domain.Contact, error)
}

// CSVParser parses comma-separated contact files. The field mapping
// translates source column headers to contact fields ("name", "phone",
// "email", "tags"); unmapped columns land in Metadata.
type CSVParser struct{}

// NewCSVParser creates a CSVParser.
func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// Parse reads the whole file. Rows shorter than the header are padded so
// a ragged trailing column never drops a contact before validation.
func (p *CSVParser) Parse(ctx context.Context, path, fileType string, mapping map[string]string) ([]domain.Contact, error) {
	if fileType != "" && fileType != "csv" {
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	contacts := make([]domain.Contact, 0, len(rows)-1)

	for _, row := range rows[1:] {
		var c domain.Contact
		c.Metadata = map[string]string{}

		for col, name := range header {
			var value string
			if col < len(row) {
				value = row[col]
			}

			field := mapping[name]
			if field == "" {
				field = strings.ToLower(strings.TrimSpace(name))
			}

			switch field {
			case "name":
				c.Name = value
			case "phone":
				c.Phone = value
			case "email":
				c.Email = value
			case "tags":
				if value != "" {
					c.Tags = strings.Split(value, ";")
				}
			default:
				if value != "" {
					c.Metadata[field] = value
				}
			}
		}

		contacts = append(contacts, c)
	}

	return contacts, nil
}

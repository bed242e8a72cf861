package importer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
)

var (
	nonDigitRe = regexp.MustCompile(`\D`)
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidationResult partitions raw contacts into valid (normalized) and
// invalid sets. Errors is a sample capped at domain.MaxErrorSample; the
// set sizes are exact.
type ValidationResult struct {
	Valid   []domain.Contact
	Invalid []domain.Contact
	Errors  []domain.JobError
}

// ValidateContacts classifies each raw contact. It never fails: every
// item ends up in exactly one of the two sets.
//
// Rules: the phone must normalize to 10-13 digits after stripping
// non-digits; the email, when present, must look like a standard address.
// Valid contacts come out normalized: trimmed name, digits-only phone,
// lower-cased email, non-nil tags and metadata.
func ValidateContacts(raw []domain.Contact) *ValidationResult {
	res := &ValidationResult{}

	for i, c := range raw {
		phone := nonDigitRe.ReplaceAllString(c.Phone, "")
		email := strings.ToLower(strings.TrimSpace(c.Email))

		var reason string
		switch {
		case len(phone) < 10 || len(phone) > 13:
			reason = fmt.Sprintf("phone must have 10-13 digits, got %d", len(phone))
		case email != "" && !emailRe.MatchString(email):
			reason = fmt.Sprintf("invalid email address: %s", email)
		}

		if reason != "" {
			res.Invalid = append(res.Invalid, c)
			if len(res.Errors) < domain.MaxErrorSample {
				res.Errors = append(res.Errors, domain.JobError{
					Origin:  "validation",
					Row:     i,
					Batch:   -1,
					Message: reason,
				})
			}
			continue
		}

		normalized := domain.Contact{
			Name:     strings.TrimSpace(c.Name),
			Phone:    phone,
			Email:    email,
			Tags:     c.Tags,
			Metadata: c.Metadata,
		}
		if normalized.Tags == nil {
			normalized.Tags = []string{}
		}
		if normalized.Metadata == nil {
			normalized.Metadata = map[string]string{}
		}
		res.Valid = append(res.Valid, normalized)
	}

	return res
}

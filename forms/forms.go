package forms

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/seedlight/beacon/shared"
)

// Field is one declared input on a form. Rules evaluate in order and only
// the first failure per field is reported, mirroring how the form renders
// one inline error under each input.
type Field struct {
	Name      string
	Label     string
	Required  bool
	MinLength int
	Email     bool
	Enum      []string
}

type Schema struct {
	Name       string
	Collection string
	Fields     []Field
}

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var (
	Contact = Schema{
		Name:       "contact",
		Collection: "contact_messages",
		Fields: []Field{
			{Name: "name", Label: "Full name", Required: true, MinLength: 2},
			{Name: "email", Label: "Email address", Required: true, Email: true},
			{Name: "subject", Label: "Subject", Required: true, MinLength: 3},
			{Name: "message", Label: "Message", Required: true, MinLength: 10},
		},
	}

	Volunteer = Schema{
		Name:       "volunteer",
		Collection: "volunteer_signups",
		Fields: []Field{
			{Name: "name", Label: "Full name", Required: true, MinLength: 2},
			{Name: "email", Label: "Email address", Required: true, Email: true},
			{Name: "phone", Label: "Phone number", MinLength: 7},
			{Name: "city", Label: "City", Required: true, MinLength: 2},
			{Name: "area", Label: "Area of interest", Required: true, Enum: []string{"events", "mentorship", "outreach", "fundraising"}},
			{Name: "message", Label: "Tell us about yourself", MinLength: 10},
		},
	}

	Partner = Schema{
		Name:       "partner",
		Collection: "partner_requests",
		Fields: []Field{
			{Name: "organisation", Label: "Organisation", Required: true, MinLength: 2},
			{Name: "name", Label: "Contact name", Required: true, MinLength: 2},
			{Name: "email", Label: "Email address", Required: true, Email: true},
			{Name: "website", Label: "Website"},
			{Name: "message", Label: "How would you like to partner?", Required: true, MinLength: 10},
		},
	}

	Donate = Schema{
		Name:       "donate",
		Collection: "donation_intents",
		Fields: []Field{
			{Name: "name", Label: "Full name", Required: true, MinLength: 2},
			{Name: "email", Label: "Email address", Required: true, Email: true},
			{Name: "currency", Label: "Currency", Required: true, Enum: []string{shared.CURRENCY_USD, shared.CURRENCY_NGN}},
			{Name: "amount", Label: "Amount"},
		},
	}
)

var schemas = map[string]Schema{
	Contact.Name:   Contact,
	Volunteer.Name: Volunteer,
	Partner.Name:   Partner,
	Donate.Name:    Donate,
}

func SchemaFor(name string) (Schema, bool) {
	schema, ok := schemas[name]
	return schema, ok
}

// Validate checks values against the schema. An empty result means the
// submission may proceed; anything else blocks it.
func (s Schema) Validate(values map[string]string) []FieldError {
	var errs []FieldError

	for _, field := range s.Fields {
		value := strings.TrimSpace(values[field.Name])

		if value == "" {
			if field.Required {
				errs = append(errs, FieldError{Field: field.Name, Reason: fmt.Sprintf("%s is required", field.Label)})
			}
			continue
		}

		if field.MinLength > 0 && utf8.RuneCountInString(value) < field.MinLength {
			errs = append(errs, FieldError{Field: field.Name, Reason: fmt.Sprintf("%s must be at least %d characters", field.Label, field.MinLength)})
			continue
		}

		if field.Email && !emailPattern.MatchString(value) {
			errs = append(errs, FieldError{Field: field.Name, Reason: fmt.Sprintf("%s must be a valid email address", field.Label)})
			continue
		}

		if len(field.Enum) > 0 && !containsFold(field.Enum, value) {
			errs = append(errs, FieldError{Field: field.Name, Reason: fmt.Sprintf("%s must be one of: %s", field.Label, strings.Join(field.Enum, ", "))})
			continue
		}
	}

	return errs
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

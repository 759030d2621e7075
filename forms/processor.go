package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seedlight/beacon/config"
	"github.com/seedlight/beacon/shared"
)

// Submission is the local record of one accepted form post. The hosted
// backend holds the canonical copy; this one powers the admin listing and
// survives backend outages in the audit trail sense only.
type Submission struct {
	ID        string    `db:"id" json:"id"`
	Form      string    `db:"form" json:"form"`
	Email     string    `db:"email" json:"email"`
	Payload   string    `db:"payload" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Store interface {
	InsertSubmission(sub Submission) error
}

type Inserter interface {
	InsertRecord(ctx context.Context, collection string, payload interface{}) error
}

type Notifier interface {
	Notify(title, message string)
}

// Result is what the submitting client renders: either field errors, a
// failure message worth retrying, or success. Donations additionally carry
// the checkout redirect.
type Result struct {
	OK              bool         `json:"ok"`
	Message         string       `json:"message"`
	Errors          []FieldError `json:"errors,omitempty"`
	RedirectURL     string       `json:"redirect_url,omitempty"`
	RedirectDelayMs int          `json:"redirect_delay_ms,omitempty"`
}

type Processor struct {
	store    Store
	remote   Inserter
	notifier Notifier
	payments config.PaymentsConfig
}

func NewProcessor(store Store, remote Inserter, notifier Notifier, payments config.PaymentsConfig) *Processor {
	return &Processor{
		store:    store,
		remote:   remote,
		notifier: notifier,
		payments: payments,
	}
}

// Submit validates and forwards one form post. Validation failures never
// reach the backend. Remote failures are surfaced with the backend's own
// reason when it gave one; nothing is retried automatically.
func (p *Processor) Submit(ctx context.Context, formName string, values map[string]string) (Result, error) {
	schema, ok := SchemaFor(formName)
	if !ok {
		return Result{}, fmt.Errorf("unknown form: %s", formName)
	}

	if errs := schema.Validate(values); len(errs) > 0 {
		return Result{
			OK:      false,
			Message: "Some fields need your attention.",
			Errors:  errs,
		}, nil
	}

	if err := p.remote.InsertRecord(ctx, schema.Collection, values); err != nil {
		slog.Error("Failed to forward submission",
			slog.String("form", formName),
			slog.String("stack", err.Error()),
		)
		return Result{
			OK:      false,
			Message: failureMessage(err),
		}, nil
	}

	p.recordLocally(schema, values)
	p.notify(schema, values)

	result := Result{
		OK:      true,
		Message: "Thank you! Your submission has been received.",
	}

	if schema.Name == Donate.Name {
		result.RedirectURL = p.checkoutURL(values["currency"])
		result.RedirectDelayMs = p.payments.RedirectDelayMs
		result.Message = "Thank you! Redirecting you to our secure payment page."
	}

	return result, nil
}

func (p *Processor) checkoutURL(currency string) string {
	if strings.EqualFold(currency, shared.CURRENCY_NGN) {
		return p.payments.NGNCheckoutURL
	}
	return p.payments.USDCheckoutURL
}

func (p *Processor) recordLocally(schema Schema, values map[string]string) {
	payload, err := json.Marshal(values)
	if err != nil {
		payload = []byte("{}")
	}
	sub := Submission{
		ID:        uuid.NewString(),
		Form:      schema.Name,
		Email:     values["email"],
		Payload:   string(payload),
		CreatedAt: time.Now(),
	}
	if err := p.store.InsertSubmission(sub); err != nil {
		slog.Error("Failed to record submission locally",
			slog.String("form", schema.Name),
			slog.String("stack", err.Error()),
		)
	}
}

func (p *Processor) notify(schema Schema, values map[string]string) {
	if p.notifier == nil {
		return
	}
	title := fmt.Sprintf("New %s submission", schema.Name)
	message := fmt.Sprintf("%s <%s>", values["name"], values["email"])
	if values["organisation"] != "" {
		message = fmt.Sprintf("%s - %s", values["organisation"], message)
	}
	p.notifier.Notify(title, message)
}

// failureMessage prefers the backend's own reason over a generic one.
func failureMessage(err error) string {
	var reasoner interface{ Reason() string }
	if errors.As(err, &reasoner) {
		return reasoner.Reason()
	}
	return "Something went wrong sending your submission. Please try again."
}

// Package refund implements the refund request form.
package refund

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/welfare/internal/model"
	"github.com/dukerupert/welfare/internal/notify"
)

const (
	msgSubmitted = "Form submitted successfully"
	msgFailed    = "There was an error submitting the form."
)

// Backend is the part of the API client the form needs.
type Backend interface {
	ListMembers(ctx context.Context) ([]model.Member, error)
	CreateRefund(ctx context.Context, r model.RefundRequest) error
}

type Notifier interface {
	Notify(ctx context.Context, n notify.Notice)
}

// Form holds the values as typed by the user.
type Form struct {
	EPF     string
	Amount  string
	Reason  string
	Message string
}

// ValidationError lists the fields that block a submission, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	return "invalid refund form: " + strings.Join(names, ", ")
}

// Validate checks the required fields and parses the amount.
func (f Form) Validate() (model.RefundRequest, error) {
	fields := map[string]string{}
	epf := strings.TrimSpace(f.EPF)
	if epf == "" {
		fields["epf"] = "EPF number is required"
	}
	var amount decimal.Decimal
	if s := strings.TrimSpace(f.Amount); s == "" {
		fields["amount"] = "Amount is required"
	} else {
		d, err := decimal.NewFromString(s)
		if err != nil {
			fields["amount"] = "Amount must be a number"
		}
		amount = d
	}
	if len(fields) > 0 {
		return model.RefundRequest{}, &ValidationError{Fields: fields}
	}
	return model.RefundRequest{
		EPF:     epf,
		Amount:  amount,
		Reason:  f.Reason,
		Message: f.Message,
	}, nil
}

type Service struct {
	backend  Backend
	notifier Notifier
	logger   *slog.Logger
}

func NewService(backend Backend, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, notifier: notifier, logger: logger.With("component", "refund")}
}

// Options returns the EPF numbers offered for autocomplete, in backend order.
// A failed fetch is logged and yields no options.
func (s *Service) Options(ctx context.Context) []string {
	members, err := s.backend.ListMembers(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "load members for refund form", "error", err)
		return nil
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		if epf := m.EPF.String(); epf != "" {
			out = append(out, epf)
		}
	}
	return out
}

// Submit posts the form. It returns the form to show next: empty after a
// successful submission, unchanged otherwise.
func (s *Service) Submit(ctx context.Context, f Form) (Form, error) {
	req, err := f.Validate()
	if err != nil {
		return f, err
	}
	if err := s.backend.CreateRefund(ctx, req); err != nil {
		s.logger.WarnContext(ctx, "submit refund", "epf", req.EPF, "error", err)
		s.notify(ctx, notify.Failure(msgFailed))
		return f, fmt.Errorf("submit refund: %w", err)
	}
	s.notify(ctx, notify.Success(msgSubmitted))
	return Form{}, nil
}

func (s *Service) notify(ctx context.Context, n notify.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, n)
	}
}

// IsValidation reports whether err is a form validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// RefundRequest is posted to the backend once per form submission.
type RefundRequest struct {
	EPF     string
	Amount  decimal.Decimal
	Reason  string
	Message string
}

// MarshalJSON emits amount as a JSON number rather than decimal's default quoted string.
func (r RefundRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EPF     string      `json:"epf"`
		Amount  json.Number `json:"amount"`
		Reason  string      `json:"reason"`
		Message string      `json:"message"`
	}{
		EPF:     r.EPF,
		Amount:  json.Number(r.Amount.String()),
		Reason:  r.Reason,
		Message: r.Message,
	})
}

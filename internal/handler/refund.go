package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/welfare/internal/auth"
	"github.com/dukerupert/welfare/internal/middleware"
	"github.com/dukerupert/welfare/internal/refund"
	"github.com/dukerupert/welfare/internal/workspace"
)

type RefundHandler struct {
	workspaces *workspace.Registry
	render     *Renderer
	logger     *slog.Logger
}

func NewRefundHandler(workspaces *workspace.Registry, render *Renderer, logger *slog.Logger) *RefundHandler {
	return &RefundHandler{workspaces: workspaces, render: render, logger: logger}
}

type refundPage struct {
	page
	Form    refund.Form
	Options []string
	Errors  map[string]string
}

func (h *RefundHandler) service(w http.ResponseWriter, r *http.Request) (*refund.Service, bool) {
	ac, _ := auth.FromContext(r.Context())
	ws, err := h.workspaces.Get(ac)
	if err != nil {
		middleware.RedirectToLogin(w, r)
		return nil, false
	}
	return ws.Refunds, true
}

// Page renders an empty refund form with EPF autocomplete options.
func (h *RefundHandler) Page(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	p := refundPage{Options: svc.Options(r.Context())}
	p.page = newPage(r, "Refund Request")
	h.render.render(w, r, http.StatusOK, "refund.html", p)
}

// Submit posts the form to the backend. The form comes back empty after a
// successful submission and with the typed values otherwise.
func (h *RefundHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	form := refund.Form{
		EPF:     r.PostFormValue("epf"),
		Amount:  r.PostFormValue("amount"),
		Reason:  r.PostFormValue("reason"),
		Message: r.PostFormValue("message"),
	}
	next, err := svc.Submit(r.Context(), form)

	p := refundPage{Form: next, Options: svc.Options(r.Context())}
	var ve *refund.ValidationError
	if errors.As(err, &ve) {
		p.Errors = ve.Fields
	}

	if isHTMX(r) {
		p.CSRFField = newPage(r, "").CSRFField
		h.render.renderPartial(w, r, "refund-form", p)
		return
	}
	p.page = newPage(r, "Refund Request")
	h.render.render(w, r, http.StatusOK, "refund.html", p)
}

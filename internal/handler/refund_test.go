package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dukerupert/welfare/internal/auth"
)

func TestRefundPageOptions(t *testing.T) {
	env := newTestEnv(t)
	h := NewRefundHandler(env.workspaces, env.render, env.logger)

	rec := do(h.Page, auth.RoleMember, httptest.NewRequest("GET", "/refunds/new", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	first, last := strings.Index(body, `<option value="1001">`), strings.Index(body, `<option value="1003">`)
	if first < 0 || last < 0 || first > last {
		t.Error("EPF options should be listed in backend order")
	}
}

func TestRefundSubmitSuccess(t *testing.T) {
	env := newTestEnv(t)
	h := NewRefundHandler(env.workspaces, env.render, env.logger)

	form := url.Values{"epf": {"1002"}, "amount": {"1500.50"}, "reason": {"Medical"}, "message": {"Please process"}}
	rec := do(h.Submit, auth.RoleMember, htmx(formRequest("POST", "/refunds", form)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	bodies := env.backend.refundBodies()
	if len(bodies) != 1 {
		t.Fatalf("refunds posted = %d, want 1", len(bodies))
	}
	if bodies[0]["epf"] != "1002" || bodies[0]["amount"] != 1500.5 || bodies[0]["reason"] != "Medical" {
		t.Errorf("posted body = %v", bodies[0])
	}

	body := rec.Body.String()
	if strings.Contains(body, "Please process") || !strings.Contains(body, `name="epf" value=""`) {
		t.Error("form should be reset after success")
	}
	tr := readTrigger(t, rec)
	if len(tr.Notify) != 1 || tr.Notify[0].Message != "Form submitted successfully" {
		t.Errorf("notices = %+v", tr.Notify)
	}
}

func TestRefundSubmitFailurePreservesValues(t *testing.T) {
	env := newTestEnv(t)
	env.backend.failRefund = true
	h := NewRefundHandler(env.workspaces, env.render, env.logger)

	form := url.Values{"epf": {"1002"}, "amount": {"99"}, "reason": {"Funeral"}, "message": {"urgent"}}
	rec := do(h.Submit, auth.RoleMember, htmx(formRequest("POST", "/refunds", form)))

	body := rec.Body.String()
	for _, want := range []string{`name="epf" value="1002"`, `name="amount" value="99"`, "Funeral", "urgent"} {
		if !strings.Contains(body, want) {
			t.Errorf("form lost %q", want)
		}
	}
	tr := readTrigger(t, rec)
	if len(tr.Notify) != 1 || tr.Notify[0].Message != "There was an error submitting the form." || tr.Notify[0].Level != "error" {
		t.Errorf("notices = %+v", tr.Notify)
	}
}

func TestRefundSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	h := NewRefundHandler(env.workspaces, env.render, env.logger)

	form := url.Values{"epf": {"1002"}, "amount": {"lots"}}
	rec := do(h.Submit, auth.RoleMember, htmx(formRequest("POST", "/refunds", form)))

	if !strings.Contains(rec.Body.String(), "Amount must be a number") {
		t.Error("expected amount error")
	}
	if len(env.backend.refundBodies()) != 0 {
		t.Error("invalid form must not be posted")
	}
}

func TestRefundSubmitFullPage(t *testing.T) {
	env := newTestEnv(t)
	h := NewRefundHandler(env.workspaces, env.render, env.logger)

	form := url.Values{"epf": {"1001"}, "amount": {"10"}}
	rec := do(h.Submit, auth.RoleMember, formRequest("POST", "/refunds", form))

	body := rec.Body.String()
	if !strings.Contains(body, "<html") {
		t.Error("non-HTMX submit should render the full page")
	}
	if !strings.Contains(body, "Form submitted successfully") {
		t.Error("notice should be rendered inline on a full page")
	}
}

package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/dukerupert/welfare/internal/auth"
	"github.com/dukerupert/welfare/internal/middleware"
	"github.com/dukerupert/welfare/internal/model"
	"github.com/dukerupert/welfare/internal/workspace"
	"github.com/dukerupert/welfare/web"
)

// fakeBackend is an in-memory stand-in for the welfare REST API.
type fakeBackend struct {
	mu         sync.Mutex
	members    []model.Member
	failDelete bool
	failUpdate bool
	failRefund bool
	refunds    []map[string]any
	deletes    []string
	lists      int
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/members":
		f.lists++
		json.NewEncoder(w).Encode(f.members)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/members/"):
		if f.failDelete {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/members/")
		f.deletes = append(f.deletes, id)
		f.members = slices.DeleteFunc(f.members, func(m model.Member) bool { return m.ID == id })
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/api/members/"):
		if f.failUpdate {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var m model.Member
		json.NewDecoder(r.Body).Decode(&m)
		for i := range f.members {
			if f.members[i].ID == m.ID {
				f.members[i] = m
			}
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPost && r.URL.Path == "/api/refunds":
		if f.failRefund {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.refunds = append(f.refunds, body)
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/login":
		var req struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "correct" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"token":"bearer-xyz","user":{"name":"Nimal","email":"n@w.lk","role":"secretary"}}`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeBackend) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *fakeBackend) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.deletes)
}

func (f *fakeBackend) refundBodies() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.refunds)
}

type testEnv struct {
	backend    *fakeBackend
	server     *httptest.Server
	workspaces *workspace.Registry
	render     *Renderer
	logger     *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := &fakeBackend{members: []model.Member{
		{ID: "m1", EPF: "1001", WelfareNo: "5", Name: "John Perera", DateOfRegistered: "2024-03-05", Payroll: "P1"},
		{ID: "m2", EPF: "1002", WelfareNo: "2", Name: "Mary Silva", DateOfJoined: "2020-01-15"},
		{ID: "m3", EPF: "1003", WelfareNo: "9", Name: "Saman Kumara"},
	}}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	render, err := NewRenderer(web.Templates(), logger)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	reg := workspace.NewRegistry(srv.URL, logger)
	t.Cleanup(reg.Close)
	return &testEnv{backend: backend, server: srv, workspaces: reg, render: render, logger: logger}
}

// do runs h with the given role signed in and a notice collector attached.
func do(h http.HandlerFunc, role auth.Role, r *http.Request) *httptest.ResponseRecorder {
	ac := auth.AuthContext{SessionID: 1, UserName: "Tester", Role: role, BearerToken: "bearer"}
	r = r.WithContext(auth.WithAuth(r.Context(), ac))
	rec := httptest.NewRecorder()
	middleware.Notices(h).ServeHTTP(rec, r)
	return rec
}

func formRequest(method, target string, values url.Values) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func htmx(r *http.Request) *http.Request {
	r.Header.Set("HX-Request", "true")
	return r
}

type trigger struct {
	Notify []struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	} `json:"notify"`
	CloseDialog bool `json:"closeDialog"`
}

func readTrigger(t *testing.T, rec *httptest.ResponseRecorder) trigger {
	t.Helper()
	var tr trigger
	if raw := rec.Header().Get("HX-Trigger"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &tr); err != nil {
			t.Fatalf("bad HX-Trigger %q: %v", raw, err)
		}
	}
	return tr
}

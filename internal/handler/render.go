package handler

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/dukerupert/welfare/internal/auth"
	"github.com/dukerupert/welfare/internal/notify"
	"github.com/dukerupert/welfare/internal/present"
)

// Renderer executes the console's templates.
type Renderer struct {
	templates *template.Template
	logger    *slog.Logger
}

func NewRenderer(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"dateInput": present.DateInput,
	}).ParseFS(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: tmpl, logger: logger}, nil
}

// page is the data every full page needs for the layout.
type page struct {
	Title     string
	User      auth.AuthContext
	CSRFToken string
	CSRFField template.HTML
	Notices   []notify.Notice
	Scroll    int
}

// newPage collects the layout data. Call it after the request's work is done
// so that notices produced by that work are included.
func newPage(r *http.Request, title string) page {
	ac, _ := auth.FromContext(r.Context())
	p := page{
		Title:     title,
		User:      ac,
		CSRFToken: csrf.Token(r),
		CSRFField: csrf.TemplateField(r),
	}
	if c, ok := notify.FromContext(r.Context()); ok {
		p.Notices = c.Notices()
	}
	return p
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// render writes a full page with the given status.
func (rd *Renderer) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := rd.templates.ExecuteTemplate(w, name, data); err != nil {
		rd.logger.ErrorContext(r.Context(), "template error", "template", name, "error", err)
	}
}

// renderPartial writes an HTMX fragment. Collected notices and any extra
// client events travel in the HX-Trigger header.
func (rd *Renderer) renderPartial(w http.ResponseWriter, r *http.Request, name string, data any, events ...string) {
	var notices []notify.Notice
	if c, ok := notify.FromContext(r.Context()); ok {
		notices = c.Notices()
	}
	notify.WriteTrigger(w, notices, events...)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := rd.templates.ExecuteTemplate(w, name, data); err != nil {
		rd.logger.ErrorContext(r.Context(), "template error", "template", name, "error", err)
		fmt.Fprint(w, `<div class="form-error">Template error</div>`)
	}
}

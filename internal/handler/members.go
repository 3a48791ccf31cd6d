package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/welfare/internal/auth"
	"github.com/dukerupert/welfare/internal/directory"
	"github.com/dukerupert/welfare/internal/middleware"
	"github.com/dukerupert/welfare/internal/model"
	"github.com/dukerupert/welfare/internal/notify"
	"github.com/dukerupert/welfare/internal/present"
	"github.com/dukerupert/welfare/internal/workspace"
)

const (
	msgUpdated      = "Member updated successfully."
	msgUpdateFailed = "Failed to update member."
)

type MemberHandler struct {
	workspaces  *workspace.Registry
	render      *Renderer
	registerURL string
	logger      *slog.Logger
}

func NewMemberHandler(workspaces *workspace.Registry, render *Renderer, registerURL string, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{
		workspaces:  workspaces,
		render:      render,
		registerURL: registerURL,
		logger:      logger,
	}
}

type tableData struct {
	Query       string
	Rows        []present.Row
	CanView     bool
	CanEdit     bool
	CanDelete   bool
	CanRegister bool
	RegisterURL string
}

type membersPage struct {
	page
	tableData
}

type editDialog struct {
	Member model.Member
	Error  string
}

type detailsDialog struct {
	Member   model.Member
	Fields   []present.Field
	Children []string
}

type profilePage struct {
	page
	EPF            string
	Found          bool
	Member         model.Member
	Fields         []present.Field
	Children       []string
	ScrollPosition int
}

// workspace resolves the session's workspace. A session that ended while the
// request was in flight is sent back to sign in.
func (h *MemberHandler) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ac, _ := auth.FromContext(r.Context())
	ws, err := h.workspaces.Get(ac)
	if err != nil {
		middleware.RedirectToLogin(w, r)
		return nil, false
	}
	return ws, true
}

// load refreshes the directory. Failures are logged by the directory and
// deliberately not shown: the table keeps its previous contents.
func (h *MemberHandler) load(r *http.Request, dir *directory.Store) {
	if err := dir.Load(r.Context()); err != nil {
		h.logger.DebugContext(r.Context(), "member table shows cached list", "error", err)
	}
}

func (h *MemberHandler) table(r *http.Request, dir *directory.Store) tableData {
	role := auth.RoleOf(r.Context())
	return tableData{
		Query:       dir.Query(),
		Rows:        present.Table(dir.FilteredView()),
		CanView:     auth.Can(role, auth.ActionViewProfile),
		CanEdit:     auth.Can(role, auth.ActionEditMember),
		CanDelete:   auth.Can(role, auth.ActionDeleteMember),
		CanRegister: auth.Can(role, auth.ActionRegisterMember),
		RegisterURL: h.registerURL,
	}
}

// Page renders the member table. Every full page load fetches a fresh list.
func (h *MemberHandler) Page(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.Directory.SetQuery(r.URL.Query().Get("q"))
	h.load(r, ws.Directory)

	p := membersPage{page: newPage(r, "Members"), tableData: h.table(r, ws.Directory)}
	p.Scroll = present.ParseScroll(r.URL.Query().Get("scroll"))
	h.render.render(w, r, http.StatusOK, "members.html", p)
}

// Table renders the table fragment for the search box. refresh=1 re-fetches
// from the backend; otherwise the cached list is filtered.
func (h *MemberHandler) Table(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.Directory.SetQuery(r.URL.Query().Get("q"))
	if r.URL.Query().Get("refresh") == "1" || !ws.Directory.Loaded() {
		h.load(r, ws.Directory)
	}
	h.render.renderPartial(w, r, "member-table", h.table(r, ws.Directory))
}

func (h *MemberHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	m, found := ws.Directory.Get(r.PathValue("id"))
	if !found {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	h.render.renderPartial(w, r, "member-edit-dialog", editDialog{Member: m})
}

// Update saves the edit dialog. On success the table is re-rendered and the
// dialog closed; on failure the dialog is shown again with the typed values.
func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	m, found := ws.Directory.Get(r.PathValue("id"))
	if !found {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	m = applyMemberForm(m, r)
	if m.Name == "" || m.EPF == "" || m.WelfareNo == "" {
		h.redisplay(w, r, editDialog{Member: m, Error: "Name, EPF No and Welfare No are required"})
		return
	}

	saved, err := ws.Client.UpdateMember(r.Context(), m)
	if err != nil {
		h.logger.WarnContext(r.Context(), "update member", "id", m.ID, "error", err)
		notify.Sink{}.Notify(r.Context(), notify.Failure(msgUpdateFailed))
		h.redisplay(w, r, editDialog{Member: m, Error: msgUpdateFailed})
		return
	}

	ws.Directory.Patch(saved)
	notify.Sink{}.Notify(r.Context(), notify.Success(msgUpdated))
	h.render.renderPartial(w, r, "member-table", h.table(r, ws.Directory), "closeDialog")
}

// redisplay swaps the edit dialog back in instead of the table.
func (h *MemberHandler) redisplay(w http.ResponseWriter, r *http.Request, d editDialog) {
	w.Header().Set("HX-Retarget", "#dialog")
	w.Header().Set("HX-Reswap", "innerHTML")
	h.render.renderPartial(w, r, "member-edit-dialog", d)
}

func applyMemberForm(m model.Member, r *http.Request) model.Member {
	field := func(name string) string { return strings.TrimSpace(r.PostFormValue(name)) }

	m.Name = field("name")
	m.EPF = model.Code(field("epf"))
	m.WelfareNo = model.Code(field("welfareNo"))
	m.Email = field("email")
	m.DateOfBirth = field("dateOfBirth")
	m.DateOfJoined = field("dateOfJoined")
	m.DateOfRegistered = field("dateOfRegistered")
	m.Payroll = field("payroll")
	m.Division = field("division")
	m.Branch = field("branch")
	m.Unit = field("unit")
	m.SpouseName = field("spouseName")
	m.MotherName = field("motherName")
	m.FatherName = field("fatherName")
	m.MotherInLawName = field("motherInLawName")
	m.FatherInLawName = field("fatherInLawName")

	number, whatsapp := field("contactNumber"), field("whatsappNo")
	if number != "" || whatsapp != "" || m.ContactNo != nil {
		m.ContactNo = &model.ContactNo{Number: number, WhatsappNo: whatsapp}
	}
	return m
}

// Delete removes a member after the browser's confirm dialog. The confirm
// flow adds confirmed=true; without it nothing is sent to the backend.
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	confirmed := r.FormValue("confirmed") == "true"

	err := ws.Directory.Remove(r.Context(), id, confirmed)
	switch {
	case errors.Is(err, directory.ErrNotConfirmed):
		http.Error(w, "delete must be confirmed", http.StatusBadRequest)
		return
	case errors.Is(err, directory.ErrClosed):
		middleware.RedirectToLogin(w, r)
		return
	}
	// Success and backend failure both re-render the table; the directory
	// has already queued the matching notice.
	h.render.renderPartial(w, r, "member-table", h.table(r, ws.Directory))
}

// Details renders the read-only detail dialog.
func (h *MemberHandler) Details(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	m, found := ws.Directory.Get(r.PathValue("id"))
	if !found {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	h.render.renderPartial(w, r, "member-details-dialog", detailsDialog{
		Member:   m,
		Fields:   present.Details(m),
		Children: present.Children(m),
	})
}

// Profile renders the member detail route. The scroll offset of the table is
// carried through so the back link can restore it.
func (h *MemberHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if !ws.Directory.Loaded() {
		h.load(r, ws.Directory)
	}

	epf := r.PathValue("epf")
	p := profilePage{
		EPF:            epf,
		ScrollPosition: present.ParseScroll(r.URL.Query().Get("scroll")),
	}
	for _, m := range ws.Directory.Members() {
		if m.EPF.String() == epf {
			p.Found = true
			p.Member = m
			p.Fields = present.Details(m)
			p.Children = present.Children(m)
			break
		}
	}

	status := http.StatusOK
	title := "Member"
	if p.Found {
		title = p.Member.Name
	} else {
		status = http.StatusNotFound
	}
	p.page = newPage(r, title)
	h.render.render(w, r, status, "profile.html", p)
}

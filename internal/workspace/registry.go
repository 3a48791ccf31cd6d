// Package workspace keeps the per-session state of the console: the backend
// client bound to the session's credentials, its member directory and its
// refund form service.
package workspace

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/welfare/internal/api"
	"github.com/dukerupert/welfare/internal/auth"
	"github.com/dukerupert/welfare/internal/directory"
	"github.com/dukerupert/welfare/internal/notify"
	"github.com/dukerupert/welfare/internal/refund"
)

// ErrSessionEnded is returned by Get for a session that was forgotten. A
// request authenticated just before logout must not rebuild its workspace.
var ErrSessionEnded = errors.New("workspace: session ended")

type Workspace struct {
	SessionID int64
	Creds     *auth.Credentials
	Client    *api.Client
	Directory *directory.Store
	Refunds   *refund.Service
}

// ChangeFunc observes directory changes of any session.
type ChangeFunc func(sessionID int64, ch directory.Change)

type Registry struct {
	backendURL string
	clientOpts []api.Option
	logger     *slog.Logger

	mu         sync.Mutex
	workspaces map[int64]*Workspace
	forgotten  map[int64]time.Time
	onChange   ChangeFunc
	now        func() time.Time
}

func NewRegistry(backendURL string, logger *slog.Logger, opts ...api.Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		backendURL: backendURL,
		clientOpts: opts,
		logger:     logger,
		workspaces: make(map[int64]*Workspace),
		forgotten:  make(map[int64]time.Time),
		now:        time.Now,
	}
}

// OnChange sets the observer for directory changes. Workspaces created
// before the call are not affected.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// NewClient returns an unbound client for signing in. Pass it to Adopt once
// the session exists so the backend cookies it received are kept.
func (r *Registry) NewClient() (*api.Client, *auth.Credentials) {
	creds := auth.NewCredentials("")
	return api.New(r.backendURL, creds, r.clientOpts...), creds
}

// Adopt creates the workspace of a freshly signed-in session, replacing any
// previous one with the same id.
func (r *Registry) Adopt(sessionID int64, client *api.Client, creds *auth.Credentials) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.workspaces[sessionID]; ok {
		old.Directory.Close()
	}
	delete(r.forgotten, sessionID)
	ws := r.build(sessionID, client, creds)
	r.workspaces[sessionID] = ws
	return ws
}

// Get returns the workspace of the request's session, creating it from the
// stored bearer token when the session predates this process. Forgotten
// sessions yield ErrSessionEnded.
func (r *Registry) Get(ac auth.AuthContext) (*Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.workspaces[ac.SessionID]; ok {
		return ws, nil
	}
	if _, gone := r.forgotten[ac.SessionID]; gone {
		return nil, ErrSessionEnded
	}
	creds := auth.NewCredentials(ac.BearerToken)
	ws := r.build(ac.SessionID, api.New(r.backendURL, creds, r.clientOpts...), creds)
	r.workspaces[ac.SessionID] = ws
	return ws, nil
}

// Forget ends a session's workspace: in-flight loads and deletes are
// abandoned and its credentials are cleared.
func (r *Registry) Forget(sessionID int64) {
	r.mu.Lock()
	ws, ok := r.workspaces[sessionID]
	delete(r.workspaces, sessionID)
	r.forgotten[sessionID] = r.now()
	r.mu.Unlock()
	if !ok {
		return
	}
	ws.Directory.Close()
	ws.Creds.Clear()
	r.logger.Debug("workspace closed", "session_id", sessionID)
}

// PruneForgotten drops logout marks recorded before cutoff and reports how
// many were dropped. Marks only need to outlive requests that were already
// authenticated when the session ended.
func (r *Registry) PruneForgotten(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, at := range r.forgotten {
		if at.Before(cutoff) {
			delete(r.forgotten, id)
			n++
		}
	}
	return n
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Close forgets every workspace.
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.workspaces))
	for id := range r.workspaces {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Forget(id)
	}
}

// build assembles a workspace. Caller holds mu.
func (r *Registry) build(sessionID int64, client *api.Client, creds *auth.Credentials) *Workspace {
	logger := r.logger.With("session_id", sessionID)
	dir := directory.New(client, notify.Sink{}, logger)
	if fn := r.onChange; fn != nil {
		dir.Subscribe(func(ch directory.Change) { fn(sessionID, ch) })
	}
	return &Workspace{
		SessionID: sessionID,
		Creds:     creds,
		Client:    client,
		Directory: dir,
		Refunds:   refund.NewService(client, notify.Sink{}, logger),
	}
}

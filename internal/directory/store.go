// Package directory holds the member list behind the table view of one
// signed-in session.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukerupert/welfare/internal/model"
	"github.com/dukerupert/welfare/internal/notify"
)

var (
	// ErrNotConfirmed is returned by Remove when the user has not confirmed.
	ErrNotConfirmed = errors.New("delete not confirmed")
	// ErrClosed is returned for operations on, or results arriving at, a closed store.
	ErrClosed = errors.New("directory closed")
)

const (
	msgDeleted      = "Member deleted successfully."
	msgDeleteFailed = "Failed to delete member!!!"
)

// Backend is the part of the API client the directory needs.
type Backend interface {
	ListMembers(ctx context.Context) ([]model.Member, error)
	DeleteMember(ctx context.Context, id string) error
}

// Notifier shows a notice to the user who triggered an operation.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notice)
}

type ChangeKind int

const (
	ChangeLoaded ChangeKind = iota
	ChangeRemoved
	ChangeUpdated
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeLoaded:
		return "loaded"
	case ChangeRemoved:
		return "removed"
	case ChangeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Change describes one applied mutation of the list.
type Change struct {
	Kind    ChangeKind
	ID      string
	Version uint64
}

// Store caches the member list and the current search query.
//
// Every applied mutation bumps version. Loads are numbered when issued; a
// load older than the last applied one is dropped, and ids removed after a
// load was issued are filtered out of its result.
type Store struct {
	backend  Backend
	notifier Notifier
	logger   *slog.Logger

	lifetime context.Context
	cancel   context.CancelFunc

	mu         sync.Mutex
	closed     bool
	members    []model.Member
	version    uint64
	issued     uint64
	applied    uint64
	tombstones map[string]uint64
	patches    map[string]patch
	query      string
	view       memo
	nextSub    int
	subs       map[int]func(Change)
}

type patch struct {
	seq    uint64
	member model.Member
}

type memo struct {
	valid   bool
	version uint64
	query   string
	members []model.Member
}

func New(backend Backend, notifier Notifier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	lifetime, cancel := context.WithCancel(context.Background())
	return &Store{
		backend:    backend,
		notifier:   notifier,
		logger:     logger.With("component", "directory"),
		lifetime:   lifetime,
		cancel:     cancel,
		members:    []model.Member{},
		tombstones: make(map[string]uint64),
		patches:    make(map[string]patch),
		subs:       make(map[int]func(Change)),
	}
}

// bind returns ctx additionally cancelled when the store is closed.
func (s *Store) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Load fetches the member list and, unless a newer load has already been
// applied, replaces the held list with it sorted by welfare number. A failed
// load is logged and leaves the held list unchanged.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	ctx, done := s.bind(ctx)
	defer done()

	members, err := s.backend.ListMembers(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		s.mu.Unlock()
		s.logger.ErrorContext(ctx, "load members", "seq", seq, "error", err)
		return fmt.Errorf("load members: %w", err)
	}
	if seq < s.applied {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "discarding stale load", "seq", seq, "applied", s.applied)
		return nil
	}

	members = slices.DeleteFunc(slices.Clone(members), func(m model.Member) bool {
		removedAt, ok := s.tombstones[m.ID]
		return ok && seq <= removedAt
	})
	for i, m := range members {
		if p, ok := s.patches[m.ID]; ok && seq <= p.seq {
			members[i] = p.member
		}
	}
	s.members = SortByWelfareNo(members)
	s.applied = seq
	s.version++
	s.prune()
	ch := Change{Kind: ChangeLoaded, Version: s.version}
	subs := s.subscribers()
	s.mu.Unlock()

	publish(subs, ch)
	return nil
}

// prune drops marks no pending load can still need. Loads issued at or
// before applied are discarded as stale, so marks at or below it are dead.
// Caller holds mu.
func (s *Store) prune() {
	for id, at := range s.tombstones {
		if at < s.applied {
			delete(s.tombstones, id)
		}
	}
	for id, p := range s.patches {
		if p.seq < s.applied {
			delete(s.patches, id)
		}
	}
}

// Remove deletes the member with the given id from the backend and, on
// success, from the held list. Without confirmation nothing is attempted.
// On failure the list is left exactly as it was.
func (s *Store) Remove(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	bctx, done := s.bind(ctx)
	err := s.backend.DeleteMember(bctx, id)
	done()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "delete member", "id", id, "error", err)
		s.notify(ctx, notify.Failure(msgDeleteFailed))
		return fmt.Errorf("delete member %s: %w", id, err)
	}

	s.members = slices.DeleteFunc(slices.Clone(s.members), func(m model.Member) bool {
		return m.ID == id
	})
	s.tombstones[id] = s.issued
	delete(s.patches, id)
	s.version++
	ch := Change{Kind: ChangeRemoved, ID: id, Version: s.version}
	subs := s.subscribers()
	s.mu.Unlock()

	s.notify(ctx, notify.Success(msgDeleted))
	publish(subs, ch)
	return nil
}

// Patch replaces the held entry with the same id after a successful edit.
// It reports whether such an entry was held.
func (s *Store) Patch(m model.Member) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	i := slices.IndexFunc(s.members, func(x model.Member) bool { return x.ID == m.ID })
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	members := slices.Clone(s.members)
	members[i] = m
	s.members = SortByWelfareNo(members)
	s.patches[m.ID] = patch{seq: s.issued, member: m}
	s.version++
	ch := Change{Kind: ChangeUpdated, ID: m.ID, Version: s.version}
	subs := s.subscribers()
	s.mu.Unlock()

	publish(subs, ch)
	return true
}

// Get returns the held member with the given id.
func (s *Store) Get(id string) (model.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.ID == id {
			return m, true
		}
	}
	return model.Member{}, false
}

// Members returns the full held list. The slice must not be modified.
func (s *Store) Members() []model.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members
}

func (s *Store) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
}

func (s *Store) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// FilteredView returns the held list filtered by the current query. The
// result is recomputed only when the list version or the query changes. The
// slice must not be modified.
func (s *Store) FilteredView() []model.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.valid && s.view.version == s.version && s.view.query == s.query {
		return s.view.members
	}
	s.view = memo{
		valid:   true,
		version: s.version,
		query:   s.query,
		members: Filter(s.members, s.query),
	}
	return s.view.members
}

// Version is bumped on every applied load, removal and patch.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Loaded reports whether any load has been applied yet.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied > 0
}

// Subscribe registers fn for every applied change and returns a function that
// removes it. fn runs on the goroutine that applied the change.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close cancels in-flight backend calls and discards any result that arrives
// afterwards. It is safe to call more than once.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.subs = make(map[int]func(Change))
	s.mu.Unlock()
	s.cancel()
}

func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// subscribers snapshots the subscriber set. Caller holds mu.
func (s *Store) subscribers() []func(Change) {
	out := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func (s *Store) notify(ctx context.Context, n notify.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, n)
	}
}

func publish(subs []func(Change), ch Change) {
	for _, fn := range subs {
		fn(ch)
	}
}

package web

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"classbook/internal/domain/session"
)

// LiveSessionTTL evicts open sessions untouched for longer.
const LiveSessionTTL = 4 * time.Hour

var (
	ErrUnknownHandle = errors.New("no open session for this handle")
	ErrNotOwner      = errors.New("session was opened by another account")
)

// liveSession is one open controller held between requests.
type liveSession struct {
	ctrl    *session.Controller
	ownerID string
	touched time.Time

	// leaveGuard is installed and removed by the controller's dirty hook;
	// discarding a guarded session needs force.
	leaveGuard atomic.Bool

	watchMu  sync.Mutex
	watchers map[chan struct{}]struct{}
	closed   bool
}

// newLiveSession returns an unregistered entry for ownerID. Pass its
// onDirtyChange to the controller before calling Registry.Add.
func newLiveSession(ownerID string) *liveSession {
	return &liveSession{ownerID: ownerID}
}

func (ls *liveSession) onDirtyChange(dirty bool) {
	ls.leaveGuard.Store(dirty)
}

// watch subscribes to change signals. Signals coalesce: a slow watcher sees
// one pending signal, not one per change. The channel is closed when the
// session leaves the registry.
// POST: stop must be called once the caller no longer reads
func (ls *liveSession) watch() (changes <-chan struct{}, stop func()) {
	ch := make(chan struct{}, 1)
	ls.watchMu.Lock()
	defer ls.watchMu.Unlock()
	if ls.closed {
		close(ch)
		return ch, func() {}
	}
	if ls.watchers == nil {
		ls.watchers = make(map[chan struct{}]struct{})
	}
	ls.watchers[ch] = struct{}{}
	return ch, func() {
		ls.watchMu.Lock()
		defer ls.watchMu.Unlock()
		if _, ok := ls.watchers[ch]; ok {
			delete(ls.watchers, ch)
			close(ch)
		}
	}
}

// notify signals every watcher without blocking.
func (ls *liveSession) notify() {
	ls.watchMu.Lock()
	defer ls.watchMu.Unlock()
	for ch := range ls.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// close ends every watch. Later watch calls get a closed channel.
func (ls *liveSession) close() {
	ls.watchMu.Lock()
	defer ls.watchMu.Unlock()
	ls.closed = true
	for ch := range ls.watchers {
		close(ch)
	}
	ls.watchers = nil
}

// Registry holds the open sessions of all instructors by opaque handle.
// INVARIANT: a handle is only ever served to the account that opened it
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry creates an empty registry.
// PRE: ttl > 0
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*liveSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Add registers a controller and returns its handle.
// PRE: ls came from newLiveSession and ctrl reports dirty changes to it
// POST: Expired sessions are evicted
func (g *Registry) Add(ls *liveSession, ctrl *session.Controller) string {
	handle := uuid.NewString()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evictLocked()
	ls.ctrl = ctrl
	ls.touched = g.now()
	g.sessions[handle] = ls
	return handle
}

// Get returns the open session for handle and refreshes its expiry.
// POST: Returns ErrUnknownHandle or ErrNotOwner when the caller may not use it
func (g *Registry) Get(handle, ownerID string) (*liveSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evictLocked()
	ls, ok := g.sessions[handle]
	if !ok {
		return nil, ErrUnknownHandle
	}
	if ls.ownerID != ownerID {
		return nil, ErrNotOwner
	}
	ls.touched = g.now()
	return ls, nil
}

// Discard closes an open session. A session with unsaved changes is only
// discarded when force is set; one with a submit outstanding never is.
func (g *Registry) Discard(handle, ownerID string, force bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ls, ok := g.sessions[handle]
	if !ok {
		return ErrUnknownHandle
	}
	if ls.ownerID != ownerID {
		return ErrNotOwner
	}
	if ls.ctrl.Submitting() {
		return session.ErrSubmitInProgress
	}
	if ls.leaveGuard.Load() && !force {
		return session.ErrUnsavedChanges
	}
	delete(g.sessions, handle)
	ls.close()
	slog.Info("session_discarded", "handle", handle, "owner", ownerID, "dirty", ls.leaveGuard.Load())
	return nil
}

// Retire removes a submitted session and ends its watches. Watchers still
// receive any pending change before the close.
func (g *Registry) Retire(handle string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ls, ok := g.sessions[handle]
	if !ok {
		return
	}
	delete(g.sessions, handle)
	ls.close()
	slog.Info("session_retired", "handle", handle, "owner", ls.ownerID)
}

// Len returns the number of open sessions.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

func (g *Registry) evictLocked() {
	cutoff := g.now().Add(-g.ttl)
	for handle, ls := range g.sessions {
		if ls.touched.Before(cutoff) && !ls.ctrl.Submitting() {
			delete(g.sessions, handle)
			ls.close()
			slog.Warn("session_expired", "handle", handle, "owner", ls.ownerID, "dirty", ls.leaveGuard.Load())
		}
	}
}

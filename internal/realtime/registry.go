package realtime

import (
	"errors"
	"sync"

	"github.com/samber/lo"

	"github.com/zhouzirui/seance/backend/internal/model/event"
)

var (
	// ErrAlreadyRegistered is returned when a connection joins the same session twice.
	ErrAlreadyRegistered = errors.New("connection already registered for session")
	// ErrSessionFull is returned by RegisterWithin when the session is at capacity.
	ErrSessionFull = errors.New("session is full")
)

// Conn is one live network channel owned by the registry while registered.
type Conn interface {
	ID() string
	Send(env event.Envelope) error
	Close() error
}

// Registry tracks live connections per session and the user attached to each.
//
// Connections of a session are kept in join order. A session with no
// connections left is removed, so no empty entries persist. All methods are
// safe for concurrent use; none of them perform I/O while holding the lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string][]Conn
	users    map[membership]event.UserInfo
}

// membership 标识连接在某个会话中的一次注册。
type membership struct {
	sessionID string
	conn      Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string][]Conn),
		users:    make(map[membership]event.UserInfo),
	}
}

// Register adds conn to the session and attaches its user info.
// The session entry is created on the fly. The info stays fixed until the
// connection leaves that session.
func (r *Registry) Register(sessionID string, conn Conn, info event.UserInfo) error {
	return r.RegisterWithin(sessionID, conn, info, 0)
}

// RegisterWithin is Register with a capacity check done under the same lock.
// A limit <= 0 means unlimited.
func (r *Registry) RegisterWithin(sessionID string, conn Conn, info event.UserInfo, limit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.sessions[sessionID]
	if lo.Contains(members, conn) {
		return ErrAlreadyRegistered
	}
	if limit > 0 && len(members) >= limit {
		return ErrSessionFull
	}

	r.sessions[sessionID] = append(r.sessions[sessionID], conn)
	r.users[membership{sessionID: sessionID, conn: conn}] = info
	return nil
}

// Unregister removes conn from the session and returns the user info that
// was attached to it there. It reports false when conn is not a member of
// the session, including on a second call.
func (r *Registry) Unregister(conn Conn, sessionID string) (event.UserInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.sessions[sessionID]
	if !lo.Contains(members, conn) {
		return event.UserInfo{}, false
	}

	remaining := lo.Without(members, conn)
	if len(remaining) == 0 {
		delete(r.sessions, sessionID)
	} else {
		r.sessions[sessionID] = remaining
	}

	key := membership{sessionID: sessionID, conn: conn}
	info := r.users[key]
	delete(r.users, key)
	return info, true
}

// ListSessionUsers returns the users of a session in join order.
func (r *Registry) ListSessionUsers(sessionID string) []event.UserInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]event.UserInfo, 0, len(r.sessions[sessionID]))
	for _, conn := range r.sessions[sessionID] {
		if info, ok := r.users[membership{sessionID: sessionID, conn: conn}]; ok {
			users = append(users, info)
		}
	}
	return users
}

// Connections returns a snapshot of the session's connections in join order.
func (r *Registry) Connections(sessionID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Conn(nil), r.sessions[sessionID]...)
}

// Count reports how many connections a session currently holds.
func (r *Registry) Count(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions[sessionID])
}

// Sessions lists the ids of sessions with at least one live connection.
func (r *Registry) Sessions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Keys(r.sessions)
}

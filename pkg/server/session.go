package server

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/perchbird/customtags/pkg/irc"
)

// ErrNickInUse is returned when a nickname is already bound to another
// session.
var ErrNickInUse = errors.New("nickname is already in use")

// Session represents an active client connection on any transport.
type Session struct {
	ID         uint64
	Conn       *SafeConn // Connection with automatic write synchronization
	RemoteAddr string    // Remote address
	ConnType   string    // "tcp", "websocket", "ssh", or "services"
	Caps       *irc.CapabilitySet

	mu             sync.RWMutex // Protects the fields below
	nickname       string
	username       string
	realname       string
	registered     bool
	services       bool   // Authenticated as the services client
	capNegotiating bool   // CAP negotiation in progress, welcome burst held back
	quitReason     string // Reason given on QUIT, used in the departure broadcast

	lastActivity atomic.Int64 // UnixMilli of the last line received
}

// Nickname returns the session's current nickname ("" before NICK).
func (s *Session) Nickname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nickname
}

func (s *Session) setNickname(nick string) {
	s.mu.Lock()
	s.nickname = nick
	s.mu.Unlock()
}

// SetUser records the USER command's username and realname.
func (s *Session) SetUser(username, realname string) {
	s.mu.Lock()
	s.username = username
	s.realname = realname
	s.mu.Unlock()
}

// Username returns the USER command's username ("" before USER).
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.username
}

// Realname returns the USER command's realname.
func (s *Session) Realname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.realname
}

// Registered reports whether the session completed registration.
func (s *Session) Registered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.registered
}

func (s *Session) markRegistered() {
	s.mu.Lock()
	s.registered = true
	s.mu.Unlock()
}

// ReadyToRegister reports whether NICK and USER are both in and no CAP
// negotiation is holding registration open.
func (s *Session) ReadyToRegister() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return !s.registered && !s.capNegotiating && s.nickname != "" && s.username != ""
}

// IsServices reports whether the session authenticated as services.
func (s *Session) IsServices() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.services
}

func (s *Session) markServices() {
	s.mu.Lock()
	s.services = true
	s.mu.Unlock()
}

// CapNegotiating reports whether a CAP exchange is holding back the welcome
// burst.
func (s *Session) CapNegotiating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.capNegotiating
}

func (s *Session) setCapNegotiating(v bool) {
	s.mu.Lock()
	s.capNegotiating = v
	s.mu.Unlock()
}

func (s *Session) setQuitReason(reason string) {
	s.mu.Lock()
	s.quitReason = reason
	s.mu.Unlock()
}

// QuitReason returns the reason for the departure broadcast.
func (s *Session) QuitReason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.quitReason == "" {
		return "Connection closed"
	}
	return s.quitReason
}

// Host returns the session's remote host without the port.
func (s *Session) Host() string {
	host := s.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	host = strings.Trim(host, "[]")
	if host == "" {
		host = "unknown"
	}
	return host
}

// Prefix returns the nick!user@host source for messages relayed on behalf of
// this session.
func (s *Session) Prefix() string {
	host := s.Host()

	s.mu.RLock()
	defer s.mu.RUnlock()

	username := s.username
	if username == "" {
		username = "*"
	}
	return s.nickname + "!" + username + "@" + host
}

// HasCap reports whether the session negotiated the named capability. This
// makes Session a tags.Recipient.
func (s *Session) HasCap(name string) bool {
	return s.Caps.Has(name)
}

// Touch records activity now.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixMilli())
}

// IdleSince returns the time of the last received line.
func (s *Session) IdleSince() time.Time {
	return time.UnixMilli(s.lastActivity.Load())
}

// foldNick maps a nickname to its case-insensitive form (CASEMAPPING=ascii).
func foldNick(nick string) string {
	return strings.ToLower(nick)
}

// SessionManager manages all active sessions
type SessionManager struct {
	sessions map[uint64]*Session
	byNick   map[string]*Session // folded nickname -> session
	nextID   uint64
	mu       sync.RWMutex
	metrics  *Metrics
}

// NewSessionManager creates a new session manager
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[uint64]*Session),
		byNick:   make(map[string]*Session),
		nextID:   1,
	}
}

// SetMetrics attaches metrics to the session manager
func (sm *SessionManager) SetMetrics(metrics *Metrics) {
	sm.metrics = metrics
}

// CreateSession creates a new session around an accepted connection.
func (sm *SessionManager) CreateSession(conn *SafeConn, connType string) *Session {
	// Allocate session ID atomically (no lock needed)
	sessionID := atomic.AddUint64(&sm.nextID, 1) - 1

	sess := &Session{
		ID:         sessionID,
		Conn:       conn,
		RemoteAddr: conn.RemoteAddr().String(),
		ConnType:   connType,
		Caps:       irc.NewCapabilitySet(),
	}
	sess.Touch()

	// Only acquire lock for map insertion (critical section)
	sm.mu.Lock()
	sm.sessions[sessionID] = sess
	sessionCount := len(sm.sessions)
	sm.mu.Unlock()

	// Update metrics outside lock
	if sm.metrics != nil {
		sm.metrics.RecordActiveSessions(sessionCount)
		sm.metrics.RecordSessionCreated()
	}

	return sess
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(sessionID uint64) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sess, ok := sm.sessions[sessionID]
	return sess, ok
}

// GetAllSessions returns all active sessions
func (sm *SessionManager) GetAllSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

// BindNick binds a nickname to the session, releasing any nickname it held
// before. Fails with ErrNickInUse when another session holds the name under
// case-insensitive comparison.
func (sm *SessionManager) BindNick(sess *Session, nick string) error {
	folded := foldNick(nick)

	sm.mu.Lock()
	if holder, ok := sm.byNick[folded]; ok && holder.ID != sess.ID {
		sm.mu.Unlock()
		return ErrNickInUse
	}
	if old := sess.Nickname(); old != "" {
		delete(sm.byNick, foldNick(old))
	}
	sm.byNick[folded] = sess
	sm.mu.Unlock()

	// Changing only the case of your own nick lands here too
	sess.setNickname(nick)
	return nil
}

// FindNick resolves a nickname to a session ID, case-insensitively. This
// makes SessionManager a tags.NickLookup.
func (sm *SessionManager) FindNick(nick string) (uint64, bool) {
	sess, ok := sm.FindNickSession(nick)
	if !ok {
		return 0, false
	}
	return sess.ID, true
}

// FindNickSession resolves a nickname to its session, case-insensitively.
func (sm *SessionManager) FindNickSession(nick string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sess, ok := sm.byNick[foldNick(nick)]
	return sess, ok
}

// RemoveSession removes a session, releases its nickname, and closes the
// connection.
func (sm *SessionManager) RemoveSession(sessionID uint64) {
	sm.mu.Lock()
	sess, ok := sm.sessions[sessionID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	delete(sm.sessions, sessionID)
	if nick := sess.Nickname(); nick != "" {
		if holder, bound := sm.byNick[foldNick(nick)]; bound && holder.ID == sessionID {
			delete(sm.byNick, foldNick(nick))
		}
	}
	sessionCount := len(sm.sessions)
	sm.mu.Unlock()

	// Update metrics
	if sm.metrics != nil {
		sm.metrics.RecordActiveSessions(sessionCount)
		sm.metrics.RecordSessionDisconnected()
	}

	// Close connection
	sess.Conn.Close()
}

// CountOnline returns the number of currently connected sessions.
func (sm *SessionManager) CountOnline() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return len(sm.sessions)
}

// CloseAll closes all sessions
func (sm *SessionManager) CloseAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, sess := range sm.sessions {
		sess.Conn.Close()
	}

	sm.sessions = make(map[uint64]*Session)
	sm.byNick = make(map[string]*Session)
}

package server

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memConn is an in-memory lineConn for tests that never touch a socket.
type memConn struct {
	mu      sync.Mutex
	written []string
	closed  bool
}

func (c *memConn) ReadLine() (string, error) { select {} }

func (c *memConn) WriteRaw(line []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, string(line))
	return nil
}

func (c *memConn) SetWriteDeadline(t time.Time) error { return nil }

func (c *memConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *memConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.ParseIP("192.0.2.10"), Port: 52000}
}

func (c *memConn) wasClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestSession(t *testing.T, sm *SessionManager) (*Session, *memConn) {
	t.Helper()
	conn := &memConn{}
	sess := sm.CreateSession(&SafeConn{conn: conn}, "tcp")
	return sess, conn
}

func TestSessionManagerCreateAssignsIDs(t *testing.T) {
	sm := NewSessionManager()

	first, _ := newTestSession(t, sm)
	second, _ := newTestSession(t, sm)

	assert.Equal(t, uint64(1), first.ID)
	assert.Equal(t, uint64(2), second.ID)
	assert.Equal(t, 2, sm.CountOnline())
}

func TestBindNickConflicts(t *testing.T) {
	sm := NewSessionManager()
	alice, _ := newTestSession(t, sm)
	bob, _ := newTestSession(t, sm)

	require.NoError(t, sm.BindNick(alice, "Alice"))

	// Conflicts are case-insensitive
	assert.ErrorIs(t, sm.BindNick(bob, "alice"), ErrNickInUse)
	assert.ErrorIs(t, sm.BindNick(bob, "ALICE"), ErrNickInUse)

	// Changing only the case of your own nick is allowed
	require.NoError(t, sm.BindNick(alice, "ALICE"))
	assert.Equal(t, "ALICE", alice.Nickname())

	// Rebinding releases the old name for others
	require.NoError(t, sm.BindNick(alice, "carol"))
	require.NoError(t, sm.BindNick(bob, "Alice"))
}

func TestFindNick(t *testing.T) {
	sm := NewSessionManager()
	alice, _ := newTestSession(t, sm)
	require.NoError(t, sm.BindNick(alice, "Alice"))

	id, ok := sm.FindNick("alice")
	require.True(t, ok)
	assert.Equal(t, alice.ID, id)

	sess, ok := sm.FindNickSession("ALICE")
	require.True(t, ok)
	assert.Same(t, alice, sess)

	_, ok = sm.FindNick("nobody")
	assert.False(t, ok)
}

func TestRemoveSessionReleasesNick(t *testing.T) {
	sm := NewSessionManager()
	alice, conn := newTestSession(t, sm)
	require.NoError(t, sm.BindNick(alice, "alice"))

	sm.RemoveSession(alice.ID)

	assert.True(t, conn.wasClosed())
	assert.Equal(t, 0, sm.CountOnline())
	_, ok := sm.FindNick("alice")
	assert.False(t, ok)

	// Removing twice is a no-op
	sm.RemoveSession(alice.ID)
}

func TestCloseAll(t *testing.T) {
	sm := NewSessionManager()
	_, conn1 := newTestSession(t, sm)
	alice, conn2 := newTestSession(t, sm)
	require.NoError(t, sm.BindNick(alice, "alice"))

	sm.CloseAll()

	assert.True(t, conn1.wasClosed())
	assert.True(t, conn2.wasClosed())
	assert.Equal(t, 0, sm.CountOnline())
	_, ok := sm.FindNick("alice")
	assert.False(t, ok)
}

func TestSessionPrefix(t *testing.T) {
	sm := NewSessionManager()
	sess, _ := newTestSession(t, sm)
	require.NoError(t, sm.BindNick(sess, "alice"))

	// Before USER the username placeholder is *
	assert.Equal(t, "alice!*@192.0.2.10", sess.Prefix())

	sess.SetUser("alice", "Alice Example")
	assert.Equal(t, "alice!alice@192.0.2.10", sess.Prefix())
	assert.Equal(t, "192.0.2.10", sess.Host())
}

func TestSessionHostIPv6(t *testing.T) {
	sess := &Session{RemoteAddr: "[::1]:52000"}
	assert.Equal(t, "::1", sess.Host())
}

func TestReadyToRegister(t *testing.T) {
	sm := NewSessionManager()
	sess, _ := newTestSession(t, sm)

	assert.False(t, sess.ReadyToRegister())

	require.NoError(t, sm.BindNick(sess, "alice"))
	assert.False(t, sess.ReadyToRegister())

	sess.SetUser("alice", "Alice Example")
	assert.True(t, sess.ReadyToRegister())

	// CAP negotiation holds registration open
	sess.setCapNegotiating(true)
	assert.False(t, sess.ReadyToRegister())
	sess.setCapNegotiating(false)
	assert.True(t, sess.ReadyToRegister())

	sess.markRegistered()
	assert.False(t, sess.ReadyToRegister())
}

func TestQuitReasonDefault(t *testing.T) {
	sess := &Session{}
	assert.Equal(t, "Connection closed", sess.QuitReason())

	sess.setQuitReason("Going home")
	assert.Equal(t, "Going home", sess.QuitReason())
}

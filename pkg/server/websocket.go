package server

import (
	"bytes"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  readBufferSize,
	WriteBufferSize: readBufferSize,
	// Browser IRC clients connect from arbitrary origins
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades an HTTP request to a WebSocket session and runs
// the standard message loop over it. Each text frame carries one IRC line
// without its CRLF terminator.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		debugLog.Printf("WebSocket upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	// Upgraded connections are hijacked, so http.Server.Shutdown does not
	// wait for this handler. addWorker orders it against Stop instead.
	if !s.addWorker() {
		conn.Close()
		return
	}
	defer s.wg.Done()

	sess := s.sessions.CreateSession(newSafeWebSocketConn(conn), "websocket")

	// Shutdown may have swept the session map between the upgrade and here
	select {
	case <-s.shutdown:
		s.removeSession(sess.ID)
		return
	default:
	}

	s.connectionsSinceReport.Add(1)
	s.metrics.RecordConnection("websocket")
	debugLog.Printf("New WebSocket connection from %s (session %d)", conn.RemoteAddr(), sess.ID)

	s.messageLoop(sess)
}

// newSafeWebSocketConn wraps an upgraded WebSocket connection.
func newSafeWebSocketConn(conn *websocket.Conn) *SafeConn {
	return &SafeConn{conn: &wsLineConn{conn: conn}}
}

// wsLineConn adapts a WebSocket connection to line IO, one line per text
// frame. Non-text frames are skipped; gorilla handles ping/pong control
// frames internally.
type wsLineConn struct {
	conn *websocket.Conn
}

func (c *wsLineConn) ReadLine() (string, error) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return string(bytes.TrimRight(data, "\r\n")), nil
	}
}

func (c *wsLineConn) WriteRaw(line []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, bytes.TrimRight(line, "\r\n"))
}

func (c *wsLineConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *wsLineConn) Close() error {
	return c.conn.Close()
}

func (c *wsLineConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

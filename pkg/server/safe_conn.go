package server

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"time"
)

// readBufferSize fits a maximally tagged line: 8191 bytes of tags plus the
// 512-byte message body.
const readBufferSize = 8704

// writeTimeout bounds how long one slow client can stall a delivery fan-out.
const writeTimeout = 30 * time.Second

// lineConn moves one IRC line at a time over some transport. Implemented by
// tcpLineConn for plain sockets, wsLineConn for WebSocket clients, and
// sshLineConn for SSH session channels.
type lineConn interface {
	// ReadLine returns the next line without its CRLF terminator.
	ReadLine() (string, error)
	// WriteRaw writes an already CRLF-terminated line.
	WriteRaw(line []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
	RemoteAddr() net.Addr
}

// SafeConn wraps a lineConn with automatic write synchronization to prevent
// concurrent writes from interleaving bytes mid-line.
//
// Under load, multiple goroutines (the session's own reply path and delivery
// fan-out from every other session) write to the same connection. SafeConn
// encapsulates both the transport and its write mutex, making it impossible
// to write without proper synchronization.
type SafeConn struct {
	conn lineConn
	mu   sync.Mutex // Protects writes to conn
}

// NewSafeConn wraps a stream connection with write synchronization.
func NewSafeConn(conn net.Conn) *SafeConn {
	return &SafeConn{conn: newTCPLineConn(conn)}
}

// WriteLine sends one CRLF-terminated line with automatic write
// synchronization. This is the ONLY way to write to the connection - the
// transport is private.
func (sc *SafeConn) WriteLine(line []byte) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return sc.conn.WriteRaw(line)
}

// ReadLine reads the next line from the connection.
// Reads don't need write synchronization.
func (sc *SafeConn) ReadLine() (string, error) {
	return sc.conn.ReadLine()
}

// Close closes the underlying connection
func (sc *SafeConn) Close() error {
	return sc.conn.Close()
}

// RemoteAddr returns the remote network address
func (sc *SafeConn) RemoteAddr() net.Addr {
	return sc.conn.RemoteAddr()
}

// tcpLineConn adapts a stream connection to line IO. Lines longer than the
// read buffer fail the read, which ends the session.
type tcpLineConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func newTCPLineConn(conn net.Conn) *tcpLineConn {
	return &tcpLineConn{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, readBufferSize),
	}
}

func (c *tcpLineConn) ReadLine() (string, error) {
	line, err := c.reader.ReadSlice('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

func (c *tcpLineConn) WriteRaw(line []byte) error {
	_, err := c.conn.Write(line)
	return err
}

func (c *tcpLineConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *tcpLineConn) Close() error {
	return c.conn.Close()
}

func (c *tcpLineConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

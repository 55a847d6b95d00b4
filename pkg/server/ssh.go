package server

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// sshHandshakeTimeout bounds the SSH handshake so a stalled client cannot
// pin the shutdown WaitGroup.
const sshHandshakeTimeout = 10 * time.Second

// buildSSHServerConfig loads the host key and assembles the handshake
// configuration. Clients identify in-band with NICK and USER, so the SSH
// layer itself accepts anyone.
func (s *Server) buildSSHServerConfig() (*ssh.ServerConfig, error) {
	hostKey, err := s.loadOrGenerateHostKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load host key: %w", err)
	}

	config := &ssh.ServerConfig{
		NoClientAuth:  true,
		ServerVersion: "SSH-2.0-customtags",
	}
	config.AddHostKey(hostKey)
	return config, nil
}

// acceptSSHLoop accepts SSH transport connections on the SSH listener.
func (s *Server) acceptSSHLoop(listener net.Listener, config *ssh.ServerConfig) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Printf("Accept error on ssh listener: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleSSHConnection(conn, config)
	}
}

// handleSSHConnection runs the SSH handshake, then serves the IRC line
// protocol over each session channel the client opens.
func (s *Server) handleSSHConnection(conn net.Conn, config *ssh.ServerConfig) {
	defer s.wg.Done()
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(sshHandshakeTimeout))
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		debugLog.Printf("SSH handshake from %s failed: %v", conn.RemoteAddr(), err)
		return
	}
	conn.SetDeadline(time.Time{})
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	// CloseAll tears down session channels, not the transport underneath
	// them, so Stop needs its own path to end the channel loop below
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.shutdown:
			sshConn.Close()
		case <-done:
		}
	}()

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			debugLog.Printf("SSH channel accept from %s failed: %v", sshConn.RemoteAddr(), err)
			continue
		}

		// Channel sessions outlive the handshake goroutine, so they take
		// their own worker slot, like upgraded WebSocket connections do
		if !s.addWorker() {
			channel.Close()
			continue
		}
		go func() {
			defer s.wg.Done()
			go acceptSSHSessionRequests(requests)
			s.runSSHSession(channel, sshConn.RemoteAddr())
		}()
	}
}

// acceptSSHSessionRequests grants the channel requests an interactive ssh
// client sends while setting up, and declines the rest.
func acceptSSHSessionRequests(requests <-chan *ssh.Request) {
	for req := range requests {
		switch req.Type {
		case "shell", "pty-req", "env", "window-change":
			if req.WantReply {
				req.Reply(true, nil)
			}
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

// runSSHSession speaks the IRC line protocol over one SSH session channel.
func (s *Server) runSSHSession(channel ssh.Channel, remote net.Addr) {
	sess := s.sessions.CreateSession(newSafeSSHConn(channel, remote), "ssh")

	// Shutdown may have swept the session map between accept and here
	select {
	case <-s.shutdown:
		s.removeSession(sess.ID)
		return
	default:
	}

	s.connectionsSinceReport.Add(1)
	s.metrics.RecordConnection("ssh")
	debugLog.Printf("New ssh connection from %s (session %d)", remote, sess.ID)

	s.messageLoop(sess)
}

// newSafeSSHConn wraps an accepted SSH session channel.
func newSafeSSHConn(channel ssh.Channel, remote net.Addr) *SafeConn {
	return &SafeConn{conn: &sshLineConn{
		channel: channel,
		reader:  bufio.NewReaderSize(channel, readBufferSize),
		remote:  remote,
	}}
}

// sshLineConn adapts an SSH session channel to line IO. The channel has no
// write deadlines; a stalled client is bounded by its SSH flow-control
// window instead.
type sshLineConn struct {
	channel ssh.Channel
	reader  *bufio.Reader
	remote  net.Addr
}

func (c *sshLineConn) ReadLine() (string, error) {
	line, err := c.reader.ReadSlice('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

func (c *sshLineConn) WriteRaw(line []byte) error {
	_, err := c.channel.Write(line)
	return err
}

func (c *sshLineConn) SetWriteDeadline(t time.Time) error { return nil }

func (c *sshLineConn) Close() error {
	return c.channel.Close()
}

func (c *sshLineConn) RemoteAddr() net.Addr {
	return c.remote
}

// loadOrGenerateHostKey loads the SSH host key, generating and saving a new
// one on first start. An empty configured path falls back to the server
// data directory.
func (s *Server) loadOrGenerateHostKey() (ssh.Signer, error) {
	keyPath := s.config.SSHHostKeyPath
	if strings.HasPrefix(keyPath, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		keyPath = filepath.Join(homeDir, keyPath[2:])
	}
	if strings.TrimSpace(keyPath) == "" {
		dataDir, err := getServerDataDir()
		if err != nil {
			return nil, err
		}
		keyPath = filepath.Join(dataDir, "ssh_host_key")
	}

	// Try to load existing key
	keyBytes, err := os.ReadFile(keyPath)
	if err == nil {
		key, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse host key: %w", err)
		}
		log.Printf("Loaded SSH host key from %s", keyPath)
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read host key: %w", err)
	}

	log.Printf("Generating new SSH host key at %s...", keyPath)

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	privateKeyPEM := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}

	if err := os.MkdirAll(filepath.Dir(keyPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	keyFile, err := os.OpenFile(keyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create key file: %w", err)
	}
	defer keyFile.Close()

	if err := pem.Encode(keyFile, privateKeyPEM); err != nil {
		return nil, fmt.Errorf("failed to write key: %w", err)
	}

	key, err := ssh.ParsePrivateKey(pem.EncodeToMemory(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated key: %w", err)
	}

	log.Printf("Generated and saved new SSH host key")
	return key, nil
}

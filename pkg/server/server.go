package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"golang.org/x/crypto/ssh"

	"github.com/perchbird/customtags/pkg/irc"
	"github.com/perchbird/customtags/pkg/tags"
)

// serverVersion is reported in the welcome burst.
const serverVersion = "customtags-1.0"

// serverTimeFormat is the IRCv3 server-time timestamp layout.
const serverTimeFormat = "2006-01-02T15:04:05.000Z"

var (
	errorLog *log.Logger
	debugLog *log.Logger
)

// Server is the IRC server: client and services listeners, session and
// channel state, and the tag injection pipeline.
type Server struct {
	config     ServerConfig
	configPath string

	sessions    *SessionManager
	channels    *ChannelRegistry
	tagStore    *tags.Store
	resolver    *tags.Resolver
	tagProvider *tags.Provider
	metrics     *Metrics

	listener         net.Listener // client TCP
	servicesListener net.Listener
	sshListener      net.Listener
	wsListener       net.Listener
	wsServer         *http.Server
	metricsListener  net.Listener
	metricsServer    *http.Server

	shutdown  chan struct{}
	wg        sync.WaitGroup
	stopMu    sync.Mutex
	stopping  bool
	startTime time.Time
	reloadMu  sync.Mutex

	// Connection deltas for periodic reporting
	connectionsSinceReport    atomic.Int64
	disconnectionsSinceReport atomic.Int64
}

// ServerConfig holds server configuration
type ServerConfig struct {
	ServerName  string
	NetworkName string

	TCPPort      int // 0 = ephemeral, for tests
	ServicesPort int

	WSEnabled bool
	WSPort    int

	SSHEnabled     bool
	SSHPort        int
	SSHHostKeyPath string // "" = <data dir>/ssh_host_key

	MetricsEnabled bool
	MetricsPort    int

	IdleTimeoutSeconds int // <= 0 disables the idle sweep
	MaxNickLen         int
	MOTD               string // message of the day, "" sends ERR_NOMOTD

	ServicesPasswordHash    string // bcrypt hash; "" rejects all services logins
	ServicesRequireLoopback bool

	Vendor      string         // Tag vendor prefix ("" = ServerName)
	SpecialMsgs map[string]int // command -> nick parameter index
}

// DefaultConfig returns default server configuration
func DefaultConfig() ServerConfig {
	table := make(map[string]int)
	for _, entry := range DefaultSpecialMsgs() {
		table[entry.Command] = entry.Index
	}
	return ServerConfig{
		ServerName:         "irc.localhost",
		NetworkName:        "CustomTags",
		TCPPort:            6667,
		ServicesPort:       7766,
		WSEnabled:          true,
		WSPort:             8080,
		MetricsEnabled:     true,
		MetricsPort:        9090,
		IdleTimeoutSeconds: 240, // 4 minutes
		MaxNickLen:         32,
		SpecialMsgs:        table,
	}
}

// VendorPrefix returns the configured tag vendor, falling back to the server
// name.
func (c ServerConfig) VendorPrefix() string {
	if strings.TrimSpace(c.Vendor) != "" {
		return c.Vendor
	}
	return c.ServerName
}

// NewServer creates a new server instance
func NewServer(config ServerConfig, configPath string) (*Server, error) {
	// Initialize loggers
	if err := initLoggers(); err != nil {
		return nil, fmt.Errorf("failed to initialize loggers: %w", err)
	}

	metrics := NewMetrics()
	sessions := NewSessionManager()
	sessions.SetMetrics(metrics)

	store := tags.NewStore()
	store.SetDebugLogger(debugLog)

	resolver := tags.NewResolver(sessions)
	resolver.SetTable(config.SpecialMsgs)

	server := &Server{
		config:      config,
		configPath:  configPath,
		sessions:    sessions,
		channels:    NewChannelRegistry(),
		tagStore:    store,
		resolver:    resolver,
		tagProvider: tags.NewProvider(store, resolver, config.VendorPrefix()),
		metrics:     metrics,
		shutdown:    make(chan struct{}),
		startTime:   time.Now(),
	}

	return server, nil
}

// getServerDataDir returns the server data directory, creating it if needed
func getServerDataDir() (string, error) {
	var dataDir string
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		dataDir = filepath.Join(xdg, "customtags")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share", "customtags")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}

// initLoggers sets up error and debug loggers. Loggers already installed
// (tests swap in their own) are left alone.
func initLoggers() error {
	if errorLog != nil && debugLog != nil {
		return nil
	}

	// Get server data directory
	dataDir, err := getServerDataDir()
	if err != nil {
		return err
	}

	// Error log goes to stderr and errors.log
	errorLogPath := filepath.Join(dataDir, "errors.log")
	errorFile, err := os.OpenFile(errorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	// Write startup marker to errors.log (for distinguishing between runs)
	startupMsg := fmt.Sprintf("=== Server started at %s ===\n", time.Now().Format(time.RFC3339))
	if _, err := errorFile.WriteString(startupMsg); err != nil {
		return err
	}

	errorLog = log.New(io.MultiWriter(os.Stderr, errorFile), "ERROR: ", log.LstdFlags)

	// Debug log goes to /dev/null by default (can be enabled via EnableDebugLogging)
	debugLog = log.New(io.Discard, "DEBUG: ", log.LstdFlags)

	return nil
}

// EnableDebugLogging enables debug logging to debug.log
func (s *Server) EnableDebugLogging() {
	// Get server data directory
	dataDir, err := getServerDataDir()
	if err != nil {
		log.Printf("Failed to get data directory: %v", err)
		return
	}

	// Create/truncate debug.log
	debugLogPath := filepath.Join(dataDir, "debug.log")
	debugLogFile, err := os.OpenFile(debugLogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		log.Printf("Failed to open debug.log: %v", err)
		return
	}

	debugLog = log.New(debugLogFile, "DEBUG: ", log.LstdFlags)
	s.tagStore.SetDebugLogger(debugLog)
	debugLog.Println("Debug logging enabled")
}

// Start brings up all listeners and background loops. All listeners are
// bound before any goroutine is spawned, so a failed Start leaves nothing
// running.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.TCPPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	servicesAddr := fmt.Sprintf(":%d", s.config.ServicesPort)
	servicesListener, err := net.Listen("tcp", servicesAddr)
	if err != nil {
		s.listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", servicesAddr, err)
	}
	s.servicesListener = servicesListener

	if s.config.WSEnabled {
		wsListener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.WSPort))
		if err != nil {
			s.listener.Close()
			s.servicesListener.Close()
			return fmt.Errorf("failed to listen for websocket: %w", err)
		}
		s.wsListener = wsListener
	}

	var sshConfig *ssh.ServerConfig
	if s.config.SSHEnabled {
		config, err := s.buildSSHServerConfig()
		if err != nil {
			s.listener.Close()
			s.servicesListener.Close()
			if s.wsListener != nil {
				s.wsListener.Close()
			}
			return err
		}
		sshListener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.SSHPort))
		if err != nil {
			s.listener.Close()
			s.servicesListener.Close()
			if s.wsListener != nil {
				s.wsListener.Close()
			}
			return fmt.Errorf("failed to listen for ssh: %w", err)
		}
		s.sshListener = sshListener
		sshConfig = config
	}

	if s.config.MetricsEnabled {
		metricsListener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.MetricsPort))
		if err != nil {
			s.listener.Close()
			s.servicesListener.Close()
			if s.wsListener != nil {
				s.wsListener.Close()
			}
			if s.sshListener != nil {
				s.sshListener.Close()
			}
			return fmt.Errorf("failed to listen for metrics: %w", err)
		}
		s.metricsListener = metricsListener
	}

	log.Printf("TCP listener on %s", s.listener.Addr())
	log.Printf("Services listener on %s", s.servicesListener.Addr())
	if s.sshListener != nil {
		log.Printf("SSH listener on %s", s.sshListener.Addr())
	}

	// WebSocket server
	if s.wsListener != nil {
		wsMux := http.NewServeMux()
		wsMux.HandleFunc("/ws", s.HandleWebSocket)
		wsMux.HandleFunc("/health", s.HealthHandler)
		s.wsServer = &http.Server{Handler: wsMux}

		srv, ln := s.wsServer, s.wsListener
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log.Printf("WebSocket server listening on %s (/ws, /health)", ln.Addr())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("WebSocket server error: %v", err)
			}
		}()
	}

	// Metrics server (internal only - never expose publicly!)
	if s.metricsListener != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", s.metrics.Handler())
		metricsMux.HandleFunc("/health", s.HealthHandler)
		s.metricsServer = &http.Server{Handler: metricsMux}

		srv, ln := s.metricsServer, s.metricsListener
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log.Printf("Metrics server listening on %s (/metrics, /health) - INTERNAL ONLY", ln.Addr())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Periodic churn reporting
	s.wg.Add(1)
	go s.metricsLoggingLoop()

	// Idle session sweeping
	if s.config.IdleTimeoutSeconds > 0 {
		s.wg.Add(1)
		go s.idleSweepLoop()
	}

	// Accept connections
	s.wg.Add(1)
	go s.acceptLoop(s.listener, "tcp")
	s.wg.Add(1)
	go s.acceptLoop(s.servicesListener, "services")
	if s.sshListener != nil {
		s.wg.Add(1)
		go s.acceptSSHLoop(s.sshListener, sshConfig)
	}

	return nil
}

// TCPAddr returns the client listener's address, nil before Start.
func (s *Server) TCPAddr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ServicesAddr returns the services listener's address, nil before Start.
func (s *Server) ServicesAddr() net.Addr {
	if s.servicesListener == nil {
		return nil
	}
	return s.servicesListener.Addr()
}

// SSHAddr returns the SSH listener's address, nil when disabled.
func (s *Server) SSHAddr() net.Addr {
	if s.sshListener == nil {
		return nil
	}
	return s.sshListener.Addr()
}

// WSAddr returns the WebSocket listener's address, nil when disabled.
func (s *Server) WSAddr() net.Addr {
	if s.wsListener == nil {
		return nil
	}
	return s.wsListener.Addr()
}

// MetricsAddr returns the metrics listener's address, nil when disabled.
func (s *Server) MetricsAddr() net.Addr {
	if s.metricsListener == nil {
		return nil
	}
	return s.metricsListener.Addr()
}

// addWorker reserves a WaitGroup slot for a connection goroutine. It fails
// once Stop has begun, so the slot can never be taken after wg.Wait starts.
func (s *Server) addWorker() bool {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	if s.stopping {
		return false
	}
	s.wg.Add(1)
	return true
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	log.Println("Graceful shutdown initiated...")

	s.stopMu.Lock()
	s.stopping = true
	s.stopMu.Unlock()

	// Signal shutdown to all goroutines
	close(s.shutdown)

	// Stop accepting new connections
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
		log.Println("TCP listener closed")
	}
	if s.servicesListener != nil {
		s.servicesListener.Close()
		s.servicesListener = nil
		log.Println("Services listener closed")
	}
	if s.sshListener != nil {
		s.sshListener.Close()
		s.sshListener = nil
		log.Println("SSH listener closed")
	}

	// Shut the HTTP servers down before closing sessions so no new
	// WebSocket session can appear afterwards
	if s.wsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.wsServer.Shutdown(ctx); err != nil {
			log.Printf("WebSocket server shutdown: %v", err)
		}
		cancel()
		s.wsServer = nil
		s.wsListener = nil
	}
	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			log.Printf("Metrics server shutdown: %v", err)
		}
		cancel()
		s.metricsServer = nil
		s.metricsListener = nil
	}

	// Notify all connected clients before closing connections
	log.Println("Notifying connected clients of shutdown...")
	s.notifyClientsOfShutdown()

	// Close all sessions
	log.Println("Closing all client sessions...")
	s.sessions.CloseAll()

	// Wait for goroutines to finish
	log.Println("Waiting for background goroutines to finish...")
	s.wg.Wait()

	log.Println("Graceful shutdown complete")
	return nil
}

// notifyClientsOfShutdown sends an ERROR line to all connected clients
func (s *Server) notifyClientsOfShutdown() {
	sessions := s.sessions.GetAllSessions()

	if len(sessions) == 0 {
		log.Println("No active sessions to notify")
		return
	}

	log.Printf("Sending shutdown notice to %d active sessions...", len(sessions))

	out := irc.NewOutgoing("", "ERROR", "Server shutting down")
	sent := 0
	for _, sess := range sessions {
		line, err := out.LineFor(sess)
		if err != nil {
			continue
		}
		if err := sess.Conn.WriteLine(line); err == nil {
			sent++
		}
	}

	log.Printf("Shutdown notice sent to %d/%d sessions", sent, len(sessions))
}

// acceptLoop accepts incoming connections on one listener.
func (s *Server) acceptLoop(listener net.Listener, connType string) {
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
				log.Printf("Accept error on %s listener: %v", connType, err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn, connType)
	}
}

// handleConnection sets up a session, then runs its message loop.
func (s *Server) handleConnection(conn net.Conn, connType string) {
	defer s.wg.Done()

	if connType == "services" && s.config.ServicesRequireLoopback {
		addr, ok := conn.RemoteAddr().(*net.TCPAddr)
		if !ok || !addr.IP.IsLoopback() {
			errorLog.Printf("Rejected non-loopback services connection from %s", conn.RemoteAddr())
			conn.Close()
			return
		}
	}

	// Disable Nagle's algorithm for immediate sends
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	sess := s.sessions.CreateSession(NewSafeConn(conn), connType)

	// Shutdown may have swept the session map between Accept and here
	select {
	case <-s.shutdown:
		s.removeSession(sess.ID)
		return
	default:
	}

	s.connectionsSinceReport.Add(1)
	s.metrics.RecordConnection(connType)
	debugLog.Printf("New %s connection from %s (session %d)", connType, conn.RemoteAddr(), sess.ID)

	s.messageLoop(sess)
}

// messageLoop reads and dispatches lines for an established connection.
func (s *Server) messageLoop(sess *Session) {
	defer s.removeSession(sess.ID)

	for {
		line, err := sess.Conn.ReadLine()
		if err != nil {
			// Only log if the session still exists (it may have been closed
			// by the stale sweep or shutdown)
			if _, exists := s.sessions.GetSession(sess.ID); exists {
				s.disconnectionsSinceReport.Add(1)
				if errors.Is(err, io.EOF) {
					debugLog.Printf("Session %d: client disconnected", sess.ID)
				} else {
					debugLog.Printf("Session %d: read error: %v", sess.ID, err)
				}
			}
			return
		}
		if line == "" {
			continue
		}

		msg, err := ircmsg.ParseLineStrict(line, true, irc.MaxLineLen)
		if err != nil && err != ircmsg.ErrorBodyTooLong {
			debugLog.Printf("Session %d: unparseable line: %v", sess.ID, err)
			continue
		}

		sess.Touch()
		s.metrics.RecordLineReceived(strings.ToUpper(msg.Command))
		debugLog.Printf("Session %d ← RECV: %s", sess.ID, line)

		if err := s.handleMessage(sess, msg); err != nil {
			// A graceful quit exits cleanly
			if errors.Is(err, ErrClientQuit) {
				s.disconnectionsSinceReport.Add(1)
				debugLog.Printf("Session %d disconnected gracefully", sess.ID)
				return
			}
			errorLog.Printf("Session %d handle error: %v", sess.ID, err)
		}
	}
}

// handleMessage dispatches a parsed line to the appropriate handler
func (s *Server) handleMessage(sess *Session, msg ircmsg.Message) error {
	switch strings.ToUpper(msg.Command) {
	case "CAP":
		return s.handleCap(sess, msg)
	case "NICK":
		return s.handleNick(sess, msg)
	case "USER":
		return s.handleUser(sess, msg)
	case "PASS":
		return s.handlePass(sess, msg)
	case "PING":
		return s.handlePing(sess, msg)
	case "PONG":
		return nil
	case "QUIT":
		return s.handleQuit(sess, msg)
	case "JOIN":
		return s.handleJoin(sess, msg)
	case "PART":
		return s.handlePart(sess, msg)
	case "PRIVMSG", "NOTICE", "TAGMSG":
		return s.handleRelay(sess, msg)
	case "MOTD":
		return s.handleMotd(sess, msg)
	case "WHO":
		return s.handleWho(sess, msg)
	case "WHOIS":
		return s.handleWhois(sess, msg)
	case "METADATA":
		return s.handleMetadata(sess, msg)
	default:
		s.sendNumeric(sess, irc.ERR_UNKNOWNCOMMAND, strings.ToUpper(msg.Command), "Unknown command")
		return nil
	}
}

// deliver injects tags into the message and serializes it once per
// recipient. Every server-to-client line funnels through here so the tag
// pipeline sees all of them.
func (s *Server) deliver(out *irc.Outgoing, recipients ...*Session) {
	before := out.TagCount()
	s.tagProvider.PopulateTags(out)
	if out.TagCount() > before {
		s.metrics.RecordTaggedDelivery()
	}
	out.AddTag("time", time.Now().UTC().Format(serverTimeFormat), irc.CapFilter(irc.CapServerTime))
	s.metrics.RecordFanout(len(recipients))

	for _, rcpt := range recipients {
		line, err := out.LineFor(rcpt)
		if err != nil {
			errorLog.Printf("Session %d: failed to serialize %s: %v", rcpt.ID, out.Command(), err)
			continue
		}
		if err := rcpt.Conn.WriteLine(line); err != nil {
			debugLog.Printf("Session %d: write failed: %v", rcpt.ID, err)
			continue
		}
		s.metrics.RecordLineSent()
	}
}

// sendNumeric sends one numeric reply to a session, with the session's nick
// (or *) as the leading parameter.
func (s *Server) sendNumeric(sess *Session, numeric string, params ...string) {
	nick := sess.Nickname()
	if nick == "" {
		nick = "*"
	}
	out := irc.NewOutgoing(s.config.ServerName, numeric, append([]string{nick}, params...)...)
	s.deliver(out, sess)
}

// removeSession tears a session down: departure broadcast, tag cleanup,
// channel cleanup, connection close. Safe to call more than once.
func (s *Server) removeSession(sessionID uint64) {
	sess, ok := s.sessions.GetSession(sessionID)
	if !ok {
		return
	}

	others := s.channels.RemoveSession(sessionID)
	if len(others) > 0 && sess.Registered() {
		out := irc.NewUserOutgoing(sessionID, sess.Prefix(), "QUIT", sess.QuitReason())
		s.deliver(out, others...)
	}

	s.tagStore.Unset(sessionID)
	s.metrics.RecordActiveTagSets(s.tagStore.Len())
	s.sessions.RemoveSession(sessionID)
}

// metricsLoggingLoop periodically reports connection churn.
func (s *Server) metricsLoggingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			conns := s.connectionsSinceReport.Swap(0)
			disconns := s.disconnectionsSinceReport.Swap(0)
			if conns == 0 && disconns == 0 {
				continue
			}
			debugLog.Printf("Sessions: %d active (+%d/-%d in last 5s), %d tag sets",
				s.sessions.CountOnline(), conns, disconns, s.tagStore.Len())
		}
	}
}

// idleSweepLoop disconnects sessions that have gone quiet.
func (s *Server) idleSweepLoop() {
	defer s.wg.Done()

	interval := time.Duration(s.config.IdleTimeoutSeconds) * time.Second / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.sweepIdleSessions()
		}
	}
}

func (s *Server) sweepIdleSessions() {
	timeout := time.Duration(s.config.IdleTimeoutSeconds) * time.Second
	for _, sess := range s.sessions.GetAllSessions() {
		if idle := time.Since(sess.IdleSince()); idle > timeout {
			debugLog.Printf("Closing stale session %d (idle for %v)", sess.ID, idle.Round(time.Second))
			sess.setQuitReason("Ping timeout")
			s.removeSession(sess.ID)
		}
	}
}

// ReloadConfig re-reads the config file and swaps in the reloadable
// settings: the special message table and the tag vendor prefix. A file
// that fails to load or validate leaves the running configuration
// untouched. Listener and limit changes require a restart.
func (s *Server) ReloadConfig() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	tomlConfig, err := LoadConfig(s.configPath)
	if err != nil {
		s.metrics.RecordConfigReload("error")
		errorLog.Printf("Config reload failed: %v", err)
		return err
	}
	next, err := tomlConfig.ToServerConfig()
	if err != nil {
		s.metrics.RecordConfigReload("error")
		errorLog.Printf("Config reload rejected: %v", err)
		return err
	}

	s.resolver.SetTable(next.SpecialMsgs)
	s.tagProvider.SetVendor(next.VendorPrefix())
	s.metrics.RecordConfigReload("ok")
	log.Printf("Configuration reloaded from %s (%d specialmsg entries, vendor %s)",
		s.configPath, len(next.SpecialMsgs), next.VendorPrefix())
	return nil
}

// HealthHandler reports liveness and a few counters.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Status        string `json:"status"`
		UptimeSeconds int    `json:"uptime_seconds"`
		Sessions      int    `json:"sessions"`
		Channels      int    `json:"channels"`
		TagSets       int    `json:"tag_sets"`
	}{
		Status:        "ok",
		UptimeSeconds: int(time.Since(s.startTime).Seconds()),
		Sessions:      s.sessions.CountOnline(),
		Channels:      s.channels.Count(),
		TagSets:       s.tagStore.Len(),
	})
}

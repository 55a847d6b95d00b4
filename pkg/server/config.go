package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/perchbird/customtags/pkg/tags"
)

// TOMLConfig represents the structure of the server config file
type TOMLConfig struct {
	Server     ServerSection     `toml:"server"`
	Services   ServicesSection   `toml:"services"`
	Limits     LimitsSection     `toml:"limits"`
	Tags       TagsSection       `toml:"tags"`
	SpecialMsg []SpecialMsgEntry `toml:"specialmsg"`
	Metrics    MetricsSection    `toml:"metrics"`
}

type ServerSection struct {
	Name       string `toml:"name"`
	Network    string `toml:"network"`
	TCPPort    int    `toml:"tcp_port"`
	WSPort     int    `toml:"ws_port"`
	SSHPort    int    `toml:"ssh_port"`
	SSHHostKey string `toml:"ssh_host_key"`
	Motd       string `toml:"motd"`
}

type ServicesSection struct {
	Port            int    `toml:"port"`
	PasswordHash    string `toml:"password_hash"`
	RequireLoopback bool   `toml:"require_loopback"`
}

type LimitsSection struct {
	MaxNicknameLength  int `toml:"max_nickname_length"`
	IdleTimeoutSeconds int `toml:"idle_timeout_seconds"`
}

type TagsSection struct {
	Vendor string `toml:"vendor"`
}

// SpecialMsgEntry declares where a server-originated command carries the
// nickname of the user it describes. Index is the nickname's position among
// the reply's parameters, with the leading recipient parameter at 0.
type SpecialMsgEntry struct {
	Command string `toml:"command"`
	Index   int    `toml:"index"`
}

type MetricsSection struct {
	Port int `toml:"port"`
}

// DefaultTOMLConfig returns the default TOML configuration
func DefaultTOMLConfig() TOMLConfig {
	return TOMLConfig{
		Server: ServerSection{
			Name:    "irc.localhost",
			Network: "CustomTags",
			TCPPort: 6667,
			WSPort:  8080,
		},
		Services: ServicesSection{
			Port:            7766,
			RequireLoopback: true,
		},
		Limits: LimitsSection{
			MaxNicknameLength:  32,
			IdleTimeoutSeconds: 240,
		},
		SpecialMsg: DefaultSpecialMsgs(),
		Metrics: MetricsSection{
			Port: 9090,
		},
	}
}

// DefaultSpecialMsgs returns the built-in special message table: WHOIS user
// replies, WHO replies, and WHOX replies (whose nick position is discovered
// per query).
func DefaultSpecialMsgs() []SpecialMsgEntry {
	return []SpecialMsgEntry{
		{Command: "311", Index: 1},
		{Command: "352", Index: 5},
		{Command: "354", Index: 0},
	}
}

// LoadConfig loads configuration from a TOML file, creates default if not found,
// and applies environment variable overrides
func LoadConfig(path string) (TOMLConfig, error) {
	// Expand ~ in path
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return TOMLConfig{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist, create default config
		config := DefaultTOMLConfig()
		if err := writeDefaultConfig(path); err != nil {
			// If we can't write, just return defaults without error
			// (might be a permissions issue, but we can still run)
			return applyEnvOverrides(config), nil
		}
		return applyEnvOverrides(config), nil
	}

	// Load from file
	var config TOMLConfig
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return TOMLConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config = applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to the config
// Environment variables follow the pattern: CUSTOMTAGS_SECTION_KEY
// Example: CUSTOMTAGS_SERVER_TCP_PORT=6697
func applyEnvOverrides(config TOMLConfig) TOMLConfig {
	// Server section
	if val := os.Getenv("CUSTOMTAGS_SERVER_NAME"); val != "" {
		config.Server.Name = val
	}
	if val := os.Getenv("CUSTOMTAGS_SERVER_NETWORK"); val != "" {
		config.Server.Network = val
	}
	if val := os.Getenv("CUSTOMTAGS_SERVER_TCP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Server.TCPPort = port
		}
	}
	if val := os.Getenv("CUSTOMTAGS_SERVER_WS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Server.WSPort = port
		}
	}
	if val := os.Getenv("CUSTOMTAGS_SERVER_SSH_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Server.SSHPort = port
		}
	}
	if val := os.Getenv("CUSTOMTAGS_SERVER_SSH_HOST_KEY"); val != "" {
		config.Server.SSHHostKey = val
	}
	if val := os.Getenv("CUSTOMTAGS_SERVER_MOTD"); val != "" {
		config.Server.Motd = val
	}

	// Services section
	if val := os.Getenv("CUSTOMTAGS_SERVICES_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Services.Port = port
		}
	}
	if val := os.Getenv("CUSTOMTAGS_SERVICES_PASSWORD_HASH"); val != "" {
		config.Services.PasswordHash = val
	}
	if val := os.Getenv("CUSTOMTAGS_SERVICES_REQUIRE_LOOPBACK"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			config.Services.RequireLoopback = b
		}
	}

	// Limits section
	if val := os.Getenv("CUSTOMTAGS_LIMITS_MAX_NICKNAME_LENGTH"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.Limits.MaxNicknameLength = limit
		}
	}
	if val := os.Getenv("CUSTOMTAGS_LIMITS_IDLE_TIMEOUT_SECONDS"); val != "" {
		if timeout, err := strconv.Atoi(val); err == nil {
			config.Limits.IdleTimeoutSeconds = timeout
		}
	}

	// Tags section
	if val := os.Getenv("CUSTOMTAGS_TAGS_VENDOR"); val != "" {
		config.Tags.Vendor = val
	}

	// Metrics section
	if val := os.Getenv("CUSTOMTAGS_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Metrics.Port = port
		}
	}

	return config
}

// writeDefaultConfig writes the default config to a file with all options documented
func writeDefaultConfig(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	// Build comprehensive config file manually
	// Active settings use defaults, commented settings show available options
	content := `# CustomTags IRC Server Configuration
# This file was auto-generated with default values
# Settings below are active - modify them to change server behavior
# Send SIGHUP to reload the tags and specialmsg settings; everything
# else requires a restart
#
# Environment variables can override these settings:
# CUSTOMTAGS_SECTION_KEY (e.g., CUSTOMTAGS_SERVER_TCP_PORT=6697)

[server]
# Server name, used as the message source and the default tag vendor prefix
name = "irc.localhost"

# Network name advertised in ISUPPORT
network = "CustomTags"

# Port for plain TCP client connections
tcp_port = 6667

# Port for WebSocket client connections (/ws endpoint)
# Set to 0 to disable
ws_port = 8080

# Port for SSH client connections (IRC lines over an SSH session channel)
# Set to 0 to disable:
# ssh_port = 2222

# SSH host key path; generated on first start when missing
# Leave empty to keep it in the server data directory:
# ssh_host_key = "~/.local/share/customtags/ssh_host_key"

# Message of the day sent at the end of registration; \n separates lines
# Leave empty to send none:
# motd = "Welcome!\nBe excellent to each other."

[services]
# Port for the privileged services connection
port = 7766

# bcrypt hash of the services password (generate with customtagsd -hashpass)
# Services connections are rejected until this is set:
# password_hash = "$2a$10$..."

# Reject services connections from non-loopback addresses
require_loopback = true

[limits]
# Maximum nickname length in characters
max_nickname_length = 32

# Sessions idle longer than this are disconnected (negative = never)
idle_timeout_seconds = 240

[tags]
# Vendor prefix for injected tags; tags appear as <vendor>/<name>
# Leave empty to use the server name:
# vendor = "example.com"

# Where server-originated replies carry the nickname of the user they
# describe. Index is the nickname's position among the reply's parameters,
# with the leading recipient parameter at 0. The 354 (WHOX) entry's index is
# ignored because field positions are discovered per query. Command must not
# be empty. Index range is 0-20.
[[specialmsg]]
command = "311"
index = 1

[[specialmsg]]
command = "352"
index = 5

[[specialmsg]]
command = "354"
index = 0

[metrics]
# Port for the internal metrics server (/metrics, /health) - never expose publicly!
# Set to 0 to disable
port = 9090
`

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ToServerConfig converts TOMLConfig to ServerConfig. It fails when a
// specialmsg entry has an empty command so that a broken file never replaces
// a working table on reload.
func (c *TOMLConfig) ToServerConfig() (ServerConfig, error) {
	cfg := DefaultConfig()

	if strings.TrimSpace(c.Server.Name) != "" {
		cfg.ServerName = c.Server.Name
	}

	if strings.TrimSpace(c.Server.Network) != "" {
		cfg.NetworkName = c.Server.Network
	}

	if c.Server.TCPPort != 0 {
		cfg.TCPPort = c.Server.TCPPort
	}

	cfg.WSEnabled = c.Server.WSPort > 0
	if c.Server.WSPort > 0 {
		cfg.WSPort = c.Server.WSPort
	}

	cfg.SSHEnabled = c.Server.SSHPort > 0
	if c.Server.SSHPort > 0 {
		cfg.SSHPort = c.Server.SSHPort
	}
	cfg.SSHHostKeyPath = c.Server.SSHHostKey

	cfg.MOTD = c.Server.Motd

	if c.Services.Port != 0 {
		cfg.ServicesPort = c.Services.Port
	}

	cfg.ServicesPasswordHash = c.Services.PasswordHash
	cfg.ServicesRequireLoopback = c.Services.RequireLoopback

	if c.Limits.MaxNicknameLength != 0 {
		cfg.MaxNickLen = c.Limits.MaxNicknameLength
	}

	if c.Limits.IdleTimeoutSeconds != 0 {
		cfg.IdleTimeoutSeconds = c.Limits.IdleTimeoutSeconds
	}

	cfg.Vendor = strings.TrimSpace(c.Tags.Vendor)

	cfg.MetricsEnabled = c.Metrics.Port > 0
	if c.Metrics.Port > 0 {
		cfg.MetricsPort = c.Metrics.Port
	}

	// An absent specialmsg list means the built-in table; a present one
	// replaces it entirely.
	entries := c.SpecialMsg
	if entries == nil {
		entries = DefaultSpecialMsgs()
	}
	table := make(map[string]int, len(entries))
	for i, entry := range entries {
		command := strings.TrimSpace(entry.Command)
		if command == "" {
			return ServerConfig{}, fmt.Errorf("specialmsg entry %d: command must not be empty", i+1)
		}
		index := entry.Index
		if index < 0 {
			index = 0
		} else if index > tags.MaxSpecialMsgIndex {
			index = tags.MaxSpecialMsgIndex
		}
		table[command] = index
	}
	cfg.SpecialMsgs = table

	return cfg, nil
}

// Command customtagsd runs the CustomTags IRC server: a tag-injecting relay
// with a privileged services port for managing per-user tag sets.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/crypto/bcrypt"

	"github.com/perchbird/customtags/pkg/server"
)

func defaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "customtags", "config.toml")
	}
	return "~/.config/customtags/config.toml"
}

func main() {
	// Command-line flags
	configPath := flag.String("config", defaultConfigPath(), "Path to config file (created with defaults if missing)")
	debug := flag.Bool("debug", false, "Enable debug logging to debug.log")
	hashPass := flag.String("hashpass", "", "Print a bcrypt hash for the given services password and exit")
	flag.Parse()

	if *hashPass != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*hashPass), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		fmt.Println(string(hash))
		return
	}

	tomlConfig, err := server.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config, err := tomlConfig.ToServerConfig()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	srv, err := server.NewServer(config, *configPath)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if *debug {
		srv.EnableDebugLogging()
	}

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Printf("CustomTags server started:")
	log.Printf("  Config: %s", *configPath)
	log.Printf("  Server name: %s", config.ServerName)
	log.Printf("  Clients: %s", srv.TCPAddr())
	log.Printf("  Services: %s", srv.ServicesAddr())
	if config.WSEnabled {
		log.Printf("  WebSocket: %s", srv.WSAddr())
	}
	if config.SSHEnabled {
		log.Printf("  SSH: %s", srv.SSHAddr())
	}
	if config.MetricsEnabled {
		log.Printf("  Metrics: %s (internal only)", srv.MetricsAddr())
	}
	log.Printf("  Tag vendor: %s", config.VendorPrefix())

	// SIGHUP reloads the tag settings, SIGINT/SIGTERM shut down
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			if err := srv.ReloadConfig(); err != nil {
				log.Printf("Config reload failed: %v", err)
			} else {
				log.Printf("Config reloaded")
			}
			continue
		}

		log.Printf("Received %v, shutting down...", sig)
		srv.Stop()
		return
	}
}

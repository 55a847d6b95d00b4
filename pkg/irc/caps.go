// Package irc holds the wire-level vocabulary shared by the server and its
// clients: capability names, reply numerics, and the outgoing message
// envelope that carries per-recipient tags.
package irc

import (
	"sort"
	"sync"

	"github.com/perchbird/customtags/pkg/tags"
)

// Capabilities negotiable via CAP.
const (
	CapEchoMessage = "echo-message"
	CapMessageTags = "message-tags"
	CapServerTime  = "server-time"
)

// SupportedCaps is every capability advertised on CAP LS, in the order it is
// advertised.
var SupportedCaps = []string{CapEchoMessage, CapMessageTags, CapServerTime}

// CapSupported reports whether the server offers the named capability.
func CapSupported(name string) bool {
	for _, offered := range SupportedCaps {
		if offered == name {
			return true
		}
	}
	return false
}

// CapabilitySet tracks the capabilities one session has negotiated. Reads
// come from delivery fan-out on other sessions' goroutines, so access is
// locked.
type CapabilitySet struct {
	mu      sync.RWMutex
	enabled map[string]bool
}

// NewCapabilitySet returns an empty set.
func NewCapabilitySet() *CapabilitySet {
	return &CapabilitySet{enabled: make(map[string]bool)}
}

// Enable marks the named capabilities as negotiated.
func (cs *CapabilitySet) Enable(names ...string) {
	cs.mu.Lock()
	for _, name := range names {
		cs.enabled[name] = true
	}
	cs.mu.Unlock()
}

// Disable removes the named capabilities.
func (cs *CapabilitySet) Disable(names ...string) {
	cs.mu.Lock()
	for _, name := range names {
		delete(cs.enabled, name)
	}
	cs.mu.Unlock()
}

// Has reports whether the named capability is enabled.
func (cs *CapabilitySet) Has(name string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return cs.enabled[name]
}

// List returns the enabled capabilities in sorted order, for CAP LIST.
func (cs *CapabilitySet) List() []string {
	cs.mu.RLock()
	names := make([]string, 0, len(cs.enabled))
	for name := range cs.enabled {
		names = append(names, name)
	}
	cs.mu.RUnlock()

	sort.Strings(names)
	return names
}

// CapFilter gates a tag on a negotiated capability. The zero value admits
// nobody.
type CapFilter string

// ShouldSend implements tags.SendFilter.
func (f CapFilter) ShouldSend(rcpt tags.Recipient) bool {
	return rcpt.HasCap(string(f))
}

package tags

import (
	"strings"
	"sync"
)

// whoxReply is the numeric whose nickname field sits at a position chosen per
// query rather than fixed by the special-message table.
const whoxReply = "354"

// MaxSpecialMsgIndex bounds the configurable parameter index for
// special-message records. A sanity bound, not a protocol limit.
const MaxSpecialMsgIndex = 20

// NickLookup resolves a nickname to a live session by exact (case-folded)
// match.
type NickLookup interface {
	FindNick(nick string) (uint64, bool)
}

// OutgoingMessage is the view of an outgoing message the tag pipeline needs.
type OutgoingMessage interface {
	// Command returns the message's command or numeric.
	Command() string
	// Params returns the ordered parameter list.
	Params() []string
	// SourceSession returns the session the message originates from, or
	// false when the message comes from the server itself.
	SourceSession() (uint64, bool)
}

// Resolver determines which session an outgoing message's custom tags should
// be attributed to. Direct-origin messages resolve to their source; server
// numerics resolve through the special-message table, which maps a command to
// the parameter index holding the subject's nickname. The WHOX reply is the
// one command whose index shifts at runtime and is tracked separately.
//
// Safe for concurrent use; the table is swapped wholesale on config reload.
type Resolver struct {
	lookup NickLookup

	mu        sync.RWMutex
	special   map[string]int
	whoxIndex int // position of the nick field in the in-flight WHOX query, -1 = unknown
}

// NewResolver returns a Resolver with an empty special-message table and an
// unknown WHOX field position.
func NewResolver(lookup NickLookup) *Resolver {
	return &Resolver{
		lookup:    lookup,
		special:   make(map[string]int),
		whoxIndex: -1,
	}
}

// SetTable replaces the special-message table wholesale. Command identifiers
// are folded to upper case; indexes outside [0, MaxSpecialMsgIndex] are
// clamped into range.
func (r *Resolver) SetTable(table map[string]int) {
	next := make(map[string]int, len(table))
	for command, index := range table {
		if index < 0 {
			index = 0
		} else if index > MaxSpecialMsgIndex {
			index = MaxSpecialMsgIndex
		}
		next[strings.ToUpper(command)] = index
	}

	r.mu.Lock()
	r.special = next
	r.mu.Unlock()
}

// NoteWhoxNickField records where the nickname field sits among the emitted
// fields of the in-flight WHOX query, or -1 when the query did not request
// it. Overwritten on every query; not persisted.
func (r *Resolver) NoteWhoxNickField(index int) {
	r.mu.Lock()
	r.whoxIndex = index
	r.mu.Unlock()
}

// Subject returns the session whose tags apply to msg, if any.
//
// A message with a non-server origin is attributed to that origin. Otherwise
// the command is looked up in the special-message table to find the parameter
// index holding the subject's nickname; for the WHOX reply the index is one
// past the tracked field position instead. Messages with an unknown command,
// too few parameters, an unknown WHOX position, or an unresolvable nickname
// have no subject, which is a normal outcome rather than an error.
func (r *Resolver) Subject(msg OutgoingMessage) (uint64, bool) {
	if id, ok := msg.SourceSession(); ok {
		return id, true
	}

	command := strings.ToUpper(msg.Command())

	r.mu.RLock()
	nickIndex, ok := r.special[command]
	whoxIndex := r.whoxIndex
	r.mu.RUnlock()
	if !ok {
		// Not a special message.
		return 0, false
	}

	if command == whoxReply {
		if whoxIndex == -1 {
			// No nick field in the current query.
			return 0, false
		}
		// Params lead with the recipient, so the nick sits one past the
		// reported field position.
		nickIndex = whoxIndex + 1
	}

	params := msg.Params()
	if len(params) <= nickIndex {
		return 0, false
	}
	return r.lookup.FindNick(params[nickIndex])
}

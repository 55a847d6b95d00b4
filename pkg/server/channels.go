package server

import (
	"sort"
	"strings"
	"sync"
)

// foldChannel maps a channel name to its case-insensitive form.
func foldChannel(name string) string {
	return strings.ToLower(name)
}

// validChannelName reports whether a name is acceptable for JOIN.
func validChannelName(name string) bool {
	if len(name) < 2 || len(name) > 64 || name[0] != '#' {
		return false
	}
	return !strings.ContainsAny(name, " ,\x07")
}

// channel is one chat room. The first-seen spelling of the name is kept for
// display.
type channel struct {
	name    string
	members map[uint64]*Session
}

// ChannelRegistry tracks channel membership. Channels pop into existence on
// first JOIN and vanish with their last member.
type ChannelRegistry struct {
	mu       sync.RWMutex
	channels map[string]*channel // folded name -> channel
}

// NewChannelRegistry returns an empty registry.
func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{channels: make(map[string]*channel)}
}

// Join adds the session to the channel, creating it if needed. It returns
// the channel's display name and a snapshot of all members including the
// joiner.
func (r *ChannelRegistry) Join(name string, sess *Session) (string, []*Session) {
	folded := foldChannel(name)

	r.mu.Lock()
	ch, ok := r.channels[folded]
	if !ok {
		ch = &channel{name: name, members: make(map[uint64]*Session)}
		r.channels[folded] = ch
	}
	ch.members[sess.ID] = sess
	members := memberSnapshot(ch)
	displayName := ch.name
	r.mu.Unlock()

	return displayName, members
}

// Part removes the session from the channel. It returns the display name, a
// snapshot of the membership before removal, and whether the session was a
// member at all.
func (r *ChannelRegistry) Part(name string, sessionID uint64) (string, []*Session, bool) {
	folded := foldChannel(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[folded]
	if !ok {
		return "", nil, false
	}
	if _, member := ch.members[sessionID]; !member {
		return ch.name, nil, false
	}
	members := memberSnapshot(ch)
	delete(ch.members, sessionID)
	if len(ch.members) == 0 {
		delete(r.channels, folded)
	}
	return ch.name, members, true
}

// RemoveSession removes the session from every channel it is in and returns
// the other sessions that shared a channel with it, deduplicated.
func (r *ChannelRegistry) RemoveSession(sessionID uint64) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uint64]*Session)
	for folded, ch := range r.channels {
		if _, member := ch.members[sessionID]; !member {
			continue
		}
		delete(ch.members, sessionID)
		for id, other := range ch.members {
			seen[id] = other
		}
		if len(ch.members) == 0 {
			delete(r.channels, folded)
		}
	}

	others := make([]*Session, 0, len(seen))
	for _, sess := range seen {
		others = append(others, sess)
	}
	return others
}

// Members returns the channel's display name and a membership snapshot.
func (r *ChannelRegistry) Members(name string) (string, []*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[foldChannel(name)]
	if !ok {
		return "", nil, false
	}
	return ch.name, memberSnapshot(ch), true
}

// IsMember reports whether the session is in the channel.
func (r *ChannelRegistry) IsMember(name string, sessionID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[foldChannel(name)]
	if !ok {
		return false
	}
	_, member := ch.members[sessionID]
	return member
}

// SharedChannels returns the sessions that share at least one channel with
// the given session, deduplicated, excluding the session itself.
func (r *ChannelRegistry) SharedChannels(sessionID uint64) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uint64]*Session)
	for _, ch := range r.channels {
		if _, member := ch.members[sessionID]; !member {
			continue
		}
		for id, other := range ch.members {
			if id != sessionID {
				seen[id] = other
			}
		}
	}

	others := make([]*Session, 0, len(seen))
	for _, sess := range seen {
		others = append(others, sess)
	}
	return others
}

// Count returns the number of channels that currently exist.
func (r *ChannelRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.channels)
}

// memberSnapshot copies a channel's membership, sorted by session ID for
// stable iteration. Caller must hold the registry lock.
func memberSnapshot(ch *channel) []*Session {
	members := make([]*Session, 0, len(ch.members))
	for _, sess := range ch.members {
		members = append(members, sess)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members
}

package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecipient reports capabilities from a plain set.
type fakeRecipient map[string]bool

func (f fakeRecipient) HasCap(name string) bool { return f[name] }

func TestProviderPopulatesDirectOriginTags(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.ApplyUpdate(7, "role admin account alice"))
	p := NewProvider(store, NewResolver(fakeLookup{}), "example.com")

	msg := &testMessage{command: "PRIVMSG", params: []string{"#chat", "hello"}, source: 7, fromUser: true}
	p.PopulateTags(msg)

	require.Len(t, msg.added, 2)
	assert.Equal(t, "example.com/account", msg.added[0].name)
	assert.Equal(t, "alice", msg.added[0].value)
	assert.Equal(t, "example.com/role", msg.added[1].name)
	assert.Equal(t, "admin", msg.added[1].value)
}

func TestProviderPopulatesTableResolvedTags(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.ApplyUpdate(2, "bot true"))
	r := NewResolver(fakeLookup{"bob": 2})
	r.SetTable(map[string]int{"311": 1})
	p := NewProvider(store, r, "example.com")

	msg := &testMessage{command: "311", params: []string{"Alice", "Bob", "bob", "host", "*", "Bob Smith"}}
	p.PopulateTags(msg)

	require.Len(t, msg.added, 1)
	assert.Equal(t, "example.com/bot", msg.added[0].name)
	assert.Equal(t, "true", msg.added[0].value)
}

func TestProviderTagsCarryProviderFilter(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.ApplyUpdate(7, "bot true"))
	p := NewProvider(store, NewResolver(fakeLookup{}), "example.com")

	msg := &testMessage{command: "PRIVMSG", params: []string{"#chat", "hi"}, source: 7, fromUser: true}
	p.PopulateTags(msg)

	require.Len(t, msg.added, 1)
	filter := msg.added[0].filter
	require.NotNil(t, filter)
	assert.True(t, filter.ShouldSend(fakeRecipient{"message-tags": true}))
	assert.False(t, filter.ShouldSend(fakeRecipient{"server-time": true}))
}

func TestProviderNoSubjectAttachesNothing(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.ApplyUpdate(7, "bot true"))
	p := NewProvider(store, NewResolver(fakeLookup{}), "example.com")

	// Server-originated notice with no table entry: no subject, no tags
	msg := &testMessage{command: "NOTICE", params: []string{"Alice", "maintenance soon"}}
	p.PopulateTags(msg)
	assert.Empty(t, msg.added)
}

func TestProviderSubjectWithoutTagsAttachesNothing(t *testing.T) {
	p := NewProvider(NewStore(), NewResolver(fakeLookup{}), "example.com")

	msg := &testMessage{command: "PRIVMSG", params: []string{"#chat", "hi"}, source: 7, fromUser: true}
	p.PopulateTags(msg)
	assert.Empty(t, msg.added)
}

func TestProviderShouldSend(t *testing.T) {
	p := NewProvider(NewStore(), NewResolver(fakeLookup{}), "example.com")

	assert.True(t, p.ShouldSend(fakeRecipient{"message-tags": true}))
	assert.False(t, p.ShouldSend(fakeRecipient{}))
	assert.False(t, p.ShouldSend(fakeRecipient{"echo-message": true}))
}

func TestProviderSetVendor(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.ApplyUpdate(7, "bot true"))
	p := NewProvider(store, NewResolver(fakeLookup{}), "example.com")
	require.Equal(t, "example.com", p.Vendor())

	p.SetVendor("irc.acme.dev")
	assert.Equal(t, "irc.acme.dev", p.Vendor())

	msg := &testMessage{command: "PRIVMSG", params: []string{"#chat", "hi"}, source: 7, fromUser: true}
	p.PopulateTags(msg)
	require.Len(t, msg.added, 1)
	assert.Equal(t, "irc.acme.dev/bot", msg.added[0].name)
}

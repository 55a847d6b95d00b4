package irc

import (
	"testing"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capRecipient reports capabilities from a plain set.
type capRecipient map[string]bool

func (c capRecipient) HasCap(name string) bool { return c[name] }

func TestOutgoingPlainLine(t *testing.T) {
	out := NewOutgoing("irc.example.com", RPL_WELCOME, "alice", "Welcome to the network, alice")

	line, err := out.LineFor(capRecipient{})
	require.NoError(t, err)
	assert.Equal(t, ":irc.example.com 001 alice :Welcome to the network, alice\r\n", string(line))
}

func TestOutgoingNoSourceNoTrailing(t *testing.T) {
	out := NewOutgoing("", "PING", "12345")

	line, err := out.LineFor(capRecipient{})
	require.NoError(t, err)
	assert.Equal(t, "PING 12345\r\n", string(line))
}

func TestOutgoingTagGatedOnCapability(t *testing.T) {
	out := NewUserOutgoing(7, "alice!alice@localhost", "PRIVMSG", "#chat", "hello")
	out.AddTag("example.com/role", "admin", CapFilter(CapMessageTags))

	withCap, err := out.LineFor(capRecipient{CapMessageTags: true})
	require.NoError(t, err)
	parsed, err := ircmsg.ParseLine(string(withCap))
	require.NoError(t, err)
	present, value := parsed.GetTag("example.com/role")
	assert.True(t, present)
	assert.Equal(t, "admin", value)

	withoutCap, err := out.LineFor(capRecipient{})
	require.NoError(t, err)
	assert.Equal(t, ":alice!alice@localhost PRIVMSG #chat hello\r\n", string(withoutCap))
}

func TestOutgoingClientOnlyTags(t *testing.T) {
	out := NewUserOutgoing(7, "alice!alice@localhost", "TAGMSG", "#chat")
	out.AddTag("+example/reaction", "lol", CapFilter(CapMessageTags))

	line, err := out.LineFor(capRecipient{CapMessageTags: true})
	require.NoError(t, err)
	parsed, err := ircmsg.ParseLine(string(line))
	require.NoError(t, err)
	present, value := parsed.GetTag("+example/reaction")
	assert.True(t, present)
	assert.Equal(t, "lol", value)
}

func TestOutgoingNilFilterAlwaysSends(t *testing.T) {
	out := NewOutgoing("irc.example.com", "NOTICE", "alice", "hi")
	out.AddTag("msgid", "abc123", nil)

	line, err := out.LineFor(capRecipient{})
	require.NoError(t, err)
	parsed, err := ircmsg.ParseLine(string(line))
	require.NoError(t, err)
	present, value := parsed.GetTag("msgid")
	assert.True(t, present)
	assert.Equal(t, "abc123", value)
}

func TestOutgoingTagValueEscaping(t *testing.T) {
	out := NewOutgoing("irc.example.com", "NOTICE", "alice", "hi")
	out.AddTag("example.com/title", "site admin", nil)

	line, err := out.LineFor(capRecipient{})
	require.NoError(t, err)
	assert.Contains(t, string(line), `site\sadmin`)

	parsed, err := ircmsg.ParseLine(string(line))
	require.NoError(t, err)
	_, value := parsed.GetTag("example.com/title")
	assert.Equal(t, "site admin", value)
}

func TestOutgoingSourceSession(t *testing.T) {
	relayed := NewUserOutgoing(7, "alice!alice@localhost", "PRIVMSG", "#chat", "hi")
	id, ok := relayed.SourceSession()
	assert.True(t, ok)
	assert.Equal(t, uint64(7), id)

	server := NewOutgoing("irc.example.com", "NOTICE", "alice", "hi")
	_, ok = server.SourceSession()
	assert.False(t, ok)
}

func TestCapabilitySet(t *testing.T) {
	cs := NewCapabilitySet()
	assert.False(t, cs.Has(CapMessageTags))
	assert.Empty(t, cs.List())

	cs.Enable(CapMessageTags, CapServerTime)
	assert.True(t, cs.Has(CapMessageTags))
	assert.True(t, cs.Has(CapServerTime))
	assert.False(t, cs.Has(CapEchoMessage))
	assert.Equal(t, []string{CapMessageTags, CapServerTime}, cs.List())

	cs.Disable(CapServerTime)
	assert.False(t, cs.Has(CapServerTime))
	assert.Equal(t, []string{CapMessageTags}, cs.List())
}

func TestCapSupported(t *testing.T) {
	assert.True(t, CapSupported(CapMessageTags))
	assert.True(t, CapSupported(CapServerTime))
	assert.True(t, CapSupported(CapEchoMessage))
	assert.False(t, CapSupported("sasl"))
}

package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidChannelName(t *testing.T) {
	valid := []string{"#chat", "#a", "#Chat-Room", "#chan.net"}
	for _, name := range valid {
		assert.True(t, validChannelName(name), "expected %q to be valid", name)
	}

	invalid := []string{"", "#", "chat", "&chat", "#with space", "#with,comma", "#with\x07bell"}
	for _, name := range invalid {
		assert.False(t, validChannelName(name), "expected %q to be invalid", name)
	}
}

func TestChannelJoinKeepsFirstSpelling(t *testing.T) {
	r := NewChannelRegistry()
	alice := &Session{ID: 1}
	bob := &Session{ID: 2}

	name, members := r.Join("#Chat", alice)
	assert.Equal(t, "#Chat", name)
	require.Len(t, members, 1)

	// A different casing joins the same channel under the original spelling
	name, members = r.Join("#chat", bob)
	assert.Equal(t, "#Chat", name)
	require.Len(t, members, 2)
	assert.Equal(t, uint64(1), members[0].ID)
	assert.Equal(t, uint64(2), members[1].ID)

	assert.Equal(t, 1, r.Count())
	assert.True(t, r.IsMember("#CHAT", alice.ID))
}

func TestChannelPart(t *testing.T) {
	r := NewChannelRegistry()
	alice := &Session{ID: 1}
	bob := &Session{ID: 2}
	r.Join("#chat", alice)
	r.Join("#chat", bob)

	// The snapshot is taken before removal so the leaver still sees the PART
	name, members, wasMember := r.Part("#chat", alice.ID)
	require.True(t, wasMember)
	assert.Equal(t, "#chat", name)
	assert.Len(t, members, 2)
	assert.False(t, r.IsMember("#chat", alice.ID))

	_, _, wasMember = r.Part("#chat", alice.ID)
	assert.False(t, wasMember)

	// The last member's departure removes the channel
	_, _, wasMember = r.Part("#chat", bob.ID)
	require.True(t, wasMember)
	assert.Equal(t, 0, r.Count())

	_, _, wasMember = r.Part("#nowhere", alice.ID)
	assert.False(t, wasMember)
}

func TestChannelRemoveSessionDeduplicates(t *testing.T) {
	r := NewChannelRegistry()
	alice := &Session{ID: 1}
	bob := &Session{ID: 2}
	carol := &Session{ID: 3}

	// Bob shares two channels with Alice, Carol shares one
	r.Join("#one", alice)
	r.Join("#one", bob)
	r.Join("#two", alice)
	r.Join("#two", bob)
	r.Join("#two", carol)

	others := r.RemoveSession(alice.ID)
	ids := make(map[uint64]bool)
	for _, sess := range others {
		ids[sess.ID] = true
	}
	assert.Equal(t, map[uint64]bool{2: true, 3: true}, ids)

	assert.False(t, r.IsMember("#one", alice.ID))
	assert.False(t, r.IsMember("#two", alice.ID))
	assert.True(t, r.IsMember("#two", carol.ID))
}

func TestSharedChannels(t *testing.T) {
	r := NewChannelRegistry()
	alice := &Session{ID: 1}
	bob := &Session{ID: 2}
	carol := &Session{ID: 3}

	r.Join("#one", alice)
	r.Join("#one", bob)
	r.Join("#two", alice)
	r.Join("#two", bob)
	r.Join("#three", carol)

	shared := r.SharedChannels(alice.ID)
	require.Len(t, shared, 1)
	assert.Equal(t, bob.ID, shared[0].ID)

	assert.Empty(t, r.SharedChannels(carol.ID))
}

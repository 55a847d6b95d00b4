package tags

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreApplyUpdateReplacesWholesale(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.ApplyUpdate(1, "account alice role admin"))
	set, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, 2, set.Len())

	// A later update replaces the whole set, not a merge
	require.NoError(t, store.ApplyUpdate(1, "level 3"))
	set, ok = store.Get(1)
	require.True(t, ok)
	require.Equal(t, 1, set.Len())
	assert.False(t, set.Has("account"))
	val, _ := set.Get("level")
	assert.Equal(t, "3", val)
}

func TestStoreApplyUpdateEmptyUnsets(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.ApplyUpdate(1, "account alice"))
	_, ok := store.Get(1)
	require.True(t, ok)

	require.NoError(t, store.ApplyUpdate(1, ""))
	_, ok = store.Get(1)
	assert.False(t, ok)
}

func TestStoreApplyUpdateMalformedPreservesExisting(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.ApplyUpdate(1, "account alice"))

	err := store.ApplyUpdate(1, "a 1 b")
	require.ErrorIs(t, err, ErrMalformedList)

	// No partial update: the prior set survives untouched
	set, ok := store.Get(1)
	require.True(t, ok)
	require.Equal(t, 1, set.Len())
	val, _ := set.Get("account")
	assert.Equal(t, "alice", val)
	assert.False(t, set.Has("a"))
}

func TestStoreApplyUpdateMalformedWithoutExisting(t *testing.T) {
	store := NewStore()

	err := store.ApplyUpdate(1, "orphan")
	require.ErrorIs(t, err, ErrMalformedList)
	_, ok := store.Get(1)
	assert.False(t, ok)
}

func TestStoreApplyUpdateLogsMalformedAtDebug(t *testing.T) {
	var buf bytes.Buffer
	store := NewStore()
	store.SetDebugLogger(log.New(&buf, "", 0))

	err := store.ApplyUpdate(7, "a 1 b")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "Malformed tag list received for session 7")
}

func TestStoreSetEmptySetUnsets(t *testing.T) {
	store := NewStore()
	store.Set(1, mustDecode(t, "a 1"))
	require.Equal(t, 1, store.Len())

	store.Set(1, NewTagSet())
	_, ok := store.Get(1)
	assert.False(t, ok)

	store.Set(2, nil)
	_, ok = store.Get(2)
	assert.False(t, ok)
}

func TestStoreUnsetAndLen(t *testing.T) {
	store := NewStore()
	store.Set(1, mustDecode(t, "a 1"))
	store.Set(2, mustDecode(t, "b 2"))
	assert.Equal(t, 2, store.Len())

	store.Unset(1)
	assert.Equal(t, 1, store.Len())
	_, ok := store.Get(1)
	assert.False(t, ok)

	// Unsetting a session without a set is a no-op
	store.Unset(99)
	assert.Equal(t, 1, store.Len())
}

func TestStoreExport(t *testing.T) {
	store := NewStore()

	_, ok := store.Export(1)
	assert.False(t, ok)

	require.NoError(t, store.ApplyUpdate(1, "role admin account alice"))
	raw, ok := store.Export(1)
	require.True(t, ok)
	assert.Equal(t, "account alice role admin", raw)
}

func mustDecode(t *testing.T, raw string) *TagSet {
	t.Helper()
	set, err := Decode(raw)
	require.NoError(t, err)
	return set
}

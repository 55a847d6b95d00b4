package tags

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []Entry
		wantErr error
	}{
		{
			name: "empty payload",
			raw:  "",
			want: nil,
		},
		{
			name: "whitespace only",
			raw:  "   ",
			want: nil,
		},
		{
			name: "single pair",
			raw:  "account alice",
			want: []Entry{{"account", "alice"}},
		},
		{
			name: "multiple pairs sorted canonically",
			raw:  "role admin account alice",
			want: []Entry{{"account", "alice"}, {"role", "admin"}},
		},
		{
			name: "mixed whitespace separators",
			raw:  "role admin\taccount  alice",
			want: []Entry{{"account", "alice"}, {"role", "admin"}},
		},
		{
			name:    "odd token count",
			raw:     "a 1 b",
			wantErr: ErrMalformedList,
		},
		{
			name:    "single dangling name",
			raw:     "orphan",
			wantErr: ErrMalformedList,
		},
		{
			name: "duplicate key collapses to later value",
			raw:  "Foo bar foo baz",
			want: []Entry{{"Foo", "baz"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Decode(tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, set)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, set.Entries())
		})
	}
}

func TestEncode(t *testing.T) {
	t.Run("nil set", func(t *testing.T) {
		assert.Equal(t, "", Encode(nil))
	})

	t.Run("empty set", func(t *testing.T) {
		assert.Equal(t, "", Encode(NewTagSet()))
	})

	t.Run("single entry has no trailing separator", func(t *testing.T) {
		set := NewTagSet()
		set.Set("role", "admin")
		assert.Equal(t, "role admin", Encode(set))
	})

	t.Run("entries emitted in canonical order", func(t *testing.T) {
		set := NewTagSet()
		set.Set("zeta", "3")
		set.Set("account", "alice")
		set.Set("Role", "admin")
		assert.Equal(t, "account alice Role admin zeta 3", Encode(set))
	})
}

func TestEncodeDeterministicAcrossInsertionOrder(t *testing.T) {
	a := NewTagSet()
	a.Set("account", "alice")
	a.Set("role", "admin")
	a.Set("level", "3")

	b := NewTagSet()
	b.Set("level", "3")
	b.Set("role", "admin")
	b.Set("account", "alice")

	assert.Equal(t, Encode(a), Encode(b))
}

// TestDecodeEncodeRoundTrip verifies Decode(Encode(s)) == s for sets whose
// values are free of spaces, and that re-encoding is byte-identical.
func TestDecodeEncodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pairCount := rapid.IntRange(0, 12).Draw(t, "pairCount")

		original := NewTagSet()
		for i := 0; i < pairCount; i++ {
			name := rapid.StringMatching(`[a-zA-Z0-9-]{1,16}`).Draw(t, fmt.Sprintf("name_%d", i))
			value := rapid.StringMatching(`[!-~]{1,16}`).Draw(t, fmt.Sprintf("value_%d", i))
			original.Set(name, value)
		}

		encoded := Encode(original)

		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if !decoded.Equal(original) {
			t.Fatalf("round-trip mismatch: got %q, want %q", Encode(decoded), encoded)
		}

		// Re-encoding a decoded set without mutation is byte-identical
		if reencoded := Encode(decoded); reencoded != encoded {
			t.Fatalf("re-encode mismatch: got %q, want %q", reencoded, encoded)
		}
	})
}

// TestEncodeInsertionOrderIndependence verifies identical pairs inserted in
// different orders encode identically.
func TestEncodeInsertionOrderIndependence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pairCount := rapid.IntRange(1, 10).Draw(t, "pairCount")

		names := make(map[string]bool, pairCount)
		var pairs [][2]string
		for i := 0; i < pairCount; i++ {
			name := rapid.StringMatching(`[a-zA-Z0-9-]{1,16}`).Draw(t, fmt.Sprintf("name_%d", i))
			if names[foldTagName(name)] {
				continue
			}
			names[foldTagName(name)] = true
			value := rapid.StringMatching(`[!-~]{1,16}`).Draw(t, fmt.Sprintf("value_%d", i))
			pairs = append(pairs, [2]string{name, value})
		}

		forward := NewTagSet()
		for _, p := range pairs {
			forward.Set(p[0], p[1])
		}
		reversed := NewTagSet()
		for i := len(pairs) - 1; i >= 0; i-- {
			reversed.Set(pairs[i][0], pairs[i][1])
		}

		if Encode(forward) != Encode(reversed) {
			t.Fatalf("insertion order changed encoding: %q vs %q", Encode(forward), Encode(reversed))
		}
	})
}

// Package tags implements services-driven custom message tags: per-session
// tag sets with a network wire format, subject resolution for outgoing
// messages, and capability-gated tag emission.
package tags

import (
	"sort"
	"strings"
)

// Entry is a single tag inside a TagSet.
type Entry struct {
	Name  string
	Value string
}

// TagSet is an ordered mapping from tag name to tag value. Names are
// case-insensitive: lookups fold case, and entries are kept sorted by folded
// name so enumeration order is canonical regardless of insertion order.
//
// Values are opaque strings. The wire format (see Encode) cannot represent a
// value containing a space; this is a documented format limitation and is not
// validated on write.
//
// A TagSet is not safe for concurrent mutation; ownership rules are enforced
// by Store.
type TagSet struct {
	entries []Entry // sorted by foldTagName(Name)
}

// NewTagSet returns an empty TagSet.
func NewTagSet() *TagSet {
	return &TagSet{}
}

// foldTagName is the case-insensitive identity used for tag names.
func foldTagName(name string) string {
	return strings.ToLower(name)
}

// search returns the index of the entry matching name, or the insertion
// position and false.
func (ts *TagSet) search(name string) (int, bool) {
	folded := foldTagName(name)
	i := sort.Search(len(ts.entries), func(i int) bool {
		return foldTagName(ts.entries[i].Name) >= folded
	})
	if i < len(ts.entries) && foldTagName(ts.entries[i].Name) == folded {
		return i, true
	}
	return i, false
}

// Set inserts or updates a tag. When a name already exists under
// case-insensitive comparison, the stored spelling of the name is kept and
// only the value is replaced (the later occurrence wins).
func (ts *TagSet) Set(name, value string) {
	i, found := ts.search(name)
	if found {
		ts.entries[i].Value = value
		return
	}
	ts.entries = append(ts.entries, Entry{})
	copy(ts.entries[i+1:], ts.entries[i:])
	ts.entries[i] = Entry{Name: name, Value: value}
}

// Get returns the value stored under name, folding case.
func (ts *TagSet) Get(name string) (string, bool) {
	i, found := ts.search(name)
	if !found {
		return "", false
	}
	return ts.entries[i].Value, true
}

// Has reports whether name is present, folding case.
func (ts *TagSet) Has(name string) bool {
	_, found := ts.search(name)
	return found
}

// Len returns the number of entries.
func (ts *TagSet) Len() int {
	return len(ts.entries)
}

// Entries returns a copy of the entries in canonical (case-insensitive
// sorted) order.
func (ts *TagSet) Entries() []Entry {
	out := make([]Entry, len(ts.entries))
	copy(out, ts.entries)
	return out
}

// Equal reports whether two TagSets hold the same entries under
// case-insensitive name identity. Values compare exactly.
func (ts *TagSet) Equal(other *TagSet) bool {
	if ts.Len() != other.Len() {
		return false
	}
	for i, e := range ts.entries {
		o := other.entries[i]
		if foldTagName(e.Name) != foldTagName(o.Name) || e.Value != o.Value {
			return false
		}
	}
	return true
}

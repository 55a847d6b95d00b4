package tags

import (
	"errors"
	"strings"
)

// ErrMalformedList is returned by Decode when the token stream ends in the
// middle of a name/value pair.
var ErrMalformedList = errors.New("tag list ends with a name that has no value")

// Decode parses the network form of a tag set: whitespace-separated tokens
// consumed as (name, value) pairs in occurrence order. Duplicate names under
// case-insensitive comparison collapse to a single entry whose value comes
// from the later occurrence.
//
// An odd number of tokens rejects the whole payload: Decode returns
// ErrMalformedList and no set. Callers must treat a failed Decode as a no-op
// on any state they hold; Decode itself never touches caller state.
//
// An empty or all-whitespace payload decodes to an empty TagSet.
func Decode(raw string) (*TagSet, error) {
	tokens := strings.Fields(raw)
	if len(tokens)%2 != 0 {
		return nil, ErrMalformedList
	}
	set := NewTagSet()
	for i := 0; i < len(tokens); i += 2 {
		set.Set(tokens[i], tokens[i+1])
	}
	return set, nil
}

// Encode renders a TagSet in its network form: entries in canonical order,
// each as name SP value, joined by single spaces with no trailing separator.
//
// Encode is the left inverse of Decode for any set whose values contain no
// space: Decode(Encode(s)) equals s. A value containing a space breaks the
// format; Encode does not escape it.
func Encode(set *TagSet) string {
	if set == nil || set.Len() == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range set.entries {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(e.Name)
		sb.WriteByte(' ')
		sb.WriteString(e.Value)
	}
	return sb.String()
}

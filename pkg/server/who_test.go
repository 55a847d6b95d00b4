package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWhoOptions(t *testing.T) {
	tests := []struct {
		arg       string
		isWhox    bool
		fields    string
		token     string
		nickIndex int
	}{
		{"%cuhn,152", true, "cuhn", "152", 3},
		{"%nf", true, "nf", "", 0},
		{"%fn", true, "nf", "", 0},
		{"%tcuihsnfdlaor", true, "tcuihsnfdlaor", "", 6},
		{"%cuh", true, "cuh", "", -1},
		{"%", true, "", "", -1},
		{"o", false, "", "", 0},
		{"", false, "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			whox, ok := parseWhoOptions(tt.arg)
			require.Equal(t, tt.isWhox, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.fields, whox.fields)
			assert.Equal(t, tt.token, whox.token)
			assert.Equal(t, tt.nickIndex, whox.nickFieldIndex())
		})
	}
}

func TestWhoxValues(t *testing.T) {
	target := &Session{ID: 7, RemoteAddr: "192.0.2.20:51000"}
	target.setNickname("bob")
	target.SetUser("bobby", "Bob Example")
	target.Touch()

	whox, ok := parseWhoOptions("%tcuhsnr,42")
	require.True(t, ok)

	params := whox.values(target, "#chat", "irc.test")
	assert.Equal(t, []string{"42", "#chat", "bobby", "192.0.2.20", "irc.test", "bob", "Bob Example"}, params)

	// The nick field position feeds tag attribution: recipient parameter
	// leads, so the nick lands one past this index in the final reply
	assert.Equal(t, 5, whox.nickFieldIndex())
}

func TestWhoxValuesDefaults(t *testing.T) {
	target := &Session{ID: 7, RemoteAddr: "192.0.2.20:51000"}
	target.setNickname("bob")
	target.Touch()

	whox, ok := parseWhoOptions("%tufdao")
	require.True(t, ok)

	// Unset username reports *, the token defaults to 0, and the flag,
	// hop, account, and oplevel fields carry their fixed placeholders
	params := whox.values(target, "*", "irc.test")
	assert.Equal(t, []string{"0", "*", "H", "0", "0", "0"}, params)
}

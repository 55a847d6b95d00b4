package irc

import (
	"github.com/ergochat/irc-go/ircmsg"

	"github.com/perchbird/customtags/pkg/tags"
)

// MaxLineLen is the traditional IRC line length limit, tags excluded.
const MaxLineLen = 512

// Outgoing is a server-to-client message on its way to one or more
// recipients. It pairs the wire message with the session it was relayed for,
// if any, and with tags whose serialization is decided per recipient. Build
// it, let the tag provider populate it, then serialize once per recipient
// with LineFor.
//
// An Outgoing is assembled and fanned out on a single goroutine; it is not
// safe for concurrent mutation.
type Outgoing struct {
	msg      ircmsg.Message
	source   uint64
	fromUser bool
	gated    []gatedTag
}

type gatedTag struct {
	name   string
	value  string
	filter tags.SendFilter
}

// NewOutgoing builds a server-originated message.
func NewOutgoing(prefix, command string, params ...string) *Outgoing {
	return &Outgoing{msg: ircmsg.MakeMessage(nil, prefix, command, params...)}
}

// NewUserOutgoing builds a message relayed on behalf of the session with the
// given ID. That session is the message's subject when tags are injected.
func NewUserOutgoing(sessionID uint64, prefix, command string, params ...string) *Outgoing {
	out := NewOutgoing(prefix, command, params...)
	out.source = sessionID
	out.fromUser = true
	return out
}

// Command implements tags.OutgoingMessage.
func (o *Outgoing) Command() string { return o.msg.Command }

// Params implements tags.OutgoingMessage.
func (o *Outgoing) Params() []string { return o.msg.Params }

// SourceSession implements tags.OutgoingMessage.
func (o *Outgoing) SourceSession() (uint64, bool) { return o.source, o.fromUser }

// AddTag attaches a tag to the message. Whether the tag reaches a given
// recipient is decided by filter at serialization time; a nil filter admits
// every recipient. Names starting with '+' are client-only tags and are
// serialized as such.
func (o *Outgoing) AddTag(name, value string, filter tags.SendFilter) {
	o.gated = append(o.gated, gatedTag{name: name, value: value, filter: filter})
}

// TagCount returns the number of tags attached so far.
func (o *Outgoing) TagCount() int { return len(o.gated) }

// LineFor serializes the message for one recipient, carrying exactly the
// attached tags whose filters admit that recipient. The returned line is
// CRLF-terminated.
func (o *Outgoing) LineFor(rcpt tags.Recipient) ([]byte, error) {
	var tagMap map[string]string
	for _, gt := range o.gated {
		if gt.filter != nil && !gt.filter.ShouldSend(rcpt) {
			continue
		}
		if tagMap == nil {
			tagMap = make(map[string]string, len(o.gated))
		}
		tagMap[gt.name] = gt.value
	}

	msg := ircmsg.MakeMessage(tagMap, o.msg.Source, o.msg.Command, o.msg.Params...)
	return msg.LineBytes()
}

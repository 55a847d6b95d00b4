package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/perchbird/customtags/pkg/irc"
)

// whoxFieldOrder is the canonical order WHOX fields are emitted in, no
// matter what order the client asked for them.
const whoxFieldOrder = "tcuihsnfdlaor"

// whoxRequest is a parsed WHO options argument such as "%cuhn,152".
type whoxRequest struct {
	fields string // requested fields, reduced to canonical order
	token  string // querytype token echoed in the t field
}

// parseWhoOptions parses WHO's second argument. A leading '%' makes the
// query a WHOX field request.
func parseWhoOptions(arg string) (whoxRequest, bool) {
	if !strings.HasPrefix(arg, "%") {
		return whoxRequest{}, false
	}
	spec := arg[1:]
	var token string
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec, token = spec[:i], spec[i+1:]
	}

	var fields strings.Builder
	for _, f := range whoxFieldOrder {
		if strings.ContainsRune(spec, f) {
			fields.WriteRune(f)
		}
	}
	return whoxRequest{fields: fields.String(), token: token}, true
}

// nickFieldIndex returns the position of the nick among the fields that will
// be emitted, or -1 when the nick was not requested.
func (w whoxRequest) nickFieldIndex() int {
	return strings.IndexByte(w.fields, 'n')
}

// values builds one 354 reply's parameters for a matched session, in
// canonical field order.
func (w whoxRequest) values(target *Session, channel, serverName string) []string {
	params := make([]string, 0, len(w.fields))
	for _, f := range w.fields {
		switch f {
		case 't':
			token := w.token
			if token == "" {
				token = "0"
			}
			params = append(params, token)
		case 'c':
			params = append(params, channel)
		case 'u':
			params = append(params, orStar(target.Username()))
		case 'i':
			params = append(params, target.Host())
		case 'h':
			params = append(params, target.Host())
		case 's':
			params = append(params, serverName)
		case 'n':
			params = append(params, target.Nickname())
		case 'f':
			params = append(params, "H")
		case 'd':
			params = append(params, "0")
		case 'l':
			idle := int(time.Since(target.IdleSince()).Seconds())
			if idle < 0 {
				idle = 0
			}
			params = append(params, strconv.Itoa(idle))
		case 'a':
			// No account tracking; 0 is the conventional "none"
			params = append(params, "0")
		case 'o':
			params = append(params, "0")
		case 'r':
			params = append(params, target.Realname())
		}
	}
	return params
}

func orStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

// handleWho answers WHO and WHOX queries against a channel or a single nick.
func (s *Server) handleWho(sess *Session, msg ircmsg.Message) error {
	if !s.requireRegistered(sess) {
		return nil
	}
	if len(msg.Params) < 1 {
		s.sendNumeric(sess, irc.ERR_NEEDMOREPARAMS, "WHO", "Not enough parameters")
		return nil
	}
	mask := msg.Params[0]

	var whox whoxRequest
	isWhox := false
	if len(msg.Params) >= 2 {
		whox, isWhox = parseWhoOptions(msg.Params[1])
	}

	var matched []*Session
	displayChannel := "*"
	if strings.HasPrefix(mask, "#") {
		if name, members, ok := s.channels.Members(mask); ok {
			displayChannel = name
			matched = members
		}
	} else if target, ok := s.sessions.FindNickSession(mask); ok && target.Registered() {
		matched = []*Session{target}
	}

	if isWhox {
		// Report where the nick sits in this query's replies before any
		// reply goes out, so tag injection reads the right parameter
		s.resolver.NoteWhoxNickField(whox.nickFieldIndex())
		for _, target := range matched {
			s.sendNumeric(sess, irc.RPL_WHOSPCRPL, whox.values(target, displayChannel, s.config.ServerName)...)
		}
	} else {
		for _, target := range matched {
			s.sendNumeric(sess, irc.RPL_WHOREPLY,
				displayChannel,
				orStar(target.Username()),
				target.Host(),
				s.config.ServerName,
				target.Nickname(),
				"H",
				"0 "+target.Realname(),
			)
		}
	}

	s.sendNumeric(sess, irc.RPL_ENDOFWHO, mask, "End of WHO list")
	return nil
}

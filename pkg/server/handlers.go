package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"golang.org/x/crypto/bcrypt"

	"github.com/perchbird/customtags/pkg/irc"
)

// ErrClientQuit is returned when a client ends its session with QUIT.
var ErrClientQuit = errors.New("client quit")

// validNick reports whether a nickname is acceptable: RFC-style letters,
// digits, and the usual specials, not starting with a digit or '-'.
func validNick(nick string, maxLen int) bool {
	if nick == "" || len(nick) > maxLen {
		return false
	}
	for i, r := range nick {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case strings.ContainsRune("[]\\`_^{|}", r):
		case r >= '0' && r <= '9' || r == '-':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// requireRegistered sends 451 and returns false when the session has not
// completed registration.
func (s *Server) requireRegistered(sess *Session) bool {
	if sess.Registered() {
		return true
	}
	s.sendNumeric(sess, irc.ERR_NOTREGISTERED, "You have not registered")
	return false
}

// handleCap processes CAP negotiation: LS, LIST, REQ, and END. A pre-
// registration LS or REQ holds the welcome burst back until CAP END.
func (s *Server) handleCap(sess *Session, msg ircmsg.Message) error {
	if len(msg.Params) < 1 {
		s.sendNumeric(sess, irc.ERR_NEEDMOREPARAMS, "CAP", "Not enough parameters")
		return nil
	}

	nick := sess.Nickname()
	if nick == "" {
		nick = "*"
	}

	sub := strings.ToUpper(msg.Params[0])
	switch sub {
	case "LS":
		if !sess.Registered() {
			sess.setCapNegotiating(true)
		}
		s.deliver(irc.NewOutgoing(s.config.ServerName, "CAP", nick, "LS", strings.Join(irc.SupportedCaps, " ")), sess)

	case "LIST":
		s.deliver(irc.NewOutgoing(s.config.ServerName, "CAP", nick, "LIST", strings.Join(sess.Caps.List(), " ")), sess)

	case "REQ":
		if !sess.Registered() {
			sess.setCapNegotiating(true)
		}
		var requested string
		if len(msg.Params) >= 2 {
			requested = msg.Params[1]
		}

		// REQ is all-or-nothing: one unknown capability rejects the set
		var enable, disable []string
		acceptable := true
		for _, name := range strings.Fields(requested) {
			if base, remove := strings.CutPrefix(name, "-"); remove {
				if !irc.CapSupported(base) {
					acceptable = false
					break
				}
				disable = append(disable, base)
			} else {
				if !irc.CapSupported(name) {
					acceptable = false
					break
				}
				enable = append(enable, name)
			}
		}

		if !acceptable {
			s.deliver(irc.NewOutgoing(s.config.ServerName, "CAP", nick, "NAK", requested), sess)
			return nil
		}
		sess.Caps.Enable(enable...)
		sess.Caps.Disable(disable...)
		s.deliver(irc.NewOutgoing(s.config.ServerName, "CAP", nick, "ACK", requested), sess)

	case "END":
		sess.setCapNegotiating(false)
		return s.maybeWelcome(sess)

	default:
		s.sendNumeric(sess, irc.ERR_INVALIDCAPCMD, sub, "Invalid CAP command")
	}
	return nil
}

// handleNick sets or changes the session's nickname.
func (s *Server) handleNick(sess *Session, msg ircmsg.Message) error {
	if len(msg.Params) < 1 || msg.Params[0] == "" {
		s.sendNumeric(sess, irc.ERR_NONICKNAMEGIVEN, "No nickname given")
		return nil
	}

	nick := msg.Params[0]
	if !validNick(nick, s.config.MaxNickLen) {
		s.sendNumeric(sess, irc.ERR_ERRONEUSNICKNAME, nick, "Erroneous nickname")
		return nil
	}

	oldNick := sess.Nickname()
	oldPrefix := sess.Prefix()
	if err := s.sessions.BindNick(sess, nick); err != nil {
		s.sendNumeric(sess, irc.ERR_NICKNAMEINUSE, nick, "Nickname is already in use")
		return nil
	}

	if sess.Registered() && oldNick != nick {
		debugLog.Printf("Session %d: nick change %s -> %s", sess.ID, oldNick, nick)
		out := irc.NewUserOutgoing(sess.ID, oldPrefix, "NICK", nick)
		s.deliver(out, append(s.channels.SharedChannels(sess.ID), sess)...)
		return nil
	}

	return s.maybeWelcome(sess)
}

// handleUser records username and realname.
func (s *Server) handleUser(sess *Session, msg ircmsg.Message) error {
	if sess.Registered() {
		s.sendNumeric(sess, irc.ERR_ALREADYREGISTERED, "You may not reregister")
		return nil
	}
	if len(msg.Params) < 4 {
		s.sendNumeric(sess, irc.ERR_NEEDMOREPARAMS, "USER", "Not enough parameters")
		return nil
	}

	sess.SetUser(msg.Params[0], msg.Params[3])
	return s.maybeWelcome(sess)
}

// handlePass authenticates a services connection. On the client ports PASS
// is accepted and ignored.
func (s *Server) handlePass(sess *Session, msg ircmsg.Message) error {
	if sess.Registered() {
		s.sendNumeric(sess, irc.ERR_ALREADYREGISTERED, "You may not reregister")
		return nil
	}
	if len(msg.Params) < 1 {
		s.sendNumeric(sess, irc.ERR_NEEDMOREPARAMS, "PASS", "Not enough parameters")
		return nil
	}
	if sess.ConnType != "services" {
		return nil
	}

	if s.config.ServicesPasswordHash == "" {
		errorLog.Printf("Session %d: services PASS received but no services password is configured", sess.ID)
		s.sendNumeric(sess, irc.ERR_PASSWDMISMATCH, "Password incorrect")
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.ServicesPasswordHash), []byte(msg.Params[0])); err != nil {
		debugLog.Printf("Session %d: services password verification failed", sess.ID)
		s.sendNumeric(sess, irc.ERR_PASSWDMISMATCH, "Password incorrect")
		return nil
	}

	sess.markServices()
	debugLog.Printf("Session %d authenticated as services", sess.ID)
	return nil
}

// maybeWelcome completes registration once NICK and USER are in and no CAP
// negotiation is pending. Services connections must have authenticated by
// now or they are cut off.
func (s *Server) maybeWelcome(sess *Session) error {
	if !sess.ReadyToRegister() {
		return nil
	}
	if sess.ConnType == "services" && !sess.IsServices() {
		s.sendNumeric(sess, irc.ERR_PASSWDMISMATCH, "Password incorrect")
		sess.setQuitReason("Bad services password")
		return ErrClientQuit
	}

	sess.markRegistered()
	s.sendWelcome(sess)
	return nil
}

// sendWelcome sends the registration burst: 001 through 005, then the MOTD.
func (s *Server) sendWelcome(sess *Session) {
	nick := sess.Nickname()
	s.sendNumeric(sess, irc.RPL_WELCOME, fmt.Sprintf("Welcome to the %s network, %s", s.config.NetworkName, nick))
	s.sendNumeric(sess, irc.RPL_YOURHOST, fmt.Sprintf("Your host is %s, running version %s", s.config.ServerName, serverVersion))
	s.sendNumeric(sess, irc.RPL_CREATED, "This server was created "+s.startTime.UTC().Format(time.RFC1123))
	s.sendNumeric(sess, irc.RPL_MYINFO, s.config.ServerName, serverVersion, "i", "nt")
	s.sendNumeric(sess, irc.RPL_ISUPPORT,
		"NETWORK="+s.config.NetworkName,
		"CASEMAPPING=ascii",
		"CHANTYPES=#",
		"CHANLIMIT=#:",
		"PREFIX=",
		fmt.Sprintf("NICKLEN=%d", s.config.MaxNickLen),
		"WHOX",
		"are supported by this server")
	s.sendMotd(sess)
	debugLog.Printf("Session %d registered as %s (%s)", sess.ID, nick, sess.ConnType)
}

// sendMotd sends the message of the day, one 372 per line.
func (s *Server) sendMotd(sess *Session) {
	motd := strings.TrimRight(s.config.MOTD, "\n")
	if motd == "" {
		s.sendNumeric(sess, irc.ERR_NOMOTD, "MOTD File is missing")
		return
	}

	s.sendNumeric(sess, irc.RPL_MOTDSTART, fmt.Sprintf("- %s Message of the day - ", s.config.ServerName))
	for _, line := range strings.Split(motd, "\n") {
		s.sendNumeric(sess, irc.RPL_MOTD, "- "+line)
	}
	s.sendNumeric(sess, irc.RPL_ENDOFMOTD, "End of /MOTD command")
}

// handleMotd replays the MOTD on request.
func (s *Server) handleMotd(sess *Session, msg ircmsg.Message) error {
	if !s.requireRegistered(sess) {
		return nil
	}
	s.sendMotd(sess)
	return nil
}

// handlePing answers PING with PONG.
func (s *Server) handlePing(sess *Session, msg ircmsg.Message) error {
	token := s.config.ServerName
	if len(msg.Params) > 0 {
		token = msg.Params[0]
	}
	s.deliver(irc.NewOutgoing(s.config.ServerName, "PONG", s.config.ServerName, token), sess)
	return nil
}

// handleQuit confirms the close and ends the session. The departure
// broadcast happens during teardown.
func (s *Server) handleQuit(sess *Session, msg ircmsg.Message) error {
	reason := "Client quit"
	if len(msg.Params) > 0 && msg.Params[0] != "" {
		reason = msg.Params[0]
	}
	sess.setQuitReason(reason)
	s.deliver(irc.NewOutgoing("", "ERROR", "Closing link: "+reason), sess)
	return ErrClientQuit
}

// handleJoin adds the session to one or more channels.
func (s *Server) handleJoin(sess *Session, msg ircmsg.Message) error {
	if !s.requireRegistered(sess) {
		return nil
	}
	if len(msg.Params) < 1 {
		s.sendNumeric(sess, irc.ERR_NEEDMOREPARAMS, "JOIN", "Not enough parameters")
		return nil
	}

	for _, name := range strings.Split(msg.Params[0], ",") {
		if !validChannelName(name) {
			s.sendNumeric(sess, irc.ERR_NOSUCHCHANNEL, name, "No such channel")
			continue
		}

		displayName, members := s.channels.Join(name, sess)
		out := irc.NewUserOutgoing(sess.ID, sess.Prefix(), "JOIN", displayName)
		s.deliver(out, members...)

		names := make([]string, 0, len(members))
		for _, member := range members {
			names = append(names, member.Nickname())
		}
		s.sendNumeric(sess, irc.RPL_NAMREPLY, "=", displayName, strings.Join(names, " "))
		s.sendNumeric(sess, irc.RPL_ENDOFNAMES, displayName, "End of NAMES list")
	}
	return nil
}

// handlePart removes the session from one or more channels.
func (s *Server) handlePart(sess *Session, msg ircmsg.Message) error {
	if !s.requireRegistered(sess) {
		return nil
	}
	if len(msg.Params) < 1 {
		s.sendNumeric(sess, irc.ERR_NEEDMOREPARAMS, "PART", "Not enough parameters")
		return nil
	}

	for _, name := range strings.Split(msg.Params[0], ",") {
		displayName, members, wasMember := s.channels.Part(name, sess.ID)
		if !wasMember {
			s.sendNumeric(sess, irc.ERR_NOTONCHANNEL, name, "You're not on that channel")
			continue
		}

		params := []string{displayName}
		if len(msg.Params) >= 2 && msg.Params[1] != "" {
			params = append(params, msg.Params[1])
		}
		out := irc.NewUserOutgoing(sess.ID, sess.Prefix(), "PART", params...)
		s.deliver(out, members...)
	}
	return nil
}

// handleRelay fans a PRIVMSG, NOTICE, or TAGMSG out to its targets. Client-
// only tags ride along for recipients that negotiated message-tags, and the
// sender's own custom tags are injected during delivery.
func (s *Server) handleRelay(sess *Session, msg ircmsg.Message) error {
	if !s.requireRegistered(sess) {
		return nil
	}

	command := strings.ToUpper(msg.Command)
	minParams := 2
	if command == "TAGMSG" {
		minParams = 1
	}
	if len(msg.Params) < minParams {
		s.sendNumeric(sess, irc.ERR_NEEDMOREPARAMS, command, "Not enough parameters")
		return nil
	}

	for _, target := range strings.Split(msg.Params[0], ",") {
		s.relayToTarget(sess, command, target, msg)
	}
	return nil
}

func (s *Server) relayToTarget(sess *Session, command, target string, msg ircmsg.Message) {
	params := []string{target}
	if command != "TAGMSG" {
		params = append(params, msg.Params[1])
	}

	out := irc.NewUserOutgoing(sess.ID, sess.Prefix(), command, params...)
	for name, value := range msg.ClientOnlyTags() {
		out.AddTag("+"+name, value, irc.CapFilter(irc.CapMessageTags))
	}

	var recipients []*Session
	echoSelf := sess.HasCap(irc.CapEchoMessage)
	if strings.HasPrefix(target, "#") {
		_, members, ok := s.channels.Members(target)
		if !ok {
			s.sendNumeric(sess, irc.ERR_NOSUCHCHANNEL, target, "No such channel")
			return
		}
		if !s.channels.IsMember(target, sess.ID) {
			s.sendNumeric(sess, irc.ERR_CANNOTSENDTOCHAN, target, "Cannot send to channel")
			return
		}
		for _, member := range members {
			if member.ID != sess.ID {
				recipients = append(recipients, member)
			}
		}
	} else {
		targetSess, ok := s.sessions.FindNickSession(target)
		if !ok || !targetSess.Registered() {
			s.sendNumeric(sess, irc.ERR_NOSUCHNICK, target, "No such nick/channel")
			return
		}
		if targetSess.ID == sess.ID {
			// Messaging yourself delivers one copy either way
			echoSelf = true
		} else {
			recipients = append(recipients, targetSess)
		}
	}

	if echoSelf {
		recipients = append(recipients, sess)
	}

	// TAGMSG carries nothing but tags; only message-tags clients get it
	if command == "TAGMSG" {
		filtered := recipients[:0]
		for _, rcpt := range recipients {
			if rcpt.HasCap(irc.CapMessageTags) {
				filtered = append(filtered, rcpt)
			}
		}
		recipients = filtered
	}

	s.deliver(out, recipients...)
}

// handleWhois answers WHOIS for a single nick.
func (s *Server) handleWhois(sess *Session, msg ircmsg.Message) error {
	if !s.requireRegistered(sess) {
		return nil
	}
	if len(msg.Params) < 1 {
		s.sendNumeric(sess, irc.ERR_NONICKNAMEGIVEN, "No nickname given")
		return nil
	}

	// WHOIS [<server>] <nick>: the nick is always the last parameter
	nick := msg.Params[len(msg.Params)-1]
	target, ok := s.sessions.FindNickSession(nick)
	if !ok || !target.Registered() {
		s.sendNumeric(sess, irc.ERR_NOSUCHNICK, nick, "No such nick/channel")
		s.sendNumeric(sess, irc.RPL_ENDOFWHOIS, nick, "End of WHOIS list")
		return nil
	}

	s.sendNumeric(sess, irc.RPL_WHOISUSER, target.Nickname(), orStar(target.Username()), target.Host(), "*", target.Realname())
	s.sendNumeric(sess, irc.RPL_WHOISSERVER, target.Nickname(), s.config.ServerName, s.config.NetworkName)
	s.sendNumeric(sess, irc.RPL_ENDOFWHOIS, target.Nickname(), "End of WHOIS list")
	return nil
}

// handleMetadata ingests tag updates from the services connection:
//
//	METADATA <nick> custom-tags            query the current tag list
//	METADATA <nick> custom-tags :<list>    replace it (empty list clears)
//
// Replies echo the canonical encoding. Only the services session may use it.
func (s *Server) handleMetadata(sess *Session, msg ircmsg.Message) error {
	if !s.requireRegistered(sess) {
		return nil
	}
	if !sess.IsServices() {
		s.sendNumeric(sess, irc.ERR_NOPRIVILEGES, "Permission Denied - only services may set metadata")
		return nil
	}
	if len(msg.Params) < 2 {
		s.sendNumeric(sess, irc.ERR_NEEDMOREPARAMS, "METADATA", "Not enough parameters")
		return nil
	}

	nick, key := msg.Params[0], msg.Params[1]
	if !strings.EqualFold(key, "custom-tags") {
		s.sendFail(sess, "METADATA", "KEY_INVALID", key, "Unsupported metadata key")
		return nil
	}
	target, ok := s.sessions.FindNickSession(nick)
	if !ok {
		s.sendNumeric(sess, irc.ERR_NOSUCHNICK, nick, "No such nick/channel")
		return nil
	}

	if len(msg.Params) >= 3 {
		payload := msg.Params[2]
		if err := s.tagStore.ApplyUpdate(target.ID, payload); err != nil {
			s.metrics.RecordTagUpdate("rejected")
			s.sendFail(sess, "METADATA", "VALUE_INVALID", nick, "Tag list has a name with no value")
			return nil
		}
		if strings.TrimSpace(payload) == "" {
			s.metrics.RecordTagUpdate("cleared")
		} else {
			s.metrics.RecordTagUpdate("applied")
		}
		s.metrics.RecordActiveTagSets(s.tagStore.Len())
	}

	// Confirm (or answer a query) with the canonical encoding
	current, _ := s.tagStore.Export(target.ID)
	s.deliver(irc.NewOutgoing(s.config.ServerName, "METADATA", target.Nickname(), "custom-tags", current), sess)
	return nil
}

// sendFail emits an IRCv3 standard replies FAIL line.
func (s *Server) sendFail(sess *Session, command, code string, rest ...string) {
	params := append([]string{command, code}, rest...)
	s.deliver(irc.NewOutgoing(s.config.ServerName, "FAIL", params...), sess)
}

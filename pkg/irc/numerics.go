package irc

// Reply numerics the server emits. Names follow the RFC 2812 and IRCv3
// conventions rather than Go style so they can be grepped against the
// protocol documents.
const (
	RPL_WELCOME     = "001"
	RPL_YOURHOST    = "002"
	RPL_CREATED     = "003"
	RPL_MYINFO      = "004"
	RPL_ISUPPORT    = "005"
	RPL_WHOISUSER   = "311"
	RPL_WHOISSERVER = "312"
	RPL_ENDOFWHO    = "315"
	RPL_ENDOFWHOIS  = "318"
	RPL_WHOREPLY    = "352"
	RPL_NAMREPLY    = "353"
	RPL_WHOSPCRPL   = "354"
	RPL_ENDOFNAMES  = "366"
	RPL_MOTD        = "372"
	RPL_MOTDSTART   = "375"
	RPL_ENDOFMOTD   = "376"

	ERR_NOSUCHNICK        = "401"
	ERR_NOSUCHCHANNEL     = "403"
	ERR_CANNOTSENDTOCHAN  = "404"
	ERR_INVALIDCAPCMD     = "410"
	ERR_UNKNOWNCOMMAND    = "421"
	ERR_NOMOTD            = "422"
	ERR_NONICKNAMEGIVEN   = "431"
	ERR_ERRONEUSNICKNAME  = "432"
	ERR_NICKNAMEINUSE     = "433"
	ERR_NOTONCHANNEL      = "442"
	ERR_NOTREGISTERED     = "451"
	ERR_NEEDMOREPARAMS    = "461"
	ERR_ALREADYREGISTERED = "462"
	ERR_PASSWDMISMATCH    = "464"
	ERR_NOPRIVILEGES      = "481"
)

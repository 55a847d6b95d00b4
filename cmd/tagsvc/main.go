// Command tagsvc is an interactive services client for managing user tag
// sets. It authenticates on the services port and translates commands read
// from stdin into tag updates:
//
//	set <nick> <name> <value> [<name> <value> ...]
//	clear <nick>
//	show <nick>
//	quit
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
)

func main() {
	// Command-line flags
	serverAddr := flag.String("server", "localhost:7766", "Services address (host:port)")
	password := flag.String("password", "", "Services password (or TAGSVC_PASSWORD)")
	nick := flag.String("nick", "tagsvc", "Services nickname")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("TAGSVC_PASSWORD")
	}
	if *password == "" {
		log.Fatal("Services password is required (-password or TAGSVC_PASSWORD)")
	}

	conn := &ircevent.Connection{
		Server:        *serverAddr,
		Nick:          *nick,
		User:          *nick,
		RealName:      "Tag services",
		Password:      *password,
		ReconnectFreq: 0,
	}

	conn.AddCallback("464", func(e ircmsg.Message) {
		log.Fatal("Services password rejected")
	})

	conn.AddCallback("METADATA", func(e ircmsg.Message) {
		if len(e.Params) < 3 {
			return
		}
		if e.Params[2] == "" {
			fmt.Printf("%s: (no tags)\n", e.Params[0])
			return
		}
		fmt.Printf("%s: %s\n", e.Params[0], e.Params[2])
	})

	conn.AddCallback("FAIL", func(e ircmsg.Message) {
		fmt.Printf("rejected: %s\n", strings.Join(e.Params, " "))
	})

	conn.AddCallback("401", func(e ircmsg.Message) {
		if len(e.Params) >= 2 {
			fmt.Printf("no such nick: %s\n", e.Params[1])
		}
	})

	// Start reading stdin only once we are registered
	var replOnce sync.Once
	conn.AddConnectCallback(func(e ircmsg.Message) {
		log.Printf("Connected to %s as %s", *serverAddr, *nick)
		replOnce.Do(func() {
			go repl(conn)
		})
	})

	if err := conn.Connect(); err != nil {
		log.Fatalf("Connect failed: %v", err)
	}
	conn.Loop()
}

func repl(conn *ircevent.Connection) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Commands: set <nick> <name> <value> [...], clear <nick>, show <nick>, quit")

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "set":
			if len(fields) < 4 || len(fields)%2 != 0 {
				fmt.Println("usage: set <nick> <name> <value> [<name> <value> ...]")
				continue
			}
			conn.SendRaw(fmt.Sprintf("METADATA %s custom-tags :%s", fields[1], strings.Join(fields[2:], " ")))

		case "clear":
			if len(fields) != 2 {
				fmt.Println("usage: clear <nick>")
				continue
			}
			conn.SendRaw(fmt.Sprintf("METADATA %s custom-tags :", fields[1]))

		case "show":
			if len(fields) != 2 {
				fmt.Println("usage: show <nick>")
				continue
			}
			conn.SendRaw(fmt.Sprintf("METADATA %s custom-tags", fields[1]))

		case "quit", "exit":
			conn.Quit()
			return

		default:
			fmt.Printf("unknown command: %s\n", fields[0])
		}
	}
	conn.Quit()
}

// Command loadtest floods a CustomTags server with chattering clients to
// measure delivery throughput and the overhead of tag injection. A fraction
// of the clients negotiate message-tags so both delivery paths are exercised,
// and an optional services connection keeps rotating tag sets while the
// chatter runs.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
)

const loremIpsum = "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur."

var loremWords = strings.Fields(loremIpsum)

var nickWords = []string{
	"amber", "basalt", "cobalt", "drift", "ember", "flint", "garnet",
	"hollow", "iris", "jasper", "lumen", "marrow", "nectar", "onyx",
	"pyrite", "quartz", "russet", "slate", "tundra", "umber", "vapor",
	"willow", "yarrow", "zephyr",
}

// generateNick combines fragments of two random words, made unique by the
// client id.
func generateNick(id int) string {
	word1 := nickWords[rand.Intn(len(nickWords))]
	word2 := nickWords[rand.Intn(len(nickWords))]

	frag1 := word1[:3+rand.Intn(len(word1)-2)]
	frag2 := word2[:3+rand.Intn(len(word2)-2)]

	return fmt.Sprintf("%s%s_%d", frag1, frag2, id)
}

func randomMessage() string {
	count := 3 + rand.Intn(10)
	words := make([]string, count)
	for i := range words {
		words[i] = loremWords[rand.Intn(len(loremWords))]
	}
	return strings.Join(words, " ")
}

// Stats tracks performance counters across all clients.
type Stats struct {
	connected        atomic.Int64
	connectionErrors atomic.Int64
	sent             atomic.Int64
	sendErrors       atomic.Int64
	received         atomic.Int64
	taggedReceived   atomic.Int64
	tagUpdates       atomic.Int64
}

func (s *Stats) snapshot() (sent, received, tagged int64) {
	return s.sent.Load(), s.received.Load(), s.taggedReceived.Load()
}

// botClient is one chattering connection.
type botClient struct {
	id      int
	nick    string
	channel string
	tagged  bool
	conn    *ircevent.Connection
	stats   *Stats
	stop    chan struct{}
}

func newBotClient(id int, serverAddr string, channels int, tagged bool, stats *Stats, stop chan struct{}) *botClient {
	bc := &botClient{
		id:      id,
		nick:    generateNick(id),
		channel: fmt.Sprintf("#load%d", id%channels),
		tagged:  tagged,
		stats:   stats,
		stop:    stop,
	}

	conn := &ircevent.Connection{
		Server:        serverAddr,
		Nick:          bc.nick,
		User:          bc.nick,
		RealName:      "Load test client",
		ReconnectFreq: 0,
	}
	if tagged {
		conn.RequestCaps = []string{"message-tags", "server-time"}
	}

	conn.AddConnectCallback(func(e ircmsg.Message) {
		stats.connected.Add(1)
		conn.SendRaw("JOIN " + bc.channel)
		go bc.chatter()
	})

	conn.AddCallback("PRIVMSG", func(e ircmsg.Message) {
		stats.received.Add(1)
		if len(e.AllTags()) > 0 {
			stats.taggedReceived.Add(1)
		}
	})

	bc.conn = conn
	return bc
}

// chatter posts messages with a random delay until the test stops.
func (bc *botClient) chatter() {
	for {
		delay := minDelay + time.Duration(rand.Int63n(int64(maxDelay-minDelay)+1))
		select {
		case <-bc.stop:
			return
		case <-time.After(delay):
		}

		line := fmt.Sprintf("PRIVMSG %s :%s", bc.channel, randomMessage())
		if err := bc.conn.SendRaw(line); err != nil {
			bc.stats.sendErrors.Add(1)
			return
		}
		bc.stats.sent.Add(1)
	}
}

// tagRotator drives the services connection: every interval it pushes a fresh
// tag list onto a random client so deliveries keep crossing tag-set changes.
func tagRotator(conn *ircevent.Connection, nicks []string, interval time.Duration, stats *Stats, stop chan struct{}) {
	lists := []string{
		"account %s role member",
		"account %s role ops badge gold",
		"",
	}

	i := 0
	for {
		select {
		case <-stop:
			return
		case <-time.After(interval):
		}

		nick := nicks[rand.Intn(len(nicks))]
		list := lists[i%len(lists)]
		if list != "" {
			list = fmt.Sprintf(list, nick)
		}
		if err := conn.SendRaw(fmt.Sprintf("METADATA %s custom-tags :%s", nick, list)); err != nil {
			return
		}
		stats.tagUpdates.Add(1)
		i++
	}
}

var (
	minDelay time.Duration
	maxDelay time.Duration
)

func main() {
	// Command-line flags
	serverAddr := flag.String("server", "localhost:6667", "Server address (host:port)")
	servicesAddr := flag.String("services", "localhost:7766", "Services address (host:port)")
	password := flag.String("password", "", "Services password; empty disables tag rotation")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	taggedFraction := flag.Float64("tagged", 0.5, "Fraction of clients negotiating message-tags")
	numChannels := flag.Int("channels", 5, "Number of channels to spread clients over")
	duration := flag.Duration("duration", 1*time.Minute, "Test duration")
	tagInterval := flag.Duration("tag-interval", 2*time.Second, "Delay between services tag updates")
	flag.DurationVar(&minDelay, "min-delay", 500*time.Millisecond, "Minimum delay between posts")
	flag.DurationVar(&maxDelay, "max-delay", 3*time.Second, "Maximum delay between posts")
	flag.Parse()

	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	// Ramp up over 25% of the test duration
	rampUpDuration := *duration / 4
	staggerDelay := rampUpDuration / time.Duration(*numClients)
	if staggerDelay < 1*time.Millisecond {
		staggerDelay = 1 * time.Millisecond
	}

	log.Printf("Starting load test:")
	log.Printf("  Server: %s", *serverAddr)
	log.Printf("  Clients: %d (%.0f%% with message-tags) across %d channels", *numClients, *taggedFraction*100, *numChannels)
	log.Printf("  Duration: %v", *duration)
	log.Printf("  Ramp-up: %v (%v per client)", rampUpDuration, staggerDelay)
	log.Printf("  Delay: %v - %v", minDelay, maxDelay)

	stats := &Stats{}
	stop := make(chan struct{})
	var wg sync.WaitGroup

	// Stats reporter
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		startTime := time.Now()
		for {
			select {
			case <-ticker.C:
				sent, received, tagged := stats.snapshot()
				elapsed := time.Since(startTime).Seconds()
				taggedPct := 0.0
				if received > 0 {
					taggedPct = float64(tagged) / float64(received) * 100
				}
				log.Printf("Stats: %d connected, %d sent (%.1f/s), %d received (%.1f/s), %.1f%% tagged, goroutines %d",
					stats.connected.Load(), sent, float64(sent)/elapsed,
					received, float64(received)/elapsed, taggedPct, runtime.NumGoroutine())
			case <-stop:
				return
			}
		}
	}()

	// Spawn clients with staggered connects
	bots := make([]*botClient, 0, *numClients)
	nicks := make([]string, 0, *numClients)
	for i := 0; i < *numClients; i++ {
		tagged := float64(i) < *taggedFraction*float64(*numClients)
		bot := newBotClient(i, *serverAddr, *numChannels, tagged, stats, stop)
		bots = append(bots, bot)
		nicks = append(nicks, bot.nick)

		wg.Add(1)
		go func(bc *botClient) {
			defer wg.Done()
			if err := bc.conn.Connect(); err != nil {
				stats.connectionErrors.Add(1)
				return
			}
			bc.conn.Loop()
		}(bot)

		time.Sleep(staggerDelay)
	}

	// Services connection rotating tag sets
	var svc *ircevent.Connection
	if *password != "" {
		svc = &ircevent.Connection{
			Server:        *servicesAddr,
			Nick:          "loadtest_svc",
			User:          "loadtest_svc",
			RealName:      "Load test services",
			Password:      *password,
			ReconnectFreq: 0,
		}
		svc.AddConnectCallback(func(e ircmsg.Message) {
			go tagRotator(svc, nicks, *tagInterval, stats, stop)
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Connect(); err != nil {
				log.Printf("Services connect failed: %v", err)
				return
			}
			svc.Loop()
		}()
	}

	// Run until the duration elapses or a signal arrives
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-time.After(*duration):
		log.Printf("Duration elapsed, stopping test...")
	case sig := <-sigChan:
		log.Printf("Received %v, stopping test...", sig)
	}

	close(stop)
	for _, bot := range bots {
		bot.conn.Quit()
	}
	if svc != nil {
		svc.Quit()
	}
	wg.Wait()

	// Final results
	sent, received, tagged := stats.snapshot()
	log.Printf("=== Final Results ===")
	log.Printf("Clients: %d attempted, %d connected, %d connect errors",
		*numClients, stats.connected.Load(), stats.connectionErrors.Load())
	log.Printf("Messages sent: %d (%d send errors)", sent, stats.sendErrors.Load())
	log.Printf("Messages received: %d (%d tagged)", received, tagged)
	log.Printf("Tag updates pushed: %d", stats.tagUpdates.Load())
	if sent > 0 {
		log.Printf("Fan-out ratio: %.2f received per sent", float64(received)/float64(sent))
	}
}

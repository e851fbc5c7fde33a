package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func main() {
	addr := flag.String("addr", "127.0.0.1:8088", "mock backend address (host:port)")
	types := flag.String("types", "", "comma separated event types to show (default: all)")
	flag.Parse()

	wanted := map[string]bool{}
	for _, t := range strings.Split(*types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			wanted[t] = true
		}
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer func() { _ = c.Close() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	go func() {
		for {
			var ev event
			if err := c.ReadJSON(&ev); err != nil {
				log.Printf("read error: %v", err)
				return
			}
			if len(wanted) > 0 && !wanted[ev.Type] {
				continue
			}
			log.Printf("%s: %s", ev.Type, ev.Data)
		}
	}()

	<-sig
	log.Println("interrupt received, closing websocket")
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(500 * time.Millisecond)
}

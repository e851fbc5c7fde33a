package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// sendReport posts one report with a random score to the mock backend
func sendReport(client *http.Client, base, identifier string, seq int) error {
	body, err := json.Marshal(map[string]any{
		"dateTime": time.Now().UTC().Format(time.RFC3339),
		"data": map[string]any{
			"seq":   seq,
			"score": rand.Intn(10),
		},
	})
	if err != nil {
		return err
	}

	resp, err := client.Post(base+"/api/reports/"+url.PathEscape(identifier), "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func printLatest(client *http.Client, base, identifier string) {
	resp, err := client.Get(base + "/api/reports/" + url.PathEscape(identifier))
	if err != nil {
		log.Printf("poll error: %v", err)
		return
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err == nil {
		log.Printf("latest: %s", out.String())
	} else {
		log.Printf("latest: %s", strings.TrimSpace(string(body)))
	}
}

func main() {
	base := flag.String("url", "http://127.0.0.1:8088", "mock backend base URL")
	identifier := flag.String("report", "harness-demo", "report identifier")
	count := flag.Int("count", 10, "number of reports to send")
	interval := flag.Duration("interval", 500*time.Millisecond, "interval between reports")
	flag.Parse()

	client := &http.Client{Timeout: 2 * time.Second}
	log.Printf("sending %d reports to %s (report=%s)", *count, *base, *identifier)

	for seq := 1; seq <= *count; seq++ {
		if err := sendReport(client, *base, *identifier, seq); err != nil {
			log.Printf("send report %d: %v", seq, err)
		}
		time.Sleep(*interval)
	}

	printLatest(client, *base, *identifier)
	log.Printf("done")
}

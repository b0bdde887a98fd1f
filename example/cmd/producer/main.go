// Standalone producer for exercising the CLI's HTTP API.
//
// Usage:
//
//	go run ./cmd/itemsync serve -c example/itemsync.yaml
//
// Then in another terminal:
//
//	go run ./example/cmd/producer -addr http://localhost:8080
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

type record struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Value       int    `json:"value,omitempty"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "itemsync server base URL")
	every := flag.Duration("every", 2*time.Second, "average delay between requests")
	flag.Parse()

	if *every <= 0 {
		fmt.Fprintln(os.Stderr, "-every must be positive")
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Producing against %s, press Ctrl+C to stop\n\n", *addr)

	client := &http.Client{Timeout: 5 * time.Second}
	var ids []string

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(rand.Int63n(int64(*every) * 2))):
		}

		var (
			method, path string
			body         any
		)
		switch n := rand.Intn(10); {
		case n < 5 || len(ids) == 0:
			method, path = http.MethodPost, "/api/records"
			body = record{Name: fmt.Sprintf("item-%03d", rand.Intn(1000)), Value: 1 + rand.Intn(99)}
		case n < 8:
			method, path = http.MethodPut, "/api/records/"+ids[rand.Intn(len(ids))]
			body = record{Description: fmt.Sprintf("touched at %s", time.Now().Format(time.TimeOnly))}
		default:
			i := rand.Intn(len(ids))
			method, path = http.MethodDelete, "/api/records/"+ids[i]
			ids = append(ids[:i], ids[i+1:]...)
		}

		created, err := send(ctx, client, method, *addr+path, body)
		if err != nil {
			slog.Error("request failed", "method", method, "path", path, "error", err)
			continue
		}
		if created.ID != "" && method == http.MethodPost {
			ids = append(ids, created.ID)
		}
		slog.Info("request accepted", "method", method, "path", path)
	}
}

func send(ctx context.Context, client *http.Client, method, url string, body any) (record, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return record{}, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return record{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return record{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		return record{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var echo record
	if err := json.NewDecoder(resp.Body).Decode(&echo); err != nil {
		return record{}, err
	}
	return echo, nil
}

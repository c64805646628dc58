// Command healthcheck exits 0 when the local reviewq server reports itself
// healthy. It is the container HEALTHCHECK.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

const (
	defaultAddr  = "127.0.0.1:8080"
	probeTimeout = 2 * time.Second
)

func main() {
	if err := probe(context.Background(), "http://"+loopback(os.Getenv("REVIEWQ_LISTEN_ADDR"))); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// probe requires a 200 from the health endpoint and a body reporting status
// "ok" on a clean schema.
func probe(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/health", nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %d", resp.StatusCode)
	}

	var body struct {
		Status      string `json:"status"`
		SchemaDirty bool   `json:"schema_dirty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode health: %w", err)
	}
	if body.Status != "ok" || body.SchemaDirty {
		return fmt.Errorf("unhealthy: status=%s schema_dirty=%t", body.Status, body.SchemaDirty)
	}
	return nil
}

// loopback rewrites a bind-all listen address to 127.0.0.1; the probe runs
// inside the same container as the server.
func loopback(raw string) string {
	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultAddr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
